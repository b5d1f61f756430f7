// Package projects implements project lifecycle and membership management.
//
// The Store owns the projects and project_members tables and doubles as the
// membership source for authorization checks. The Service wraps every
// project-scoped operation with the access guard.
package projects
