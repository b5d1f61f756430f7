// Package api exposes the project tracker over HTTP: project and task CRUD,
// membership management, and the invitation workflow. Handlers translate
// service errors into status codes; authorization itself happens in the
// service layer.
package api
