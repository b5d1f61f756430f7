// Package tasks implements task tracking within a project. Tasks are
// numbered per project and every operation runs behind the access guard.
package tasks
