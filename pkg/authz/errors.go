package authz

import "errors"

var (
	// ErrProjectNotFound is returned by guarded operations when the target
	// project does not exist. The HTTP layer maps it to 404.
	ErrProjectNotFound = errors.New("project not found")

	// ErrAccessDenied is returned by guarded operations when the caller's
	// role lacks the required authority. The HTTP layer maps it to 403.
	ErrAccessDenied = errors.New("access denied")
)
