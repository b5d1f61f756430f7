// Package users resolves user profiles from the external user directory.
package users
