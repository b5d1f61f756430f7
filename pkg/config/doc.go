// Package config loads service configuration from environment variables.
//
// Every setting has a sensible default so a development instance can start
// with nothing but BENJAMIN_POSTGRES_URL set. Validation happens once at load
// time; downstream packages receive plain structs and never read the
// environment themselves.
package config
