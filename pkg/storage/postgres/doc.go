// Package postgres provides database connectivity, the Redis client used
// for role caching, and the schema migrations for the project tracker.
package postgres
