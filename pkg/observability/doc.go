// Package observability provides structured logging, Prometheus metrics and
// health probes for the benjamin service.
//
// The Logger is a thin wrapper around stdlib slog with a JSON handler so log
// lines are machine-parseable. Request-scoped fields (request id, username)
// travel through context.Context and are attached via FromContext.
//
// Metrics are registered against an injected prometheus.Registry so tests can
// use an isolated registry without global state.
package observability
