// Package logger wraps zap with a process-wide sugared logger and
// context-scoped children.
//
// Services never hold a logger field: they take a context, derive a child with
// WithName or WithKV, and log through the package-level helpers, which pull the
// logger back out of the context.
package logger
