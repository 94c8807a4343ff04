/*
Package log provides structured logging for security-manager using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init() at daemon startup
  - Thread-safe concurrent writes from all service workers

Log Levels:
  - Debug: per-event socket traces, SQL statement traces
  - Info: daemon lifecycle, service registration
  - Warn: protocol violations, denied requests
  - Error: store failures, connection errors
  - Fatal: unrecoverable startup failures (process exits)

Context Loggers:
  - WithComponent: add component name to all logs ("storage", "server")
  - WithService: add the owning socket service name
  - WithConnID: add the connection id for per-connection traces

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("storage")
	logger.Info().Str("path", dbPath).Msg("privilege database opened")
*/
package log
