/*
Package runtime wires the analytics service together.

# Request paths

An envelope reaches the dispatcher either as the body of POST /analytics or
as a message consumed from the configured broker topic. Both paths share one
store and differ only in how failures are reported:

  - HTTP maps results to status codes: 202 stored, 400 decode error,
    413 body too large, 500 storage failure (a duplicate timestamp included).
  - Broker ingest acknowledges every message once dispatched. Envelopes that
    fail to decode are forwarded to the poison queue when one is configured.

GET /analytics/heartbeat answers 200 without touching storage, and
GET /metrics exposes Prometheus metrics when enabled.

# Broker middleware

The default chain, outermost first: correlation id, debug logging, tracing,
Watermill router metrics, poison queue and panic recovery.

# Sub-packages

  - config/: environment configuration with validation
  - errors/: sentinel errors
  - ids/: ULID request and message ids
  - jsoncodec/: JSON encoding for responses and CLI output
  - logging/: ServiceLogger over slog and Watermill
  - metadata/: broker message headers
  - telemetry/: OpenTelemetry tracer provider setup
  - transport/: broker transport factory
*/
package runtime
