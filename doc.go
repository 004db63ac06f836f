// Package analyticsbase ingests binary analytics messages from head units and
// persists them into a single SQLite table keyed by the message timestamp.
//
// An envelope carries an origin, a millisecond timestamp, a message kind and
// exactly one payload (page change, playback change or song change). Envelopes
// arrive over HTTP (POST /analytics) or, when ANALYTICSBASE_PUBSUB is set, from a
// Watermill broker topic. Both paths hand the raw bytes to the same Dispatcher,
// which decodes, verifies and writes one row per message.
//
// # Transports
//
// The broker side reuses the Watermill backends registered in transport/:
//   - channel: in-memory Go channels for tests and single-process setups
//   - kafka: consumer groups on a Kafka cluster
//   - rabbitmq: durable AMQP queues
//   - aws: SNS topics fanned out to SQS queues, LocalStack friendly
//   - nats: core NATS with queue groups
//   - http: envelopes posted to a Watermill HTTP subscriber
//
// # Middleware
//
// Broker ingest runs behind correlation ID injection, structured logging,
// OpenTelemetry tracing, Prometheus router metrics, poison queue forwarding for
// undecodable envelopes and panic recovery. Delivery is at-most-once: a
// message that fails to store is logged and acknowledged.
//
// # Storage
//
// Rows land in the analytics table of a SQLite database opened through
// modernc.org/sqlite. An in-memory store with the same primary key semantics is
// available for tests via ANALYTICSBASE_STORAGE=memory.
//
// A minimal embedding looks like:
//
//	conf, err := analyticsbase.LoadConfig()
//	if err != nil {
//		return err
//	}
//	svc, err := analyticsbase.NewService(&conf, logger, ctx, analyticsbase.ServiceDependencies{})
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//	return svc.Start(ctx)
package analyticsbase
