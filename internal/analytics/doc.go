// Package analytics holds the analytics message model and its binary envelope.
//
// An envelope is a protobuf-wire encoded record carrying the sender origin,
// an epoch-millisecond timestamp, a kind tag and exactly one payload table
// matching that tag. Decode checks structure only; the Build functions turn
// a decoded Envelope into typed values and reject unknown enum codes. Both
// steps report failures as *DecodeError, which always means the sender is at
// fault.
//
//	env, err := analytics.Decode(body)
//	if err != nil {
//		return err
//	}
//	meta := analytics.BuildMetadata(env)
//	change, err := analytics.BuildPageChange(env)
package analytics
