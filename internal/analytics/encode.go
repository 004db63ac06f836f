package analytics

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var errPayloadRequired = errors.New("payload is required")

// Encode serialises msg into the envelope wire format. Every field is written,
// including zero values, so Decode can tell present from absent. Enum codes are
// written as given and are not validated here.
func Encode(msg Message) ([]byte, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("encode analytics message: %w", errPayloadRequired)
	}
	if msg.Metadata.Kind != msg.Payload.Kind() {
		return nil, fmt.Errorf("encode analytics message: %w: metadata kind %s, payload %s",
			ErrPayloadMismatch, msg.Metadata.Kind, msg.Payload.Kind())
	}

	b := make([]byte, 0, 64)
	b = protowire.AppendTag(b, fieldOrigin, protowire.BytesType)
	b = protowire.AppendString(b, msg.Metadata.Origin)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, uint64(msg.Metadata.TimestampMillis()))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(msg.Metadata.Kind.Code()))

	switch p := msg.Payload.(type) {
	case PageChange:
		var inner []byte
		inner = appendVarintField(inner, 1, uint64(p.Src))
		inner = appendVarintField(inner, 2, uint64(p.Dst))
		b = appendBytesField(b, fieldPageChange, inner)
	case PlaybackChange:
		var inner []byte
		inner = appendVarintField(inner, 1, uint64(p.Source))
		inner = appendBytesField(inner, 2, []byte(p.Name))
		inner = appendVarintField(inner, 3, protowire.EncodeBool(p.Started))
		b = appendBytesField(b, fieldPlaybackChange, inner)
	case SongChange:
		var inner []byte
		inner = appendBytesField(inner, 1, []byte(p.RawMeta))
		inner = appendBytesField(inner, 2, []byte(p.Title))
		inner = appendBytesField(inner, 3, []byte(p.Artist))
		inner = appendBytesField(inner, 4, []byte(p.Album))
		b = appendBytesField(b, fieldSongChange, inner)
	default:
		return nil, fmt.Errorf("encode analytics message: unsupported payload %T", msg.Payload)
	}
	return b, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
