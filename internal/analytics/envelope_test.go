package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func mustEncode(t *testing.T, msg Message) []byte {
	t.Helper()
	buf, err := Encode(msg)
	require.NoError(t, err)
	return buf
}

func TestRoundTripPerKind(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123).UTC()
	tests := []struct {
		name    string
		payload Payload
	}{
		{"page change", PageChange{Src: PageHome, Dst: PageSettings}},
		{"playback change", PlaybackChange{Source: SourceSpotify, Name: "Discover Weekly", Started: true}},
		{"playback stopped", PlaybackChange{Source: SourceRadio, Name: "", Started: false}},
		{"song change", SongChange{RawMeta: "Artist - Title", Title: "Title", Artist: "Artist", Album: "Album"}},
		{"empty song strings", SongChange{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewMessage("kitchen-1", ts, tt.payload)
			out, err := DecodeMessage(mustEncode(t, in))
			require.NoError(t, err)
			assert.Equal(t, in.Metadata, out.Metadata)
			assert.Equal(t, in.Payload, out.Payload)
		})
	}
}

func TestDecodeExposesEnvelopeFields(t *testing.T) {
	buf := mustEncode(t, NewMessage("radio-2", time.UnixMilli(2000), PlaybackChange{Source: SourceBluetooth, Name: "phone", Started: true}))

	env, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "radio-2", env.Origin())
	assert.Equal(t, int64(2000), env.Timestamp())
	assert.Equal(t, KindPlaybackChange, env.Kind())

	table, err := env.PlaybackChange()
	require.NoError(t, err)
	assert.Equal(t, PlaybackChangeTable{Source: 2, Name: "phone", Started: true}, table)
}

func TestDecodeNegativeTimestamp(t *testing.T) {
	buf := mustEncode(t, NewMessage("o", time.UnixMilli(-5), PageChange{}))
	env, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), env.Timestamp())
}

func TestMismatchedAccessorFails(t *testing.T) {
	buf := mustEncode(t, NewMessage("o", time.UnixMilli(1), SongChange{Title: "t"}))
	env, err := Decode(buf)
	require.NoError(t, err)

	_, err = env.PageChange()
	assert.ErrorIs(t, err, ErrPayloadMismatch)
	_, err = env.PlaybackChange()
	assert.ErrorIs(t, err, ErrPayloadMismatch)
	_, err = env.SongChange()
	assert.NoError(t, err)
}

func TestDecodeRejectsEmptyBuffer(t *testing.T) {
	_, err := Decode(nil)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Decode([]byte{})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeRejectsEveryTruncation(t *testing.T) {
	buf := mustEncode(t, NewMessage("kitchen-1", time.UnixMilli(1000), SongChange{RawMeta: "a - b", Title: "b", Artist: "a", Album: "c"}))
	for i := 0; i < len(buf); i++ {
		_, err := DecodeMessage(buf[:i])
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("prefix of %d bytes: expected DecodeError, got %v", i, err)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	inputs := [][]byte{
		{0xff},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x00, 0x01},
		[]byte("not an envelope at all"),
	}
	for _, in := range inputs {
		_, err := Decode(in)
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr, "input %x", in)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, fieldOrigin, protowire.BytesType)
	b = protowire.AppendString(b, "o")
	b = protowire.AppendTag(b, fieldTimestamp, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 1)
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, 3)

	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrUnknownKind)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "kind", decodeErr.Field)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	full := func(skip protowire.Number) []byte {
		var b []byte
		if skip != fieldOrigin {
			b = protowire.AppendTag(b, fieldOrigin, protowire.BytesType)
			b = protowire.AppendString(b, "o")
		}
		if skip != fieldTimestamp {
			b = protowire.AppendTag(b, fieldTimestamp, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, 1)
		}
		if skip != fieldKind {
			b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
			b = protowire.AppendVarint(b, 0)
		}
		return b
	}

	for _, num := range []protowire.Number{fieldOrigin, fieldTimestamp, fieldKind} {
		_, err := Decode(full(num))
		assert.ErrorIs(t, err, ErrMissingField, "field %d", num)
	}

	_, err := Decode(full(0))
	assert.NoError(t, err, "metadata-only envelope is structurally valid")
}

func TestDecodeRejectsMissingPayloadField(t *testing.T) {
	var inner []byte
	inner = appendVarintField(inner, 1, 0)

	var broken []byte
	broken = protowire.AppendTag(broken, fieldOrigin, protowire.BytesType)
	broken = protowire.AppendString(broken, "o")
	broken = protowire.AppendTag(broken, fieldTimestamp, protowire.Fixed64Type)
	broken = protowire.AppendFixed64(broken, 1)
	broken = protowire.AppendTag(broken, fieldKind, protowire.VarintType)
	broken = protowire.AppendVarint(broken, 0)
	broken = appendBytesField(broken, fieldPageChange, inner)

	_, err := Decode(broken)
	assert.ErrorIs(t, err, ErrMissingField)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "page_change.dst", decodeErr.Field)
}

func TestDecodeRejectsWrongWireType(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, fieldOrigin, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsTwoPayloads(t *testing.T) {
	b := mustEncode(t, NewMessage("o", time.UnixMilli(1), PageChange{Src: PageHome, Dst: PageRadio}))
	var inner []byte
	inner = appendBytesField(inner, 1, []byte("raw"))
	inner = appendBytesField(inner, 2, nil)
	inner = appendBytesField(inner, 3, nil)
	inner = appendBytesField(inner, 4, nil)
	b = appendBytesField(b, fieldSongChange, inner)

	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrPayloadConflict)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	b := mustEncode(t, NewMessage("o", time.UnixMilli(9), PageChange{Src: PageRadio, Dst: PageHome}))
	b = protowire.AppendTag(b, 42, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1234)
	b = appendBytesField(b, 43, []byte("future"))

	msg, err := DecodeMessage(b)
	require.NoError(t, err)
	assert.Equal(t, PageChange{Src: PageRadio, Dst: PageHome}, msg.Payload)
}

func TestDecodeRejectsOversizedCodes(t *testing.T) {
	var inner []byte
	inner = appendVarintField(inner, 1, 300)
	inner = appendVarintField(inner, 2, 0)

	var b []byte
	b = protowire.AppendTag(b, fieldOrigin, protowire.BytesType)
	b = protowire.AppendString(b, "o")
	b = protowire.AppendTag(b, fieldTimestamp, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 1)
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, 0)
	b = appendBytesField(b, fieldPageChange, inner)

	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeRejectsKindMismatch(t *testing.T) {
	msg := Message{
		Metadata: Metadata{Origin: "o", Kind: KindSongChange},
		Payload:  PageChange{},
	}
	_, err := Encode(msg)
	assert.ErrorIs(t, err, ErrPayloadMismatch)

	_, err = Encode(Message{})
	assert.Error(t, err)
}
