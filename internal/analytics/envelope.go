package analytics

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers. Nested payloads use their own numbering starting at 1.
const (
	fieldOrigin         protowire.Number = 1
	fieldTimestamp      protowire.Number = 2
	fieldKind           protowire.Number = 3
	fieldPageChange     protowire.Number = 4
	fieldPlaybackChange protowire.Number = 5
	fieldSongChange     protowire.Number = 6
)

// PageChangeTable is the undecoded page change payload.
type PageChangeTable struct {
	Src uint8
	Dst uint8
}

// PlaybackChangeTable is the undecoded playback change payload.
type PlaybackChangeTable struct {
	Source  uint8
	Name    string
	Started bool
}

// SongChangeTable is the undecoded song change payload.
type SongChangeTable struct {
	Raw    string
	Title  string
	Artist string
	Album  string
}

// Envelope is a structurally valid analytics message. Enum codes inside the
// payload tables are not validated yet; the Build functions do that.
type Envelope struct {
	origin    string
	timestamp int64
	kind      MessageKind

	pageChange     *PageChangeTable
	playbackChange *PlaybackChangeTable
	songChange     *SongChangeTable
}

func (e *Envelope) Origin() string    { return e.origin }
func (e *Envelope) Timestamp() int64  { return e.timestamp }
func (e *Envelope) Kind() MessageKind { return e.kind }

// PageChange returns the page change payload. It fails when the envelope is
// tagged with another kind or the payload is absent.
func (e *Envelope) PageChange() (PageChangeTable, error) {
	if e.kind != KindPageChange || e.pageChange == nil {
		return PageChangeTable{}, decodeErr("page_change", ErrPayloadMismatch)
	}
	return *e.pageChange, nil
}

// PlaybackChange returns the playback change payload.
func (e *Envelope) PlaybackChange() (PlaybackChangeTable, error) {
	if e.kind != KindPlaybackChange || e.playbackChange == nil {
		return PlaybackChangeTable{}, decodeErr("playback_change", ErrPayloadMismatch)
	}
	return *e.playbackChange, nil
}

// SongChange returns the song change payload.
func (e *Envelope) SongChange() (SongChangeTable, error) {
	if e.kind != KindSongChange || e.songChange == nil {
		return SongChangeTable{}, decodeErr("song_change", ErrPayloadMismatch)
	}
	return *e.songChange, nil
}

// Decode parses buf into an Envelope. It never panics on malformed input;
// every structural problem is returned as a *DecodeError.
func Decode(buf []byte) (*Envelope, error) {
	if len(buf) == 0 {
		return nil, decodeErr("", ErrTruncated)
	}

	var (
		env      Envelope
		seen     fieldSet
		payloads int
	)
	err := consumeFields(buf, "", func(f wireField) error {
		switch f.num {
		case fieldOrigin:
			if err := f.expect(protowire.BytesType, "origin"); err != nil {
				return err
			}
			env.origin = string(f.bytes)
		case fieldTimestamp:
			if err := f.expect(protowire.Fixed64Type, "timestamp"); err != nil {
				return err
			}
			env.timestamp = int64(f.value)
		case fieldKind:
			if err := f.expect(protowire.VarintType, "kind"); err != nil {
				return err
			}
			if f.value > 0xff {
				return decodeErr("kind", fmt.Errorf("%w: kind %d", ErrUnknownKind, f.value))
			}
			kind, err := MessageKindFromCode(uint8(f.value))
			if err != nil {
				return decodeErr("kind", err)
			}
			env.kind = kind
		case fieldPageChange:
			if err := f.expect(protowire.BytesType, "page_change"); err != nil {
				return err
			}
			table, err := decodePageChange(f.bytes)
			if err != nil {
				return err
			}
			env.pageChange = &table
		case fieldPlaybackChange:
			if err := f.expect(protowire.BytesType, "playback_change"); err != nil {
				return err
			}
			table, err := decodePlaybackChange(f.bytes)
			if err != nil {
				return err
			}
			env.playbackChange = &table
		case fieldSongChange:
			if err := f.expect(protowire.BytesType, "song_change"); err != nil {
				return err
			}
			table, err := decodeSongChange(f.bytes)
			if err != nil {
				return err
			}
			env.songChange = &table
		default:
			return nil
		}
		seen.mark(f.num)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, req := range []struct {
		num  protowire.Number
		name string
	}{
		{fieldOrigin, "origin"},
		{fieldTimestamp, "timestamp"},
		{fieldKind, "kind"},
	} {
		if !seen.has(req.num) {
			return nil, decodeErr(req.name, ErrMissingField)
		}
	}

	for _, present := range []bool{env.pageChange != nil, env.playbackChange != nil, env.songChange != nil} {
		if present {
			payloads++
		}
	}
	if payloads > 1 {
		return nil, decodeErr("", ErrPayloadConflict)
	}

	return &env, nil
}

func decodePageChange(b []byte) (PageChangeTable, error) {
	var (
		table PageChangeTable
		seen  fieldSet
	)
	err := consumeFields(b, "page_change", func(f wireField) error {
		switch f.num {
		case 1:
			v, err := f.byteValue("page_change.src")
			if err != nil {
				return err
			}
			table.Src = v
		case 2:
			v, err := f.byteValue("page_change.dst")
			if err != nil {
				return err
			}
			table.Dst = v
		default:
			return nil
		}
		seen.mark(f.num)
		return nil
	})
	if err != nil {
		return PageChangeTable{}, err
	}
	if err := seen.require("page_change", "src", "dst"); err != nil {
		return PageChangeTable{}, err
	}
	return table, nil
}

func decodePlaybackChange(b []byte) (PlaybackChangeTable, error) {
	var (
		table PlaybackChangeTable
		seen  fieldSet
	)
	err := consumeFields(b, "playback_change", func(f wireField) error {
		switch f.num {
		case 1:
			v, err := f.byteValue("playback_change.source")
			if err != nil {
				return err
			}
			table.Source = v
		case 2:
			if err := f.expect(protowire.BytesType, "playback_change.name"); err != nil {
				return err
			}
			table.Name = string(f.bytes)
		case 3:
			if err := f.expect(protowire.VarintType, "playback_change.started"); err != nil {
				return err
			}
			table.Started = protowire.DecodeBool(f.value)
		default:
			return nil
		}
		seen.mark(f.num)
		return nil
	})
	if err != nil {
		return PlaybackChangeTable{}, err
	}
	if err := seen.require("playback_change", "source", "name", "started"); err != nil {
		return PlaybackChangeTable{}, err
	}
	return table, nil
}

func decodeSongChange(b []byte) (SongChangeTable, error) {
	var (
		table SongChangeTable
		seen  fieldSet
	)
	targets := map[protowire.Number]*string{
		1: &table.Raw,
		2: &table.Title,
		3: &table.Artist,
		4: &table.Album,
	}
	names := []string{"raw", "title", "artist", "album"}
	err := consumeFields(b, "song_change", func(f wireField) error {
		target, ok := targets[f.num]
		if !ok {
			return nil
		}
		if err := f.expect(protowire.BytesType, "song_change."+names[f.num-1]); err != nil {
			return err
		}
		*target = string(f.bytes)
		seen.mark(f.num)
		return nil
	})
	if err != nil {
		return SongChangeTable{}, err
	}
	if err := seen.require("song_change", names...); err != nil {
		return SongChangeTable{}, err
	}
	return table, nil
}

type wireField struct {
	num   protowire.Number
	typ   protowire.Type
	value uint64
	bytes []byte
}

func (f wireField) expect(typ protowire.Type, path string) error {
	if f.typ != typ {
		return decodeErr(path, fmt.Errorf("%w: wire type %d, want %d", ErrMalformed, f.typ, typ))
	}
	return nil
}

func (f wireField) byteValue(path string) (uint8, error) {
	if err := f.expect(protowire.VarintType, path); err != nil {
		return 0, err
	}
	if f.value > 0xff {
		return 0, decodeErr(path, fmt.Errorf("%w: value %d exceeds 8 bits", ErrMalformed, f.value))
	}
	return uint8(f.value), nil
}

// consumeFields walks every field in b and hands the known wire types to fn.
// Groups and fixed32 values are skipped.
func consumeFields(b []byte, path string, fn func(wireField) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodeErr(path, wireError(n))
		}
		b = b[n:]

		f := wireField{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.value, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return decodeErr(path, wireError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func wireError(n int) error {
	err := protowire.ParseError(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// fieldSet tracks which field numbers (1..63) were present.
type fieldSet uint64

func (s *fieldSet) mark(num protowire.Number) {
	if num > 0 && num < 64 {
		*s |= 1 << uint(num)
	}
}

func (s fieldSet) has(num protowire.Number) bool {
	return num > 0 && num < 64 && s&(1<<uint(num)) != 0
}

// require checks fields numbered 1..len(names) in declaration order.
func (s fieldSet) require(scope string, names ...string) error {
	for i, name := range names {
		if !s.has(protowire.Number(i + 1)) {
			return decodeErr(scope+"."+name, ErrMissingField)
		}
	}
	return nil
}
