package analytics

import "time"

// Metadata is shared by every analytics message.
type Metadata struct {
	Timestamp time.Time
	Origin    string
	Kind      MessageKind
}

// TimestampMillis returns the timestamp as epoch milliseconds, the unit used
// on the wire and as the storage key.
func (m Metadata) TimestampMillis() int64 {
	return m.Timestamp.UnixMilli()
}

// Payload is implemented by the three message payloads.
type Payload interface {
	Kind() MessageKind
}

// PageChange records a navigation between two UI pages.
type PageChange struct {
	Src PageID
	Dst PageID
}

func (PageChange) Kind() MessageKind { return KindPageChange }

// PlaybackChange records playback starting or stopping on a source.
type PlaybackChange struct {
	Source  PlaybackSource
	Name    string
	Started bool
}

func (PlaybackChange) Kind() MessageKind { return KindPlaybackChange }

// SongChange records a new track. RawMeta keeps the unparsed metadata line
// reported by the source next to the parsed fields.
type SongChange struct {
	RawMeta string
	Title   string
	Artist  string
	Album   string
}

func (SongChange) Kind() MessageKind { return KindSongChange }

// Message pairs metadata with its payload. It is the input of Encode.
type Message struct {
	Metadata Metadata
	Payload  Payload
}

// NewMessage builds a Message whose metadata kind follows the payload.
func NewMessage(origin string, ts time.Time, payload Payload) Message {
	return Message{
		Metadata: Metadata{
			Timestamp: ts,
			Origin:    origin,
			Kind:      payload.Kind(),
		},
		Payload: payload,
	}
}
