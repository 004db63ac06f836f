package storage

import "github.com/drblury/analyticsbase/internal/analytics"

// Record is one row of the analytics table. Columns that do not belong to the
// row's kind are nil.
type Record struct {
	Tmstp  int64
	Origin string
	Kind   analytics.MessageKind

	TransitionSrc *uint8
	TransitionDst *uint8

	PlaybackSource  *uint8
	PlaybackName    *string
	PlaybackStarted *bool

	SongRaw    *string
	SongTitle  *string
	SongArtist *string
	SongAlbum  *string
}

func newRecord(meta analytics.Metadata) Record {
	return Record{
		Tmstp:  meta.TimestampMillis(),
		Origin: meta.Origin,
		Kind:   meta.Kind,
	}
}

// PageChangeRecord maps a page change onto its row.
func PageChangeRecord(meta analytics.Metadata, change analytics.PageChange) Record {
	r := newRecord(meta)
	r.TransitionSrc = ptr(change.Src.Code())
	r.TransitionDst = ptr(change.Dst.Code())
	return r
}

// PlaybackChangeRecord maps a playback change onto its row.
func PlaybackChangeRecord(meta analytics.Metadata, playback analytics.PlaybackChange) Record {
	r := newRecord(meta)
	r.PlaybackSource = ptr(playback.Source.Code())
	r.PlaybackName = ptr(playback.Name)
	r.PlaybackStarted = ptr(playback.Started)
	return r
}

// SongChangeRecord maps a song change onto its row.
func SongChangeRecord(meta analytics.Metadata, song analytics.SongChange) Record {
	r := newRecord(meta)
	r.SongRaw = ptr(song.RawMeta)
	r.SongTitle = ptr(song.Title)
	r.SongArtist = ptr(song.Artist)
	r.SongAlbum = ptr(song.Album)
	return r
}

func ptr[T any](v T) *T { return &v }
