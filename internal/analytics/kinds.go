package analytics

import "fmt"

// MessageKind tags which payload an envelope carries.
type MessageKind uint8

const (
	KindPageChange     MessageKind = 0
	KindPlaybackChange MessageKind = 1
	KindSongChange     MessageKind = 2
)

var messageKindNames = map[MessageKind]string{
	KindPageChange:     "page_change",
	KindPlaybackChange: "playback_change",
	KindSongChange:     "song_change",
}

// MessageKindFromCode validates a raw kind tag.
func MessageKindFromCode(code uint8) (MessageKind, error) {
	kind := MessageKind(code)
	if _, ok := messageKindNames[kind]; !ok {
		return 0, fmt.Errorf("%w: kind %d", ErrUnknownKind, code)
	}
	return kind, nil
}

// Code returns the wire and column code of the kind.
func (k MessageKind) Code() uint8 { return uint8(k) }

func (k MessageKind) String() string {
	if name, ok := messageKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown_kind(%d)", uint8(k))
}

// PageID identifies a UI page of the player application.
type PageID uint8

const (
	PageHome      PageID = 0
	PageRadio     PageID = 1
	PageSettings  PageID = 2
	PageSpotify   PageID = 3
	PageBluetooth PageID = 4
)

var pageNames = map[PageID]string{
	PageHome:      "home",
	PageRadio:     "radio",
	PageSettings:  "settings",
	PageSpotify:   "spotify",
	PageBluetooth: "bluetooth",
}

// PageIDFromCode validates a raw page code.
func PageIDFromCode(code uint8) (PageID, error) {
	page := PageID(code)
	if _, ok := pageNames[page]; !ok {
		return 0, fmt.Errorf("%w: page %d", ErrUnknownEnumValue, code)
	}
	return page, nil
}

// ParsePageID resolves a page by its lowercase name.
func ParsePageID(name string) (PageID, error) {
	for page, n := range pageNames {
		if n == name {
			return page, nil
		}
	}
	return 0, fmt.Errorf("%w: page %q", ErrUnknownEnumValue, name)
}

func (p PageID) Code() uint8 { return uint8(p) }

func (p PageID) String() string {
	if name, ok := pageNames[p]; ok {
		return name
	}
	return fmt.Sprintf("unknown_page(%d)", uint8(p))
}

// PlaybackSource identifies where audio is being played from.
type PlaybackSource uint8

const (
	SourceRadio     PlaybackSource = 0
	SourceSpotify   PlaybackSource = 1
	SourceBluetooth PlaybackSource = 2
)

var sourceNames = map[PlaybackSource]string{
	SourceRadio:     "radio",
	SourceSpotify:   "spotify",
	SourceBluetooth: "bluetooth",
}

// PlaybackSourceFromCode validates a raw playback source code.
func PlaybackSourceFromCode(code uint8) (PlaybackSource, error) {
	source := PlaybackSource(code)
	if _, ok := sourceNames[source]; !ok {
		return 0, fmt.Errorf("%w: playback source %d", ErrUnknownEnumValue, code)
	}
	return source, nil
}

// ParsePlaybackSource resolves a playback source by its lowercase name.
func ParsePlaybackSource(name string) (PlaybackSource, error) {
	for source, n := range sourceNames {
		if n == name {
			return source, nil
		}
	}
	return 0, fmt.Errorf("%w: playback source %q", ErrUnknownEnumValue, name)
}

func (s PlaybackSource) Code() uint8 { return uint8(s) }

func (s PlaybackSource) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown_source(%d)", uint8(s))
}
