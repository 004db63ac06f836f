package analytics

import "time"

// BuildMetadata extracts the shared metadata of a decoded envelope.
func BuildMetadata(env *Envelope) Metadata {
	return Metadata{
		Timestamp: time.UnixMilli(env.Timestamp()).UTC(),
		Origin:    env.Origin(),
		Kind:      env.Kind(),
	}
}

// BuildPageChange validates the page codes of a page change envelope.
func BuildPageChange(env *Envelope) (PageChange, error) {
	table, err := env.PageChange()
	if err != nil {
		return PageChange{}, err
	}
	src, err := PageIDFromCode(table.Src)
	if err != nil {
		return PageChange{}, decodeErr("page_change.src", err)
	}
	dst, err := PageIDFromCode(table.Dst)
	if err != nil {
		return PageChange{}, decodeErr("page_change.dst", err)
	}
	return PageChange{Src: src, Dst: dst}, nil
}

// BuildPlaybackChange validates the source code of a playback change envelope.
func BuildPlaybackChange(env *Envelope) (PlaybackChange, error) {
	table, err := env.PlaybackChange()
	if err != nil {
		return PlaybackChange{}, err
	}
	source, err := PlaybackSourceFromCode(table.Source)
	if err != nil {
		return PlaybackChange{}, decodeErr("playback_change.source", err)
	}
	return PlaybackChange{
		Source:  source,
		Name:    table.Name,
		Started: table.Started,
	}, nil
}

// BuildSongChange copies the song change strings verbatim.
func BuildSongChange(env *Envelope) (SongChange, error) {
	table, err := env.SongChange()
	if err != nil {
		return SongChange{}, err
	}
	return SongChange{
		RawMeta: table.Raw,
		Title:   table.Title,
		Artist:  table.Artist,
		Album:   table.Album,
	}, nil
}

// BuildPayload builds whichever payload the envelope kind selects.
func BuildPayload(env *Envelope) (Payload, error) {
	switch env.Kind() {
	case KindPageChange:
		return BuildPageChange(env)
	case KindPlaybackChange:
		return BuildPlaybackChange(env)
	case KindSongChange:
		return BuildSongChange(env)
	default:
		return nil, decodeErr("kind", ErrUnknownKind)
	}
}

// DecodeMessage decodes buf and builds the typed message in one step.
func DecodeMessage(buf []byte) (Message, error) {
	env, err := Decode(buf)
	if err != nil {
		return Message{}, err
	}
	payload, err := BuildPayload(env)
	if err != nil {
		return Message{}, err
	}
	return Message{Metadata: BuildMetadata(env), Payload: payload}, nil
}
