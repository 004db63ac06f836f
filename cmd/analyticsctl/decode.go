package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drblury/analyticsbase/internal/analytics"
	jsoncodec "github.com/drblury/analyticsbase/internal/runtime/jsoncodec"
)

// decodedMessage is the JSON view of an envelope printed by decode.
type decodedMessage struct {
	Kind      string `json:"kind"`
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"`

	Src *string `json:"src,omitempty"`
	Dst *string `json:"dst,omitempty"`

	Source  *string `json:"source,omitempty"`
	Name    *string `json:"name,omitempty"`
	Started *bool   `json:"started,omitempty"`

	Raw    *string `json:"raw,omitempty"`
	Title  *string `json:"title,omitempty"`
	Artist *string `json:"artist,omitempty"`
	Album  *string `json:"album,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Print a captured envelope as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			msg, err := analytics.DecodeMessage(buf)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			out, err := jsoncodec.MarshalIndent(toDecoded(msg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func toDecoded(msg analytics.Message) decodedMessage {
	d := decodedMessage{
		Kind:      msg.Metadata.Kind.String(),
		Origin:    msg.Metadata.Origin,
		Timestamp: msg.Metadata.TimestampMillis(),
	}
	switch p := msg.Payload.(type) {
	case analytics.PageChange:
		d.Src = ref(p.Src.String())
		d.Dst = ref(p.Dst.String())
	case analytics.PlaybackChange:
		d.Source = ref(p.Source.String())
		d.Name = ref(p.Name)
		d.Started = ref(p.Started)
	case analytics.SongChange:
		d.Raw = ref(p.RawMeta)
		d.Title = ref(p.Title)
		d.Artist = ref(p.Artist)
		d.Album = ref(p.Album)
	}
	return d
}

func ref[T any](v T) *T { return &v }
