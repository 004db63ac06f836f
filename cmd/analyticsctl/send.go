package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drblury/analyticsbase/internal/analytics"
)

type sendOptions struct {
	origin    string
	timestamp int64
	output    string
}

func newSendCmd(v *viper.Viper) *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Encode one analytics message and POST it",
		Long: `Send encodes a message into a binary envelope and posts it to the server.

Example:
  analyticsctl send page-change --origin kitchen-1 --src home --dst settings
  analyticsctl send song-change --origin radio-2 --title Title --output song.bin`,
	}
	cmd.PersistentFlags().StringVar(&opts.origin, "origin", "", "sending device (required)")
	cmd.PersistentFlags().Int64Var(&opts.timestamp, "timestamp", 0, "epoch milliseconds (default: now)")
	cmd.PersistentFlags().StringVar(&opts.output, "output", "", "write the envelope to this file instead of sending it")
	_ = cmd.MarkPersistentFlagRequired("origin")

	cmd.AddCommand(
		newPageChangeCmd(v, opts),
		newPlaybackChangeCmd(v, opts),
		newSongChangeCmd(v, opts),
	)
	return cmd
}

func newPageChangeCmd(v *viper.Viper, opts *sendOptions) *cobra.Command {
	var src, dst string
	cmd := &cobra.Command{
		Use:   "page-change",
		Short: "Send a navigation between two pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := analytics.ParsePageID(src)
			if err != nil {
				return err
			}
			to, err := analytics.ParsePageID(dst)
			if err != nil {
				return err
			}
			return opts.deliver(cmd, v, analytics.PageChange{Src: from, Dst: to})
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "page navigated from: home, radio, settings, spotify, bluetooth")
	cmd.Flags().StringVar(&dst, "dst", "", "page navigated to")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dst")
	return cmd
}

func newPlaybackChangeCmd(v *viper.Viper, opts *sendOptions) *cobra.Command {
	var source, name string
	var started bool
	cmd := &cobra.Command{
		Use:   "playback-change",
		Short: "Send playback starting or stopping",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := analytics.ParsePlaybackSource(source)
			if err != nil {
				return err
			}
			return opts.deliver(cmd, v, analytics.PlaybackChange{Source: src, Name: name, Started: started})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "playback source: radio, spotify, bluetooth")
	cmd.Flags().StringVar(&name, "name", "", "station, playlist or device name")
	cmd.Flags().BoolVar(&started, "started", false, "playback started (false: stopped)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newSongChangeCmd(v *viper.Viper, opts *sendOptions) *cobra.Command {
	song := analytics.SongChange{}
	cmd := &cobra.Command{
		Use:   "song-change",
		Short: "Send a new track",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.deliver(cmd, v, song)
		},
	}
	cmd.Flags().StringVar(&song.RawMeta, "raw", "", "unparsed metadata line")
	cmd.Flags().StringVar(&song.Title, "title", "", "track title")
	cmd.Flags().StringVar(&song.Artist, "artist", "", "track artist")
	cmd.Flags().StringVar(&song.Album, "album", "", "track album")
	return cmd
}

func (o *sendOptions) deliver(cmd *cobra.Command, v *viper.Viper, payload analytics.Payload) error {
	ts := time.Now()
	if o.timestamp != 0 {
		ts = time.UnixMilli(o.timestamp)
	}
	envelope, err := analytics.Encode(analytics.NewMessage(o.origin, ts, payload))
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	out := cmd.OutOrStdout()
	if o.output != "" {
		if err := os.WriteFile(o.output, envelope, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d byte envelope to %s\n", len(envelope), o.output)
		return nil
	}

	requestID, err := clientFromConfig(v).send(cmd.Context(), envelope)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Accepted %s at %d (request %s)\n", payload.Kind(), ts.UnixMilli(), requestID)
	return nil
}
