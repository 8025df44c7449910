package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/watch"
)

var (
	watchInterval   int
	watchTimestamps bool
	watchNoEmoji    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch remote playback for changes",
	Long: `Polls the player state and prints an event line whenever the
track, transport, volume or device changes.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVarP(&watchInterval, "interval", "i", 0, "poll interval in milliseconds (default from config)")
	watchCmd.Flags().BoolVar(&watchTimestamps, "timestamps", false, "prefix events with a timestamp")
	watchCmd.Flags().BoolVar(&watchNoEmoji, "no-emoji", false, "plain text events")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	interval := watchInterval
	if interval == 0 {
		interval = Config().Watch.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := watch.NewWatcher(c, time.Duration(interval)*time.Millisecond)

	formatter := watch.NewFormatter(
		watch.WithEmoji(!watchNoEmoji),
		watch.WithTimestamp(watchTimestamps),
	)

	go func() {
		for e := range watcher.Events() {
			if JSONOutput() {
				_ = json.NewEncoder(os.Stdout).Encode(watchEventJSON(e))
				continue
			}
			fmt.Println(formatter.Format(e))
		}
	}()

	if !JSONOutput() {
		fmt.Fprintf(os.Stderr, "Watching playback (every %dms). Press Ctrl+C to stop.\n", interval)
	}
	return watcher.Start(ctx)
}

type watchEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Track     string    `json:"track,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Device    string    `json:"device,omitempty"`
	Volume    *int      `json:"volume,omitempty"`
}

func watchEventJSON(e watch.Event) watchEvent {
	out := watchEvent{
		Type:      watch.EventTypeName(e.Type),
		Timestamp: e.Timestamp,
	}
	if e.Current != nil {
		if e.Current.Item != nil {
			out.Track = e.Current.Item.Name
			out.Artist = e.Current.Item.ArtistNames()
		}
		out.Device = e.Current.Device.Name
		out.Volume = e.Current.Device.VolumePercent
	}
	return out
}
