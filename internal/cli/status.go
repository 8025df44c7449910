package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var statusCopy bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is playing on the active device",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCopy, "copy", false, "copy \"artist - title\" to the clipboard")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state, err := c.GetPlaybackState(ctx)
	if err != nil {
		return err
	}

	if state == nil || state.Item == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"playing": false})
		} else {
			fmt.Println("Nothing is playing.")
		}
		return nil
	}

	track := state.Item
	line := fmt.Sprintf("%s - %s", track.ArtistNames(), track.Name)

	if statusCopy {
		if err := clipboard.WriteAll(line); err != nil {
			fmt.Fprintf(os.Stderr, "could not copy to clipboard: %v\n", err)
		}
	}

	if JSONOutput() {
		out := map[string]interface{}{
			"playing":     state.IsPlaying,
			"track_id":    track.ID,
			"title":       track.Name,
			"artist":      track.ArtistNames(),
			"album":       track.Album.Name,
			"progress_ms": state.ProgressMS,
			"duration_ms": track.DurationMS,
			"shuffle":     state.ShuffleState,
			"repeat":      state.RepeatState,
			"device":      state.Device.Name,
		}
		if state.Device.VolumePercent != nil {
			out["volume"] = *state.Device.VolumePercent
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return nil
	}

	icon := "⏸"
	if state.IsPlaying {
		icon = "▶"
	}
	progress := time.Duration(state.ProgressMS) * time.Millisecond
	duration := time.Duration(track.DurationMS) * time.Millisecond

	fmt.Printf("%s %s\n", icon, line)
	fmt.Printf("  %s\n", track.Album.Name)
	fmt.Printf("  %s %s / %s\n",
		FormatProgress(progress, duration, 24),
		FormatDuration(progress),
		FormatDuration(duration))
	fmt.Printf("  Device: %s", state.Device.Name)
	if state.Device.VolumePercent != nil {
		fmt.Printf(" (vol %d%%)", *state.Device.VolumePercent)
	}
	fmt.Println()
	fmt.Printf("  Shuffle: %s  Repeat: %s\n", StatusIcon(state.ShuffleState), state.RepeatState)

	return nil
}
