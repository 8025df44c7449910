package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var controlDevice string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume remote playback",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.Play(ctx, targetDevice(), nil)
		}, "Playing")
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause remote playback",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.Pause(ctx, targetDevice())
		}, "Paused")
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.Next(ctx, targetDevice())
		}, "Skipped to next track")
	},
}

var prevCmd = &cobra.Command{
	Use:     "prev",
	Aliases: []string{"previous"},
	Short:   "Skip to the previous track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.Previous(ctx, targetDevice())
		}, "Skipped to previous track")
	},
}

var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek to a position in the current track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds < 0 {
			return fmt.Errorf("invalid position: %s", args[0])
		}
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.Seek(ctx, seconds*1000, targetDevice())
		}, fmt.Sprintf("Seeked to %s", FormatDuration(time.Duration(seconds)*time.Second)))
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set the remote playback volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := strconv.Atoi(args[0])
		if err != nil || percent < 0 || percent > 100 {
			return fmt.Errorf("volume must be between 0 and 100")
		}
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.SetVolume(ctx, percent, targetDevice())
		}, fmt.Sprintf("Volume set to %d%%", percent))
	},
}

var shuffleCmd = &cobra.Command{
	Use:       "shuffle <on|off>",
	Short:     "Set remote shuffle mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled := args[0] == "on"
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.SetShuffle(ctx, enabled, targetDevice())
		}, fmt.Sprintf("Shuffle %s", args[0]))
	},
}

var repeatCmd = &cobra.Command{
	Use:       "repeat <off|track|context>",
	Short:     "Set remote repeat mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"off", "track", "context"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := args[0]
		switch mode {
		case "off", "track", "context":
		default:
			return fmt.Errorf("invalid repeat mode: %s", mode)
		}
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.SetRepeat(ctx, mode, targetDevice())
		}, fmt.Sprintf("Repeat %s", mode))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{playCmd, pauseCmd, nextCmd, prevCmd, seekCmd, volumeCmd, shuffleCmd, repeatCmd} {
		cmd.Flags().StringVarP(&controlDevice, "device", "d", "", "target device ID")
		rootCmd.AddCommand(cmd)
	}
}

func targetDevice() string {
	if controlDevice != "" {
		return controlDevice
	}
	return cfg.Playback.Device
}

func runControl(fn func(ctx context.Context) error, success string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := fn(ctx); err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "ok"})
	} else {
		fmt.Println(success)
	}
	return nil
}
