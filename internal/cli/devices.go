package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available playback devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	devices, err := c.GetDevices(ctx)
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(devices)
		return nil
	}

	if len(devices) == 0 {
		fmt.Println("No devices found. Open the Spotify app on a device first.")
		return nil
	}

	table := NewTable("", "NAME", "TYPE", "ID", "VOLUME")
	for _, d := range devices {
		volume := "-"
		if d.VolumePercent != nil {
			volume = fmt.Sprintf("%d%%", *d.VolumePercent)
		}
		table.Row(StatusIcon(d.IsActive), d.Name, d.Type, d.ID, volume)
	}
	table.Flush()

	return nil
}
