package cli

import (
	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive player",
	Long: `Opens a full-screen terminal player. Search for tracks, queue
them and play previews locally without leaving the terminal.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}
	return tui.Run(c, Config())
}
