package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/spotify/client"
)

var topRange string

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show your top tracks and artists",
}

var topTracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Show your most played tracks",
	RunE:  runTopTracks,
}

var topArtistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "Show your most played artists",
	RunE:  runTopArtists,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recently played tracks",
	RunE:  runRecent,
}

func init() {
	topCmd.PersistentFlags().StringVarP(&topRange, "range", "r", "medium", "time range (short, medium, long)")
	topCmd.AddCommand(topTracksCmd)
	topCmd.AddCommand(topArtistsCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(recentCmd)
}

func timeRange() (client.TimeRange, error) {
	switch topRange {
	case "short":
		return client.TimeRangeShort, nil
	case "medium":
		return client.TimeRangeMedium, nil
	case "long":
		return client.TimeRangeLong, nil
	}
	return "", fmt.Errorf("invalid range %q: must be short, medium or long", topRange)
}

func runTopTracks(cmd *cobra.Command, args []string) error {
	rng, err := timeRange()
	if err != nil {
		return err
	}

	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := c.GetTopTracks(ctx, rng, client.PageOptions{Limit: 20})
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(page)
		return nil
	}

	table := NewTable("#", "TITLE", "ARTIST", "ALBUM")
	for i, t := range page.Items {
		table.Row(
			fmt.Sprintf("%d", i+1),
			TruncateString(t.Name, 40),
			TruncateString(t.ArtistNames(), 30),
			TruncateString(t.Album.Name, 30),
		)
	}
	table.Flush()

	return nil
}

func runTopArtists(cmd *cobra.Command, args []string) error {
	rng, err := timeRange()
	if err != nil {
		return err
	}

	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := c.GetTopArtists(ctx, rng, client.PageOptions{Limit: 20})
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(page)
		return nil
	}

	table := NewTable("#", "NAME", "FOLLOWERS")
	for i, a := range page.Items {
		table.Row(fmt.Sprintf("%d", i+1), TruncateString(a.Name, 40), humanize.Comma(int64(a.Followers.Total)))
	}
	table.Flush()

	return nil
}

func runRecent(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items, err := c.GetRecentlyPlayed(ctx, 20)
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(items)
		return nil
	}

	table := NewTable("PLAYED", "TITLE", "ARTIST")
	for _, item := range items {
		played := item.PlayedAt
		if ts, perr := time.Parse(time.RFC3339, item.PlayedAt); perr == nil {
			played = humanize.Time(ts)
		}
		table.Row(
			played,
			TruncateString(item.Track.Name, 40),
			TruncateString(item.Track.ArtistNames(), 30),
		)
	}
	table.Flush()

	return nil
}
