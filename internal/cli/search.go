package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/spotify/client"
)

var (
	searchTypes []string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tracks, albums, artists and playlists",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", []string{"track"}, "content types: track, album, artist, playlist")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results per type")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	types := make([]client.SearchType, 0, len(searchTypes))
	for _, t := range searchTypes {
		switch t {
		case "track", "album", "artist", "playlist":
			types = append(types, client.SearchType(t))
		default:
			return fmt.Errorf("invalid search type: %s", t)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := c.Search(ctx, client.SearchOptions{
		Query: strings.Join(args, " "),
		Types: types,
		Limit: searchLimit,
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(resp)
		return nil
	}

	if resp.Tracks != nil && len(resp.Tracks.Items) > 0 {
		fmt.Println("Tracks:")
		table := NewTable("  #", "TITLE", "ARTIST", "ALBUM", "LENGTH", "ID")
		for i, t := range resp.Tracks.Items {
			table.Row(
				fmt.Sprintf("  %d", i+1),
				TruncateString(t.Name, 40),
				TruncateString(t.ArtistNames(), 30),
				TruncateString(t.Album.Name, 30),
				FormatDuration(time.Duration(t.DurationMS)*time.Millisecond),
				t.ID,
			)
		}
		table.Flush()
	}

	if resp.Albums != nil && len(resp.Albums.Items) > 0 {
		fmt.Println("Albums:")
		table := NewTable("  #", "NAME", "ARTIST", "RELEASED", "ID")
		for i, a := range resp.Albums.Items {
			artist := ""
			if len(a.Artists) > 0 {
				artist = a.Artists[0].Name
			}
			table.Row(fmt.Sprintf("  %d", i+1), TruncateString(a.Name, 40), TruncateString(artist, 30), a.ReleaseDate, a.ID)
		}
		table.Flush()
	}

	if resp.Artists != nil && len(resp.Artists.Items) > 0 {
		fmt.Println("Artists:")
		table := NewTable("  #", "NAME", "ID")
		for i, a := range resp.Artists.Items {
			table.Row(fmt.Sprintf("  %d", i+1), TruncateString(a.Name, 40), a.ID)
		}
		table.Flush()
	}

	if resp.Playlists != nil && len(resp.Playlists.Items) > 0 {
		fmt.Println("Playlists:")
		table := NewTable("  #", "NAME", "OWNER", "TRACKS", "ID")
		for i, p := range resp.Playlists.Items {
			table.Row(fmt.Sprintf("  %d", i+1), TruncateString(p.Name, 40), p.Owner.DisplayName, fmt.Sprintf("%d", p.Tracks.Total), p.ID)
		}
		table.Flush()
	}

	return nil
}
