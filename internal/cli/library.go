package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/core"
	"github.com/vutran/strum/internal/spotify/client"
)

var (
	libraryLimit  int
	libraryOffset int
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Browse your library",
	Long:  `Lists your liked songs, playlists and saved albums as one library view.`,
	RunE:  runLibrary,
}

var libraryPlaylistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "List your playlists",
	RunE:  runLibraryPlaylists,
}

var libraryAlbumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List your saved albums",
	RunE:  runLibraryAlbums,
}

var libraryLikedCmd = &cobra.Command{
	Use:   "liked",
	Short: "List your liked songs",
	RunE:  runLibraryLiked,
}

var librarySaveCmd = &cobra.Command{
	Use:   "save <track-id>",
	Short: "Add a track to your liked songs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.SaveTrack(ctx, args[0])
		}, "Saved to liked songs")
	},
}

var libraryUnsaveCmd = &cobra.Command{
	Use:   "unsave <track-id>",
	Short: "Remove a track from your liked songs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(func(ctx context.Context) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.RemoveSavedTrack(ctx, args[0])
		}, "Removed from liked songs")
	},
}

var librarySavedCmd = &cobra.Command{
	Use:   "saved <track-id>...",
	Short: "Check whether tracks are in your liked songs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLibrarySaved,
}

func init() {
	libraryCmd.PersistentFlags().IntVarP(&libraryLimit, "limit", "n", 20, "max results")
	libraryCmd.PersistentFlags().IntVar(&libraryOffset, "offset", 0, "listing offset")
	libraryCmd.AddCommand(libraryPlaylistsCmd)
	libraryCmd.AddCommand(libraryAlbumsCmd)
	libraryCmd.AddCommand(libraryLikedCmd)
	libraryCmd.AddCommand(librarySaveCmd)
	libraryCmd.AddCommand(libraryUnsaveCmd)
	libraryCmd.AddCommand(librarySavedCmd)
	rootCmd.AddCommand(libraryCmd)
}

func pageOpts() client.PageOptions {
	return client.PageOptions{Limit: libraryLimit, Offset: libraryOffset}
}

// runLibrary builds the combined library view: the synthetic liked
// songs entry first, then playlists, then saved albums.
func runLibrary(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var items []core.LibraryItem

	liked, err := c.GetSavedTracks(ctx, client.PageOptions{Limit: 1})
	if err != nil {
		return err
	}
	items = append(items, core.LikedSongsItem(liked.Total))

	playlists, err := c.GetUserPlaylists(ctx, pageOpts())
	if err != nil {
		return err
	}
	for _, p := range playlists.Items {
		items = append(items, core.PlaylistItem(p.ToSummary()))
	}

	albums, err := c.GetSavedAlbums(ctx, pageOpts())
	if err != nil {
		return err
	}
	for _, a := range albums.Items {
		items = append(items, core.AlbumItem(a.Album.ToSummary()))
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(items)
		return nil
	}

	table := NewTable("TITLE", "DETAILS")
	for _, item := range items {
		table.Row(TruncateString(item.Title(), 40), item.Subtitle())
	}
	table.Flush()

	return nil
}

func runLibraryPlaylists(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := c.GetUserPlaylists(ctx, pageOpts())
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(page)
		return nil
	}

	table := NewTable("NAME", "OWNER", "TRACKS", "ID")
	for _, p := range page.Items {
		table.Row(TruncateString(p.Name, 40), p.Owner.DisplayName, humanize.Comma(int64(p.Tracks.Total)), p.ID)
	}
	table.Flush()
	fmt.Printf("%s playlists total\n", humanize.Comma(int64(page.Total)))

	return nil
}

func runLibraryAlbums(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := c.GetSavedAlbums(ctx, pageOpts())
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(page)
		return nil
	}

	table := NewTable("NAME", "ARTIST", "RELEASED", "ID")
	for _, item := range page.Items {
		artist := ""
		if len(item.Album.Artists) > 0 {
			artist = item.Album.Artists[0].Name
		}
		table.Row(TruncateString(item.Album.Name, 40), TruncateString(artist, 30), item.Album.ReleaseDate, item.Album.ID)
	}
	table.Flush()
	fmt.Printf("%s albums total\n", humanize.Comma(int64(page.Total)))

	return nil
}

func runLibraryLiked(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := c.GetSavedTracks(ctx, pageOpts())
	if err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(page)
		return nil
	}

	table := NewTable("TITLE", "ARTIST", "ALBUM", "LENGTH", "ID")
	for _, item := range page.Items {
		t := item.Track
		table.Row(
			TruncateString(t.Name, 40),
			TruncateString(t.ArtistNames(), 30),
			TruncateString(t.Album.Name, 30),
			FormatDuration(time.Duration(t.DurationMS)*time.Millisecond),
			t.ID,
		)
	}
	table.Flush()
	fmt.Printf("%s liked songs total\n", humanize.Comma(int64(page.Total)))

	return nil
}

func runLibrarySaved(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	saved, err := c.AreTracksSaved(ctx, args)
	if err != nil {
		return err
	}

	if JSONOutput() {
		out := make(map[string]bool, len(args))
		for i, id := range args {
			out[id] = saved[i]
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return nil
	}

	for i, id := range args {
		fmt.Printf("%s %s\n", StatusIcon(saved[i]), id)
	}
	return nil
}
