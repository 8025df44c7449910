package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/audio"
	"github.com/vutran/strum/internal/core"
	"github.com/vutran/strum/internal/player"
	"github.com/vutran/strum/internal/spotify/client"
)

var (
	listenPlaylist string
	listenAlbum    string
	listenLiked    bool
	listenShuffle  bool
	listenLimit    int
)

var listenCmd = &cobra.Command{
	Use:   "listen [query]",
	Short: "Play track previews locally",
	Long: `Streams 30-second track previews through the local speakers.
Queues search results by default, or a playlist, album or your liked
songs. Tracks without preview audio are skipped.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenPlaylist, "playlist", "", "queue a playlist by ID")
	listenCmd.Flags().StringVar(&listenAlbum, "album", "", "queue an album by ID")
	listenCmd.Flags().BoolVar(&listenLiked, "liked", false, "queue your liked songs")
	listenCmd.Flags().BoolVar(&listenShuffle, "shuffle", false, "shuffle the queue")
	listenCmd.Flags().IntVarP(&listenLimit, "limit", "n", 25, "max tracks to queue")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracks, err := listenQueue(ctx, c, args)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no playable tracks: none of the results carry preview audio")
	}

	cfg := Config()

	session := player.NewSession(audio.NewEngine())
	defer session.Close()

	session.SetVolume(float64(cfg.Playback.Volume) / 100.0)
	if mode := core.RepeatMode(cfg.Playback.Repeat); mode.Valid() {
		session.SetRepeatMode(mode)
	}
	if listenShuffle || cfg.Playback.Shuffle {
		session.ToggleShuffle()
	}
	session.SetQueue(tracks)

	done := make(chan struct{}, 1)
	var lastTrack string
	unsubscribe := session.Subscribe(func(st player.State) {
		if st.Track != nil && st.Track.ID != lastTrack {
			lastTrack = st.Track.ID
			fmt.Printf("▶  %s - %s (%s)\n", st.Track.Artist, st.Track.Title, FormatDuration(st.Track.Duration))
		}
		// Queue exhausted under repeat-off: the session parks paused
		// at position zero on the final track.
		if st.Transport == core.TransportPaused && st.Position == 0 && st.Queue.AtEnd() && st.Repeat == core.RepeatOff {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	fmt.Printf("Queued %d tracks. Press Ctrl+C to stop.\n", len(tracks))
	if err := session.PlayFromQueue(ctx, 0); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		fmt.Println("\nStopping playback.")
	case <-done:
		fmt.Println("End of queue.")
	}
	return nil
}

// listenQueue resolves the source flags into a playable track list.
func listenQueue(ctx context.Context, c *client.Client, args []string) ([]core.Track, error) {
	opts := client.PageOptions{Limit: listenLimit}

	switch {
	case listenPlaylist != "":
		page, err := c.GetPlaylistTracks(ctx, listenPlaylist, opts)
		if err != nil {
			return nil, err
		}
		var tracks []client.Track
		for _, item := range page.Items {
			if item.Track != nil {
				tracks = append(tracks, *item.Track)
			}
		}
		return client.TracksToCore(tracks), nil

	case listenAlbum != "":
		page, err := c.GetAlbumTracks(ctx, listenAlbum, opts)
		if err != nil {
			return nil, err
		}
		return client.TracksToCore(page.Items), nil

	case listenLiked:
		page, err := c.GetSavedTracks(ctx, opts)
		if err != nil {
			return nil, err
		}
		var tracks []client.Track
		for _, item := range page.Items {
			tracks = append(tracks, item.Track)
		}
		return client.TracksToCore(tracks), nil

	default:
		query := strings.Join(args, " ")
		if query == "" {
			return nil, fmt.Errorf("nothing to play: give a search query or one of --playlist, --album, --liked")
		}
		res, err := c.Search(ctx, client.SearchOptions{
			Query: query,
			Types: []client.SearchType{client.SearchTypeTrack},
			Limit: listenLimit,
		})
		if err != nil {
			return nil, err
		}
		if res.Tracks == nil {
			return nil, nil
		}
		return client.TracksToCore(res.Tracks.Items), nil
	}
}
