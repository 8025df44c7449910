package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vutran/strum/internal/spotify/auth"
)

// PageOptions sets limit/offset for paginated listings. Zero values
// leave the server defaults in place.
type PageOptions struct {
	Limit  int
	Offset int
}

func (o PageOptions) params() map[string]string {
	params := make(map[string]string)
	if o.Limit > 0 {
		params["limit"] = strconv.Itoa(o.Limit)
	}
	if o.Offset > 0 {
		params["offset"] = strconv.Itoa(o.Offset)
	}
	return params
}

// GetCurrentUser returns the current user's profile. A cached copy is
// served on fetch failure so the profile survives offline starts; a
// successful fetch refreshes the cache.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	err := c.Get(ctx, "/me", &user)
	if err == nil {
		if raw, merr := json.Marshal(&user); merr == nil {
			_ = c.cache.Set(auth.KeyUserProfile, string(raw))
		}
		return &user, nil
	}

	if raw, ok, cerr := c.cache.Get(auth.KeyUserProfile); cerr == nil && ok {
		var cached User
		if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
			c.log("[spotify] serving cached user profile after fetch failure: %v", err)
			return &cached, nil
		}
	}
	return nil, err
}

// GetUserPlaylists returns a page of the current user's playlists.
func (c *Client) GetUserPlaylists(ctx context.Context, opts PageOptions) (*Page[Playlist], error) {
	var page Page[Playlist]
	if err := c.Get(ctx, BuildURL("/me/playlists", opts.params()), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPlaylistTracks returns a page of tracks in a playlist. Entries
// with a nil track (removed content) are kept in the wire page; use
// TracksToCore on the extracted tracks for playable conversion.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string, opts PageOptions) (*Page[PlaylistTrackItem], error) {
	var page Page[PlaylistTrackItem]
	path := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := c.Get(ctx, BuildURL(path, opts.params()), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAlbumTracks returns a page of tracks on an album. Album listings
// omit the album object on each track, so it is filled back in.
func (c *Client) GetAlbumTracks(ctx context.Context, albumID string, opts PageOptions) (*Page[Track], error) {
	var album Album
	if err := c.Get(ctx, "/albums/"+albumID, &album); err != nil {
		return nil, err
	}

	var page Page[Track]
	path := fmt.Sprintf("/albums/%s/tracks", albumID)
	if err := c.Get(ctx, BuildURL(path, opts.params()), &page); err != nil {
		return nil, err
	}
	for i := range page.Items {
		page.Items[i].Album = album
	}
	return &page, nil
}

// GetArtistTopTracks returns an artist's top tracks.
func (c *Client) GetArtistTopTracks(ctx context.Context, artistID string) ([]Track, error) {
	var resp struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.Get(ctx, fmt.Sprintf("/artists/%s/top-tracks", artistID), &resp); err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

// SearchType represents a type of Spotify content to search.
type SearchType string

const (
	SearchTypeTrack    SearchType = "track"
	SearchTypeArtist   SearchType = "artist"
	SearchTypeAlbum    SearchType = "album"
	SearchTypePlaylist SearchType = "playlist"
)

// SearchOptions configures a search query.
type SearchOptions struct {
	Query  string
	Types  []SearchType
	Limit  int
	Offset int
}

// Search performs a search query across the requested content types.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*SearchResponse, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	types := make([]string, len(opts.Types))
	for i, t := range opts.Types {
		types[i] = string(t)
	}
	if len(types) == 0 {
		types = []string{"track"}
	}

	params := map[string]string{
		"q":    opts.Query,
		"type": strings.Join(types, ","),
	}
	if opts.Limit > 0 {
		params["limit"] = strconv.Itoa(opts.Limit)
	}
	if opts.Offset > 0 {
		params["offset"] = strconv.Itoa(opts.Offset)
	}

	var resp SearchResponse
	if err := c.Get(ctx, BuildURL("/search", params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSavedTracks returns a page of the user's saved (liked) tracks.
func (c *Client) GetSavedTracks(ctx context.Context, opts PageOptions) (*Page[SavedTrackItem], error) {
	var page Page[SavedTrackItem]
	if err := c.Get(ctx, BuildURL("/me/tracks", opts.params()), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SaveTrack adds a track to the user's saved tracks.
func (c *Client) SaveTrack(ctx context.Context, trackID string) error {
	return c.Put(ctx, BuildURL("/me/tracks", map[string]string{"ids": trackID}), nil, nil)
}

// RemoveSavedTrack removes a track from the user's saved tracks.
func (c *Client) RemoveSavedTrack(ctx context.Context, trackID string) error {
	return c.Delete(ctx, BuildURL("/me/tracks", map[string]string{"ids": trackID}), nil)
}

// AreTracksSaved reports, per input ID, whether the track is saved.
func (c *Client) AreTracksSaved(ctx context.Context, trackIDs []string) ([]bool, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}
	var saved []bool
	path := BuildURL("/me/tracks/contains", map[string]string{"ids": strings.Join(trackIDs, ",")})
	if err := c.Get(ctx, path, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetSavedAlbums returns a page of the user's saved albums.
func (c *Client) GetSavedAlbums(ctx context.Context, opts PageOptions) (*Page[SavedAlbumItem], error) {
	var page Page[SavedAlbumItem]
	if err := c.Get(ctx, BuildURL("/me/albums", opts.params()), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TimeRange selects the window for top-item listings.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"
	TimeRangeMedium TimeRange = "medium_term"
	TimeRangeLong   TimeRange = "long_term"
)

// GetTopTracks returns the user's top tracks for the given range.
func (c *Client) GetTopTracks(ctx context.Context, timeRange TimeRange, opts PageOptions) (*Page[Track], error) {
	params := opts.params()
	if timeRange != "" {
		params["time_range"] = string(timeRange)
	}
	var page Page[Track]
	if err := c.Get(ctx, BuildURL("/me/top/tracks", params), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTopArtists returns the user's top artists for the given range.
func (c *Client) GetTopArtists(ctx context.Context, timeRange TimeRange, opts PageOptions) (*Page[Artist], error) {
	params := opts.params()
	if timeRange != "" {
		params["time_range"] = string(timeRange)
	}
	var page Page[Artist]
	if err := c.Get(ctx, BuildURL("/me/top/artists", params), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRecentlyPlayed returns the user's recently played tracks.
func (c *Client) GetRecentlyPlayed(ctx context.Context, limit int) ([]PlayHistoryItem, error) {
	params := make(map[string]string)
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var page Page[PlayHistoryItem]
	if err := c.Get(ctx, BuildURL("/me/player/recently-played", params), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}
