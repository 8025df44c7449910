package client

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/vutran/strum/internal/core"
)

// User represents a Spotify user profile.
type User struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	Email        string       `json:"email"`
	Country      string       `json:"country"`
	Product      string       `json:"product"`
	URI          string       `json:"uri"`
	Images       []Image      `json:"images"`
	Followers    Followers    `json:"followers"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Followers represents follower information.
type Followers struct {
	Total int `json:"total"`
}

// ExternalURLs contains external URLs for a resource.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Device represents a Spotify playback device.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent *int   `json:"volume_percent"` // Nullable
}

// DevicesResponse is the response from the devices endpoint.
type DevicesResponse struct {
	Devices []Device `json:"devices"`
}

// PlaybackState represents the remote playback state.
type PlaybackState struct {
	Device       Device `json:"device"`
	ShuffleState bool   `json:"shuffle_state"`
	RepeatState  string `json:"repeat_state"` // off, track, context
	ProgressMS   int    `json:"progress_ms"`
	IsPlaying    bool   `json:"is_playing"`
	Item         *Track `json:"item"`
}

// Track represents a Spotify track.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URI          string       `json:"uri"`
	DurationMS   int          `json:"duration_ms"`
	Explicit     bool         `json:"explicit"`
	PreviewURL   string       `json:"preview_url"`
	TrackNumber  int          `json:"track_number"`
	Popularity   int          `json:"popularity"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URI          string       `json:"uri"`
	Genres       []string     `json:"genres"`
	Images       []Image      `json:"images"`
	Followers    Followers    `json:"followers"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Album represents a Spotify album.
type Album struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URI          string       `json:"uri"`
	AlbumType    string       `json:"album_type"`
	TotalTracks  int          `json:"total_tracks"`
	ReleaseDate  string       `json:"release_date"`
	Images       []Image      `json:"images"`
	Artists      []Artist     `json:"artists"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	URI           string       `json:"uri"`
	Description   string       `json:"description"`
	Public        bool         `json:"public"`
	Collaborative bool         `json:"collaborative"`
	Images        []Image      `json:"images"`
	Owner         User         `json:"owner"`
	ExternalURLs  ExternalURLs `json:"external_urls"`
	Tracks        struct {
		Total int    `json:"total"`
		Href  string `json:"href"`
	} `json:"tracks"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items  []T    `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Next   string `json:"next"`
}

// PlaylistTrackItem wraps a track inside a playlist listing.
type PlaylistTrackItem struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"` // Nullable for removed tracks
}

// SavedTrackItem wraps a track inside the saved-tracks listing.
type SavedTrackItem struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// SavedAlbumItem wraps an album inside the saved-albums listing.
type SavedAlbumItem struct {
	AddedAt string `json:"added_at"`
	Album   Album  `json:"album"`
}

// PlayHistoryItem is one entry in the recently-played listing.
type PlayHistoryItem struct {
	Track    Track  `json:"track"`
	PlayedAt string `json:"played_at"`
}

// SearchResponse represents the response from a search query.
type SearchResponse struct {
	Tracks    *Page[Track]    `json:"tracks"`
	Artists   *Page[Artist]   `json:"artists"`
	Albums    *Page[Album]    `json:"albums"`
	Playlists *Page[Playlist] `json:"playlists"`
}

// ArtistNames joins a track's artist names for display.
func (t Track) ArtistNames() string {
	return strings.Join(lo.Map(t.Artists, func(a Artist, _ int) string { return a.Name }), ", ")
}

// CoverURL returns the first album image, or "".
func (t Track) CoverURL() string {
	if len(t.Album.Images) > 0 {
		return t.Album.Images[0].URL
	}
	return ""
}

// ToCore converts a wire track to the playback domain type.
func (t Track) ToCore() core.Track {
	return core.Track{
		ID:        t.ID,
		Title:     t.Name,
		Artist:    t.ArtistNames(),
		Album:     t.Album.Name,
		CoverURL:  t.CoverURL(),
		StreamURL: t.PreviewURL,
		Duration:  time.Duration(t.DurationMS) * time.Millisecond,
	}
}

// TracksToCore converts a slice of wire tracks, dropping unplayable
// entries with no stream URL.
func TracksToCore(tracks []Track) []core.Track {
	playable := lo.Filter(tracks, func(t Track, _ int) bool { return t.PreviewURL != "" })
	return lo.Map(playable, func(t Track, _ int) core.Track { return t.ToCore() })
}

// ToSummary converts a wire playlist to the library summary type.
func (p Playlist) ToSummary() core.PlaylistSummary {
	cover := ""
	if len(p.Images) > 0 {
		cover = p.Images[0].URL
	}
	return core.PlaylistSummary{
		ID:         p.ID,
		Name:       p.Name,
		Owner:      p.Owner.DisplayName,
		CoverURL:   cover,
		TrackCount: p.Tracks.Total,
	}
}

// ToSummary converts a wire album to the library summary type.
func (a Album) ToSummary() core.AlbumSummary {
	cover := ""
	if len(a.Images) > 0 {
		cover = a.Images[0].URL
	}
	artist := ""
	if len(a.Artists) > 0 {
		artist = a.Artists[0].Name
	}
	return core.AlbumSummary{
		ID:          a.ID,
		Name:        a.Name,
		Artist:      artist,
		CoverURL:    cover,
		TrackCount:  a.TotalTracks,
		ReleaseDate: a.ReleaseDate,
	}
}

// ToSummary converts a wire artist to the library summary type.
func (a Artist) ToSummary() core.ArtistSummary {
	cover := ""
	if len(a.Images) > 0 {
		cover = a.Images[0].URL
	}
	return core.ArtistSummary{
		ID:        a.ID,
		Name:      a.Name,
		CoverURL:  cover,
		Followers: a.Followers.Total,
	}
}
