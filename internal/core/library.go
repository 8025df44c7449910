package core

import "fmt"

// LibraryItemKind discriminates the closed set of library entries.
type LibraryItemKind string

const (
	LibraryPlaylist   LibraryItemKind = "playlist"
	LibraryAlbum      LibraryItemKind = "album"
	LibraryArtist     LibraryItemKind = "artist"
	LibraryLikedSongs LibraryItemKind = "liked_songs"
)

// PlaylistSummary is a playlist as it appears in a library listing.
type PlaylistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
	CoverURL   string `json:"cover_url"`
}

// AlbumSummary is an album as it appears in a library listing.
type AlbumSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	TrackCount  int    `json:"track_count"`
	ReleaseDate string `json:"release_date"`
	CoverURL    string `json:"cover_url"`
}

// ArtistSummary is an artist as it appears in a library listing.
type ArtistSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Followers int    `json:"followers"`
	CoverURL  string `json:"cover_url"`
}

// LikedSongs is the synthetic "liked songs" library entry.
type LikedSongs struct {
	TrackCount int `json:"track_count"`
}

// LibraryItem is a tagged union over the kinds of entries a library
// listing can contain. Exactly one of the pointer fields is non-nil,
// matching Kind.
type LibraryItem struct {
	Kind       LibraryItemKind  `json:"kind"`
	Playlist   *PlaylistSummary `json:"playlist,omitempty"`
	Album      *AlbumSummary    `json:"album,omitempty"`
	Artist     *ArtistSummary   `json:"artist,omitempty"`
	LikedSongs *LikedSongs      `json:"liked_songs,omitempty"`
}

// PlaylistItem wraps a playlist summary as a library item.
func PlaylistItem(p PlaylistSummary) LibraryItem {
	return LibraryItem{Kind: LibraryPlaylist, Playlist: &p}
}

// AlbumItem wraps an album summary as a library item.
func AlbumItem(a AlbumSummary) LibraryItem {
	return LibraryItem{Kind: LibraryAlbum, Album: &a}
}

// ArtistItem wraps an artist summary as a library item.
func ArtistItem(a ArtistSummary) LibraryItem {
	return LibraryItem{Kind: LibraryArtist, Artist: &a}
}

// LikedSongsItem wraps the liked-songs entry as a library item.
func LikedSongsItem(count int) LibraryItem {
	return LibraryItem{Kind: LibraryLikedSongs, LikedSongs: &LikedSongs{TrackCount: count}}
}

// Title returns the display name for the item.
func (i LibraryItem) Title() string {
	switch i.Kind {
	case LibraryPlaylist:
		return i.Playlist.Name
	case LibraryAlbum:
		return i.Album.Name
	case LibraryArtist:
		return i.Artist.Name
	case LibraryLikedSongs:
		return "Liked Songs"
	}
	return ""
}

// Subtitle returns the secondary display line for the item.
func (i LibraryItem) Subtitle() string {
	switch i.Kind {
	case LibraryPlaylist:
		return fmt.Sprintf("Playlist · %s · %d tracks", i.Playlist.Owner, i.Playlist.TrackCount)
	case LibraryAlbum:
		return fmt.Sprintf("Album · %s", i.Album.Artist)
	case LibraryArtist:
		return "Artist"
	case LibraryLikedSongs:
		return fmt.Sprintf("Playlist · %d tracks", i.LikedSongs.TrackCount)
	}
	return ""
}

// CoverURL returns the artwork URL for the item, if any.
func (i LibraryItem) CoverURL() string {
	switch i.Kind {
	case LibraryPlaylist:
		return i.Playlist.CoverURL
	case LibraryAlbum:
		return i.Album.CoverURL
	case LibraryArtist:
		return i.Artist.CoverURL
	case LibraryLikedSongs:
		return ""
	}
	return ""
}
