package core

import "time"

// Track represents a playable audio track. Tracks are immutable value
// objects; two tracks are the same track iff their IDs match.
type Track struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	Album     string        `json:"album"`
	CoverURL  string        `json:"cover_url"`
	StreamURL string        `json:"stream_url"`
	Duration  time.Duration `json:"duration"`
}

// Same reports whether both tracks refer to the same catalog entry.
func (t Track) Same(other Track) bool {
	return t.ID != "" && t.ID == other.ID
}
