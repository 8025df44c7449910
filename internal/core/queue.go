package core

// Queue is an ordered play queue with a cursor identifying the active
// track. CurrentIndex is meaningful only while the queue is non-empty.
type Queue struct {
	Tracks       []Track `json:"tracks"`
	CurrentIndex int     `json:"current_index"`
}

// Current returns the track under the cursor, or nil if the queue is
// empty or the cursor is out of range.
func (q *Queue) Current() *Track {
	if q == nil || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Tracks) {
		return nil
	}
	return &q.Tracks[q.CurrentIndex]
}

// Upcoming returns the tracks after the cursor.
func (q *Queue) Upcoming() []Track {
	if q == nil || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Tracks)-1 {
		return nil
	}
	return q.Tracks[q.CurrentIndex+1:]
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Tracks)
}

// IsEmpty reports whether the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// NextIndex returns the cursor advanced by one, wrapping at the end.
func (q *Queue) NextIndex() int {
	if q.IsEmpty() {
		return 0
	}
	return (q.CurrentIndex + 1) % len(q.Tracks)
}

// PrevIndex returns the cursor moved back by one, wrapping at the front.
func (q *Queue) PrevIndex() int {
	if q.IsEmpty() {
		return 0
	}
	return (q.CurrentIndex - 1 + len(q.Tracks)) % len(q.Tracks)
}

// AtEnd reports whether the cursor sits on the last track.
func (q *Queue) AtEnd() bool {
	return !q.IsEmpty() && q.CurrentIndex == len(q.Tracks)-1
}
