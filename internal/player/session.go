package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vutran/strum/internal/core"
	strumerrors "github.com/vutran/strum/internal/errors"
)

// positionPublishThreshold is the minimum position movement between
// published states. Smaller deltas are dropped so subscribers are not
// flooded by the engine's poll ticks.
const positionPublishThreshold = 500 * time.Millisecond

// State is one published snapshot of the session.
type State struct {
	Track     *core.Track
	Queue     core.Queue
	Transport core.TransportState
	Position  time.Duration
	Duration  time.Duration
	Volume    float64
	Shuffle   bool
	Repeat    core.RepeatMode
	Favorite  bool
}

// Listener receives session state snapshots. Listeners must not call
// back into the session; hand work off to another goroutine instead.
type Listener func(State)

// Session owns local playback: the queue, the transport state and the
// single engine handle. All methods are safe for concurrent use.
type Session struct {
	engine Engine

	mu         sync.Mutex
	handle     Handle
	generation uint64
	state      State
	favorites  map[string]bool
	listeners  map[string]Listener
	lastPub    State
	published  bool
	seeking    bool
	rng        *rand.Rand

	logFunc func(format string, args ...interface{})
}

// NewSession creates a stopped session on the given engine.
func NewSession(engine Engine) *Session {
	return &Session{
		engine: engine,
		state: State{
			Transport: core.TransportIdle,
			Volume:    1.0,
			Repeat:    core.RepeatOff,
		},
		favorites: make(map[string]bool),
		listeners: make(map[string]Listener),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetVerbose enables verbose logging.
func (s *Session) SetVerbose(verbose bool, logFunc func(format string, args ...interface{})) {
	if verbose {
		s.logFunc = logFunc
	}
}

func (s *Session) log(format string, args ...interface{}) {
	if s.logFunc != nil {
		s.logFunc(format, args...)
	}
}

// Subscribe registers a listener and returns its unsubscribe func.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	if s.state.Track != nil {
		track := *s.state.Track
		snap.Track = &track
		snap.Favorite = s.favorites[track.ID]
	}
	return snap
}

// publishLocked pushes the current state to listeners. A snapshot whose
// only change from the last published one is a position move within the
// threshold is dropped; every other change goes out.
func (s *Session) publishLocked() {
	snap := s.snapshotLocked()

	if s.published && onlySmallPositionDelta(s.lastPub, snap) {
		return
	}
	s.lastPub = snap
	s.published = true

	for _, fn := range s.listeners {
		fn(snap)
	}
}

func onlySmallPositionDelta(prev, next State) bool {
	delta := next.Position - prev.Position
	if delta < 0 {
		delta = -delta
	}
	if delta > positionPublishThreshold {
		return false
	}

	prev.Position = next.Position
	return statesEqual(prev, next)
}

func statesEqual(a, b State) bool {
	if (a.Track == nil) != (b.Track == nil) {
		return false
	}
	if a.Track != nil && !a.Track.Same(*b.Track) {
		return false
	}
	return a.Transport == b.Transport &&
		a.Position == b.Position &&
		a.Duration == b.Duration &&
		a.Volume == b.Volume &&
		a.Shuffle == b.Shuffle &&
		a.Repeat == b.Repeat &&
		a.Favorite == b.Favorite &&
		a.Queue.CurrentIndex == b.Queue.CurrentIndex &&
		a.Queue.Len() == b.Queue.Len()
}

// LoadTrack stops whatever is playing, opens the given track's stream
// and starts it. Concurrent loads are serialized by a generation
// counter: a load that is superseded before its stream opens releases
// the stream and changes nothing.
func (s *Session) LoadTrack(ctx context.Context, track core.Track) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation

	if s.handle != nil {
		s.handle.Release()
		s.handle = nil
	}

	t := track
	s.state.Track = &t
	s.state.Transport = core.TransportLoading
	s.state.Position = 0
	s.state.Duration = track.Duration
	s.publishLocked()
	s.mu.Unlock()

	s.log("[player] loading track %s (%s)", track.ID, track.Title)
	handle, err := s.engine.Open(ctx, track.StreamURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// A newer load won; this one never touches the session.
		if handle != nil {
			handle.Release()
		}
		return nil
	}

	if err != nil {
		s.log("[player] open failed for %s: %v", track.ID, err)
		s.state.Transport = core.TransportIdle
		s.publishLocked()
		return &strumerrors.PlaybackError{TrackID: track.ID, Err: err}
	}

	s.handle = handle
	if d := handle.Status().Duration; d > 0 {
		s.state.Duration = d
	}
	handle.Subscribe(func(st Status) { s.onStatus(gen, st) })

	if err := handle.Play(); err != nil {
		s.log("[player] play failed for %s: %v", track.ID, err)
		handle.Release()
		s.handle = nil
		s.state.Transport = core.TransportIdle
		s.publishLocked()
		return &strumerrors.PlaybackError{TrackID: track.ID, Err: err}
	}

	s.state.Transport = core.TransportPlaying
	s.publishLocked()
	return nil
}

// onStatus folds an engine status report into the session. Reports
// from released handles carry a stale generation and are dropped.
func (s *Session) onStatus(gen uint64, st Status) {
	s.mu.Lock()

	if gen != s.generation {
		s.mu.Unlock()
		return
	}

	if st.Finished {
		s.mu.Unlock()
		s.handleTrackEnd()
		return
	}

	if !s.seeking {
		s.state.Position = st.Position
	}
	if st.Duration > 0 {
		s.state.Duration = st.Duration
	}
	s.publishLocked()
	s.mu.Unlock()
}

// Play resumes the current track. Without a loaded track this is a
// no-op.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil || s.state.Track == nil {
		return
	}
	if err := s.handle.Play(); err != nil {
		s.log("[player] resume failed: %v", err)
		return
	}
	s.state.Transport = core.TransportPlaying
	s.publishLocked()
}

// Pause pauses the current track. Without a loaded track this is a
// no-op.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil || s.state.Track == nil {
		return
	}
	if err := s.handle.Pause(); err != nil {
		s.log("[player] pause failed: %v", err)
		return
	}
	s.state.Transport = core.TransportPaused
	s.publishLocked()
}

// TogglePlay flips between playing and paused.
func (s *Session) TogglePlay() {
	if s.State().Transport == core.TransportPlaying {
		s.Pause()
	} else {
		s.Play()
	}
}

// SeekTo moves the playhead, clamping into [0, duration]. The position
// is updated optimistically and engine position reports are ignored
// until the seek lands.
func (s *Session) SeekTo(pos time.Duration) {
	s.mu.Lock()
	if s.handle == nil || s.state.Track == nil {
		s.mu.Unlock()
		return
	}

	if pos < 0 {
		pos = 0
	}
	if d := s.state.Duration; d > 0 && pos > d {
		pos = d
	}

	s.seeking = true
	s.state.Position = pos
	s.publishLocked()
	handle := s.handle
	s.mu.Unlock()

	if err := handle.Seek(pos); err != nil {
		s.log("[player] seek failed: %v", err)
	}

	s.mu.Lock()
	s.seeking = false
	s.mu.Unlock()
}

// SetVolume sets playback volume, clamped into [0, 1].
func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.state.Volume = v
	if s.handle != nil {
		if err := s.handle.SetVolume(v); err != nil {
			s.log("[player] set volume failed: %v", err)
		}
	}
	s.publishLocked()
}

// SetQueue replaces the queue and resets the cursor to the first track
// without loading anything.
func (s *Session) SetQueue(tracks []core.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Queue = core.Queue{Tracks: tracks, CurrentIndex: 0}
	s.publishLocked()
}

// PlayFromQueue loads the queue track at index and moves the cursor.
func (s *Session) PlayFromQueue(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= s.state.Queue.Len() {
		s.mu.Unlock()
		return nil
	}
	s.state.Queue.CurrentIndex = index
	track := s.state.Queue.Tracks[index]
	s.mu.Unlock()

	return s.LoadTrack(ctx, track)
}

// PlayNext advances the queue. Shuffle picks a uniformly random queue
// index, which may land on the current track again; otherwise the
// cursor wraps past the end.
func (s *Session) PlayNext(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Queue.IsEmpty() {
		s.mu.Unlock()
		return nil
	}
	next := s.nextIndexLocked()
	s.mu.Unlock()

	return s.PlayFromQueue(ctx, next)
}

// PlayPrevious steps the queue backwards, wrapping before the start.
// Shuffle picks randomly, same as PlayNext.
func (s *Session) PlayPrevious(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Queue.IsEmpty() {
		s.mu.Unlock()
		return nil
	}
	var prev int
	if s.state.Shuffle {
		prev = s.rng.Intn(s.state.Queue.Len())
	} else {
		prev = s.state.Queue.PrevIndex()
	}
	s.mu.Unlock()

	return s.PlayFromQueue(ctx, prev)
}

func (s *Session) nextIndexLocked() int {
	if s.state.Shuffle {
		return s.rng.Intn(s.state.Queue.Len())
	}
	return s.state.Queue.NextIndex()
}

// handleTrackEnd reacts to natural end-of-stream from the engine.
func (s *Session) handleTrackEnd() {
	s.mu.Lock()

	switch s.state.Repeat {
	case core.RepeatOne:
		handle := s.handle
		s.state.Position = 0
		s.publishLocked()
		s.mu.Unlock()
		if handle != nil {
			if err := handle.Seek(0); err != nil {
				s.log("[player] repeat seek failed: %v", err)
				return
			}
			_ = handle.Play()
		}
		return

	case core.RepeatAll:
		s.mu.Unlock()
		_ = s.PlayNext(context.Background())
		return
	}

	// Repeat off: advance through the queue, stop after the last track
	// regardless of shuffle.
	if !s.state.Queue.IsEmpty() && !s.state.Queue.AtEnd() {
		s.mu.Unlock()
		_ = s.PlayNext(context.Background())
		return
	}

	s.state.Transport = core.TransportPaused
	s.state.Position = 0
	handle := s.handle
	s.publishLocked()
	s.mu.Unlock()

	if handle != nil {
		_ = handle.Seek(0)
	}
}

// ToggleFavorite flips the local favorite mark on the current track and
// returns the new value.
func (s *Session) ToggleFavorite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Track == nil {
		return false
	}
	id := s.state.Track.ID
	s.favorites[id] = !s.favorites[id]
	s.publishLocked()
	return s.favorites[id]
}

// IsFavorite reports the local favorite mark for a track ID.
func (s *Session) IsFavorite(trackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites[trackID]
}

// ToggleShuffle flips shuffle mode.
func (s *Session) ToggleShuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Shuffle = !s.state.Shuffle
	s.publishLocked()
}

// SetRepeatMode sets the repeat mode. Invalid values are ignored.
func (s *Session) SetRepeatMode(mode core.RepeatMode) {
	if !mode.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Repeat = mode
	s.publishLocked()
}

// ToggleRepeat cycles off, all, one.
func (s *Session) ToggleRepeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Repeat = s.state.Repeat.Next()
	s.publishLocked()
}

// Close releases the engine handle and resets to the empty state.
// The session can be reused after Close.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.handle != nil {
		s.handle.Release()
		s.handle = nil
	}

	volume := s.state.Volume
	s.state = State{
		Transport: core.TransportIdle,
		Volume:    volume,
		Repeat:    core.RepeatOff,
	}
	s.publishLocked()
}
