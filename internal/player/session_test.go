package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vutran/strum/internal/core"
	strumerrors "github.com/vutran/strum/internal/errors"
)

type fakeHandle struct {
	mu       sync.Mutex
	fn       StatusFunc
	url      string
	dur      time.Duration
	playing  bool
	released bool
	plays    int
	pauses   int
	seeks    []time.Duration
	volumes  []float64
	playErr  error
	onSeek   func(h *fakeHandle)
}

func (h *fakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playErr != nil {
		return h.playErr
	}
	h.playing = true
	h.plays++
	return nil
}

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	h.pauses++
	return nil
}

func (h *fakeHandle) Seek(pos time.Duration) error {
	h.mu.Lock()
	h.seeks = append(h.seeks, pos)
	hook := h.onSeek
	h.mu.Unlock()
	if hook != nil {
		hook(h)
	}
	return nil
}

func (h *fakeHandle) SetVolume(v float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volumes = append(h.volumes, v)
	return nil
}

func (h *fakeHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{Duration: h.dur, Playing: h.playing}
}

func (h *fakeHandle) Subscribe(fn StatusFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fn = fn
}

// emit pushes a status report the way the real engine's poll goroutine
// would.
func (h *fakeHandle) emit(st Status) {
	h.mu.Lock()
	fn := h.fn
	h.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func (h *fakeHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.playing = false
}

func (h *fakeHandle) isReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

type fakeEngine struct {
	mu      sync.Mutex
	handles []*fakeHandle
	opens   int
	dur     time.Duration
	openErr error

	// gates, when set, block Open per stream URL until the gate closes.
	// started observes the order in which opens begin.
	gates   map[string]chan struct{}
	started chan string
}

func (e *fakeEngine) Open(ctx context.Context, streamURL string) (Handle, error) {
	e.mu.Lock()
	gate := e.gates[streamURL]
	started := e.started
	e.mu.Unlock()

	if started != nil {
		started <- streamURL
	}
	if gate != nil {
		<-gate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens++
	if e.openErr != nil {
		return nil, e.openErr
	}
	h := &fakeHandle{url: streamURL, dur: e.dur}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) openCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

func (e *fakeEngine) handle(i int) *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[i]
}

func testTrack(id string) core.Track {
	return core.Track{
		ID:        id,
		Title:     "Track " + id,
		Artist:    "Artist",
		StreamURL: "https://cdn.example/" + id + ".mp3",
		Duration:  3 * time.Minute,
	}
}

func TestLoadTrackStartsPlayback(t *testing.T) {
	engine := &fakeEngine{dur: 2 * time.Minute}
	s := NewSession(engine)

	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	state := s.State()
	if state.Transport != core.TransportPlaying {
		t.Errorf("Transport = %s, want playing", state.Transport)
	}
	if state.Track == nil || state.Track.ID != "t1" {
		t.Errorf("Track = %+v", state.Track)
	}
	if state.Position != 0 {
		t.Errorf("Position = %v, want 0", state.Position)
	}
	// Engine metadata wins over track metadata.
	if state.Duration != 2*time.Minute {
		t.Errorf("Duration = %v, want 2m", state.Duration)
	}
	if engine.handle(0).plays != 1 {
		t.Errorf("plays = %d, want 1", engine.handle(0).plays)
	}
}

func TestLoadTrackDurationFallsBackToTrack(t *testing.T) {
	engine := &fakeEngine{} // engine reports no duration
	s := NewSession(engine)

	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}
	if got := s.State().Duration; got != 3*time.Minute {
		t.Errorf("Duration = %v, want track metadata 3m", got)
	}
}

// Loading B while A's stream is still opening abandons A entirely: its
// handle is released on arrival and the session belongs to B.
func TestLoadTrackSuperseded(t *testing.T) {
	a, b := testTrack("a"), testTrack("b")
	gateA := make(chan struct{})
	gateB := make(chan struct{})
	engine := &fakeEngine{
		dur: time.Minute,
		gates: map[string]chan struct{}{
			a.StreamURL: gateA,
			b.StreamURL: gateB,
		},
		started: make(chan string, 2),
	}
	s := NewSession(engine)

	done := make(chan error, 2)
	go func() { done <- s.LoadTrack(context.Background(), a) }()
	if url := <-engine.started; url != a.StreamURL {
		t.Fatalf("first open = %q", url)
	}

	go func() { done <- s.LoadTrack(context.Background(), b) }()
	if url := <-engine.started; url != b.StreamURL {
		t.Fatalf("second open = %q", url)
	}

	// A's open finishes late; it must not disturb B's load.
	close(gateA)
	if err := <-done; err != nil {
		t.Fatalf("superseded load errored: %v", err)
	}
	close(gateB)
	if err := <-done; err != nil {
		t.Fatalf("winning load errored: %v", err)
	}

	state := s.State()
	if state.Track == nil || state.Track.ID != "b" {
		t.Fatalf("Track = %+v, want b", state.Track)
	}
	if state.Transport != core.TransportPlaying {
		t.Errorf("Transport = %s, want playing", state.Transport)
	}

	handleA := engine.handle(0)
	handleB := engine.handle(1)
	if !handleA.isReleased() {
		t.Error("superseded handle was not released")
	}
	if handleA.plays != 0 {
		t.Error("superseded handle was played")
	}
	if handleB.isReleased() || handleB.plays != 1 {
		t.Errorf("winning handle: released=%v plays=%d", handleB.isReleased(), handleB.plays)
	}
}

func TestLoadTrackOpenFailure(t *testing.T) {
	engine := &fakeEngine{openErr: errors.New("decode failed")}
	s := NewSession(engine)

	err := s.LoadTrack(context.Background(), testTrack("t1"))
	var playbackErr *strumerrors.PlaybackError
	if !errors.As(err, &playbackErr) {
		t.Fatalf("LoadTrack() error = %v, want *PlaybackError", err)
	}
	if playbackErr.TrackID != "t1" {
		t.Errorf("TrackID = %q", playbackErr.TrackID)
	}

	state := s.State()
	if state.Transport != core.TransportIdle {
		t.Errorf("Transport = %s, want idle after open failure", state.Transport)
	}
	// The failed track stays selected so the UI can show what failed.
	if state.Track == nil || state.Track.ID != "t1" {
		t.Errorf("Track = %+v, want t1 kept", state.Track)
	}
}

func TestPlayPauseWithoutTrack(t *testing.T) {
	s := NewSession(&fakeEngine{})

	var publishes int
	unsub := s.Subscribe(func(State) { publishes++ })
	defer unsub()

	s.Play()
	s.Pause()
	s.TogglePlay()

	if got := s.State().Transport; got != core.TransportIdle {
		t.Errorf("Transport = %s, want idle", got)
	}
	if publishes != 0 {
		t.Errorf("publishes = %d, want 0 for no-ops", publishes)
	}
}

func TestPauseAndResume(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}

	s.Pause()
	if got := s.State().Transport; got != core.TransportPaused {
		t.Fatalf("Transport = %s, want paused", got)
	}
	s.Play()
	if got := s.State().Transport; got != core.TransportPlaying {
		t.Fatalf("Transport = %s, want playing", got)
	}

	h := engine.handle(0)
	if h.pauses != 1 || h.plays != 2 {
		t.Errorf("pauses = %d plays = %d", h.pauses, h.plays)
	}
}

func TestSeekClampsAndSuspendsPoll(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}
	h := engine.handle(0)

	// A stale poll report arriving mid-seek must not clobber the
	// optimistic position.
	h.onSeek = func(h *fakeHandle) {
		h.emit(Status{Position: 5 * time.Second, Duration: time.Minute})
	}

	s.SeekTo(90 * time.Second) // past the end
	if got := s.State().Position; got != time.Minute {
		t.Errorf("Position = %v, want clamped to 1m", got)
	}
	if len(h.seeks) != 1 || h.seeks[0] != time.Minute {
		t.Errorf("seeks = %v", h.seeks)
	}

	h.onSeek = nil
	s.SeekTo(-10 * time.Second)
	if got := s.State().Position; got != 0 {
		t.Errorf("Position = %v, want clamped to 0", got)
	}
}

func TestSeekWithoutTrack(t *testing.T) {
	s := NewSession(&fakeEngine{})
	s.SeekTo(10 * time.Second) // must not panic
	if got := s.State().Position; got != 0 {
		t.Errorf("Position = %v", got)
	}
}

func TestSetQueueResetsCursorWithoutLoading(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSession(engine)

	s.SetQueue([]core.Track{testTrack("a"), testTrack("b"), testTrack("c")})

	state := s.State()
	if state.Queue.CurrentIndex != 0 || state.Queue.Len() != 3 {
		t.Errorf("queue = %+v", state.Queue)
	}
	if engine.openCount() != 0 {
		t.Errorf("opens = %d, want 0", engine.openCount())
	}
	if state.Transport != core.TransportIdle {
		t.Errorf("Transport = %s, want idle", state.Transport)
	}
}

func TestQueueWrapsBothWays(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetQueue([]core.Track{testTrack("a"), testTrack("b"), testTrack("c")})
	ctx := context.Background()

	if err := s.PlayFromQueue(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.PlayNext(ctx); err != nil {
		t.Fatal(err)
	}
	state := s.State()
	if state.Queue.CurrentIndex != 0 || state.Track.ID != "a" {
		t.Errorf("after wrap forward: index=%d track=%s", state.Queue.CurrentIndex, state.Track.ID)
	}

	if err := s.PlayPrevious(ctx); err != nil {
		t.Fatal(err)
	}
	state = s.State()
	if state.Queue.CurrentIndex != 2 || state.Track.ID != "c" {
		t.Errorf("after wrap backward: index=%d track=%s", state.Queue.CurrentIndex, state.Track.ID)
	}
}

func TestPlayNextEmptyQueue(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSession(engine)
	if err := s.PlayNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if engine.openCount() != 0 {
		t.Errorf("opens = %d, want 0", engine.openCount())
	}
}

func TestShuffleStaysInRange(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetQueue([]core.Track{testTrack("a"), testTrack("b"), testTrack("c")})
	s.ToggleShuffle()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := s.PlayNext(ctx); err != nil {
			t.Fatal(err)
		}
		idx := s.State().Queue.CurrentIndex
		if idx < 0 || idx > 2 {
			t.Fatalf("shuffle picked out-of-range index %d", idx)
		}
	}
}

func TestRepeatOneRestartsSameTrack(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetRepeatMode(core.RepeatOne)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}
	h := engine.handle(0)

	h.emit(Status{Finished: true})

	if engine.openCount() != 1 {
		t.Errorf("opens = %d, want 1 (same handle reused)", engine.openCount())
	}
	if len(h.seeks) != 1 || h.seeks[0] != 0 {
		t.Errorf("seeks = %v, want [0]", h.seeks)
	}
	if h.plays != 2 {
		t.Errorf("plays = %d, want 2", h.plays)
	}
	state := s.State()
	if state.Position != 0 || state.Transport != core.TransportPlaying {
		t.Errorf("state = pos %v transport %s", state.Position, state.Transport)
	}
}

func TestRepeatAllAdvancesPastEnd(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetQueue([]core.Track{testTrack("a"), testTrack("b")})
	s.SetRepeatMode(core.RepeatAll)
	ctx := context.Background()

	if err := s.PlayFromQueue(ctx, 1); err != nil {
		t.Fatal(err)
	}
	engine.handle(0).emit(Status{Finished: true})

	state := s.State()
	if state.Queue.CurrentIndex != 0 || state.Track.ID != "a" {
		t.Errorf("after end: index=%d track=%v", state.Queue.CurrentIndex, state.Track)
	}
	if state.Transport != core.TransportPlaying {
		t.Errorf("Transport = %s, want playing", state.Transport)
	}
}

func TestRepeatOffAdvancesMidQueue(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetQueue([]core.Track{testTrack("a"), testTrack("b")})
	ctx := context.Background()

	if err := s.PlayFromQueue(ctx, 0); err != nil {
		t.Fatal(err)
	}
	engine.handle(0).emit(Status{Finished: true})

	state := s.State()
	if state.Queue.CurrentIndex != 1 || state.Track.ID != "b" {
		t.Errorf("after end: index=%d track=%v", state.Queue.CurrentIndex, state.Track)
	}
}

func TestRepeatOffStopsAtQueueEnd(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetQueue([]core.Track{testTrack("a"), testTrack("b")})
	ctx := context.Background()

	if err := s.PlayFromQueue(ctx, 1); err != nil {
		t.Fatal(err)
	}
	engine.handle(0).emit(Status{Finished: true})

	state := s.State()
	if state.Transport != core.TransportPaused {
		t.Errorf("Transport = %s, want paused at queue end", state.Transport)
	}
	if state.Position != 0 {
		t.Errorf("Position = %v, want 0", state.Position)
	}
	if state.Track == nil || state.Track.ID != "b" {
		t.Errorf("Track = %+v, want b kept", state.Track)
	}
	if engine.openCount() != 1 {
		t.Errorf("opens = %d, want 1 (no extra load)", engine.openCount())
	}
}

// Shuffle does not override the end-of-queue stop when repeat is off.
func TestRepeatOffStopsAtQueueEndWithShuffle(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetQueue([]core.Track{testTrack("a"), testTrack("b"), testTrack("c")})
	s.ToggleShuffle()
	ctx := context.Background()

	if err := s.PlayFromQueue(ctx, 2); err != nil {
		t.Fatal(err)
	}
	engine.handle(0).emit(Status{Finished: true})

	state := s.State()
	if state.Transport != core.TransportPaused {
		t.Errorf("Transport = %s, want paused at queue end", state.Transport)
	}
	if state.Position != 0 {
		t.Errorf("Position = %v, want 0", state.Position)
	}
	if state.Track == nil || state.Track.ID != "c" {
		t.Errorf("Track = %+v, want c kept", state.Track)
	}
	if engine.openCount() != 1 {
		t.Errorf("opens = %d, want 1 (stop, no advance)", engine.openCount())
	}
}

// Position reports under the publish threshold stay internal; only
// moves past it reach subscribers.
func TestPositionPublishThreshold(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}
	h := engine.handle(0)

	var positions []time.Duration
	unsub := s.Subscribe(func(st State) { positions = append(positions, st.Position) })
	defer unsub()

	for _, ms := range []int{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000, 1100, 1200} {
		h.emit(Status{Position: time.Duration(ms) * time.Millisecond, Duration: time.Minute})
	}

	want := []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}
	if len(positions) != len(want) {
		t.Fatalf("published positions = %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("positions[%d] = %v, want %v", i, positions[i], want[i])
		}
	}

	// Internally the position still tracks the latest report.
	if got := s.State().Position; got != 1200*time.Millisecond {
		t.Errorf("internal Position = %v, want 1.2s", got)
	}
}

// Transport changes publish even when the position barely moved.
func TestTransportChangeAlwaysPublishes(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}

	var transports []core.TransportState
	unsub := s.Subscribe(func(st State) { transports = append(transports, st.Transport) })
	defer unsub()

	s.Pause()
	s.Play()

	if len(transports) != 2 || transports[0] != core.TransportPaused || transports[1] != core.TransportPlaying {
		t.Errorf("published transports = %v", transports)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)

	var publishes int
	unsub := s.Subscribe(func(State) { publishes++ })
	s.ToggleShuffle()
	unsub()
	s.ToggleShuffle()

	if publishes != 1 {
		t.Errorf("publishes = %d, want 1 after unsubscribe", publishes)
	}
}

func TestToggleFavorite(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)

	if s.ToggleFavorite() {
		t.Error("ToggleFavorite() with no track should stay false")
	}

	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}
	if !s.ToggleFavorite() {
		t.Error("first toggle should favorite")
	}
	if !s.State().Favorite {
		t.Error("state does not reflect favorite")
	}
	if !s.IsFavorite("t1") {
		t.Error("IsFavorite(t1) = false")
	}
	if s.ToggleFavorite() {
		t.Error("second toggle should unfavorite")
	}
}

func TestToggleRepeatCycles(t *testing.T) {
	s := NewSession(&fakeEngine{})

	want := []core.RepeatMode{core.RepeatAll, core.RepeatOne, core.RepeatOff}
	for _, mode := range want {
		s.ToggleRepeat()
		if got := s.State().Repeat; got != mode {
			t.Errorf("Repeat = %s, want %s", got, mode)
		}
	}
}

func TestSetVolumeClampsAndForwards(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}

	s.SetVolume(1.5)
	if got := s.State().Volume; got != 1.0 {
		t.Errorf("Volume = %v, want clamped 1.0", got)
	}
	s.SetVolume(-0.2)
	if got := s.State().Volume; got != 0 {
		t.Errorf("Volume = %v, want clamped 0", got)
	}

	h := engine.handle(0)
	if len(h.volumes) != 2 || h.volumes[0] != 1.0 || h.volumes[1] != 0 {
		t.Errorf("forwarded volumes = %v", h.volumes)
	}
}

func TestCloseResetsSession(t *testing.T) {
	engine := &fakeEngine{dur: time.Minute}
	s := NewSession(engine)
	s.SetVolume(0.5)
	if err := s.LoadTrack(context.Background(), testTrack("t1")); err != nil {
		t.Fatal(err)
	}

	s.Close()

	if !engine.handle(0).isReleased() {
		t.Error("Close did not release the handle")
	}
	state := s.State()
	if state.Track != nil || state.Transport != core.TransportIdle || state.Queue.Len() != 0 {
		t.Errorf("state after Close = %+v", state)
	}
	if state.Volume != 0.5 {
		t.Errorf("Volume = %v, want preserved 0.5", state.Volume)
	}

	// A release-time status report from the dead handle is ignored.
	engine.handle(0).emit(Status{Position: 10 * time.Second})
	if got := s.State().Position; got != 0 {
		t.Errorf("Position = %v after stale report, want 0", got)
	}
}
