// Package audio implements the playback engine on the beep library.
// Streams are fetched fully into memory before decoding, which keeps
// seeking cheap and works well for the short preview streams the
// catalog serves.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/vutran/strum/internal/player"
)

const (
	// speakerRate is the fixed output sample rate; every stream is
	// resampled to it so the speaker is initialized exactly once.
	speakerRate = beep.SampleRate(44100)

	statusInterval = 500 * time.Millisecond
)

// Engine opens MP3 streams over HTTP and plays them through the
// system speaker.
type Engine struct {
	httpClient *http.Client

	initOnce sync.Once
	initErr  error
}

// NewEngine creates a beep-backed engine. The speaker is initialized
// lazily on the first Open.
func NewEngine() *Engine {
	return &Engine{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) initSpeaker() error {
	e.initOnce.Do(func() {
		e.initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return e.initErr
}

// Open fetches and decodes the stream, wires it into the speaker in a
// paused state and returns the handle. Playback begins on Play.
func (e *Engine) Open(ctx context.Context, streamURL string) (player.Handle, error) {
	if streamURL == "" {
		return nil, fmt.Errorf("track has no stream URL")
	}

	data, err := e.fetch(ctx, streamURL)
	if err != nil {
		return nil, err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream: %w", err)
	}

	if err := e.initSpeaker(); err != nil {
		_ = streamer.Close()
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	resampled := beep.Resample(4, format.SampleRate, speakerRate, streamer)
	ctrl := &beep.Ctrl{Streamer: resampled, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: 2}

	h := &handle{
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   volume,
		stop:     make(chan struct{}),
	}
	h.attach = func() {
		speaker.Play(beep.Seq(volume, beep.Callback(h.onFinished)))
	}

	h.attach()
	h.polling = true
	go h.pollLoop()

	return h, nil
}

func (e *Engine) fetch(ctx context.Context, streamURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stream fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	return data, nil
}

// handle is one decoded stream sitting in the speaker mixer.
type handle struct {
	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	attach   func()
	fn       player.StatusFunc
	finished bool
	polling  bool
	released bool
	stop     chan struct{}
}

func (h *handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	if h.finished {
		// The mixer drops a drained sequence, so a fresh one has to go
		// in before the seeked stream can play again.
		h.finished = false
		h.attach()
		if !h.polling {
			h.polling = true
			go h.pollLoop()
		}
	}
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (h *handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (h *handle) Seek(pos time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	return h.streamer.Seek(h.format.SampleRate.N(pos))
}

// SetVolume maps the session's [0, 1] volume onto beep's logarithmic
// scale; 0 silences outright.
func (h *handle) SetVolume(v float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	speaker.Lock()
	if v <= 0 {
		h.volume.Silent = true
	} else {
		h.volume.Silent = false
		h.volume.Volume = math.Log2(v)
	}
	speaker.Unlock()
	return nil
}

func (h *handle) Status() player.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

func (h *handle) statusLocked() player.Status {
	if h.released {
		return player.Status{Finished: h.finished}
	}
	speaker.Lock()
	pos := h.streamer.Position()
	length := h.streamer.Len()
	paused := h.ctrl.Paused
	speaker.Unlock()

	return player.Status{
		Position: h.format.SampleRate.D(pos),
		Duration: h.format.SampleRate.D(length),
		Playing:  !paused,
		Finished: h.finished,
	}
}

func (h *handle) Subscribe(fn player.StatusFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fn = fn
}

// pollLoop pushes periodic status reports until Release, or until the
// stream drains; Play restarts it when a drained handle is re-armed.
func (h *handle) pollLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			if h.released || h.finished {
				h.polling = false
				h.mu.Unlock()
				return
			}
			fn := h.fn
			st := h.statusLocked()
			h.mu.Unlock()
			if fn != nil && st.Playing {
				fn(st)
			}
		}
	}
}

// onFinished runs inside the speaker goroutine when the stream drains,
// under the speaker lock. All of the work moves to a fresh goroutine so
// listeners can call back into the handle without deadlocking the mixer.
func (h *handle) onFinished() {
	go h.finish()
}

func (h *handle) finish() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.finished = true
	fn := h.fn
	h.mu.Unlock()

	if fn != nil {
		fn(player.Status{Finished: true})
	}
}

// Release detaches the stream. It never blocks; a poll tick already in
// flight sees the released flag and dies.
func (h *handle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	close(h.stop)
	ctrl := h.ctrl
	streamer := h.streamer
	h.mu.Unlock()

	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
	_ = streamer.Close()
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
