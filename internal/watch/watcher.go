// Package watch follows the remote playback state and turns polled
// snapshots into a stream of discrete events.
package watch

import (
	"context"
	"time"

	"github.com/vutran/strum/internal/spotify/client"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventVolumeChange
	EventDeviceChange
)

// Event represents a remote playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *client.PlaybackState
	Current   *client.PlaybackState
}

// StateSource is anything that can report the remote playback state.
// A nil state with a nil error means nothing is playing.
type StateSource interface {
	GetPlaybackState(ctx context.Context) (*client.PlaybackState, error)
}

// Watcher polls the remote player and emits events on change.
type Watcher struct {
	source   StateSource
	interval time.Duration
	events   chan Event
	done     chan struct{}
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(source StateSource, interval time.Duration) *Watcher {
	if interval == 0 {
		interval = time.Second
	}
	return &Watcher{
		source:   source,
		interval: interval,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start polls until ctx is cancelled or Stop is called. Poll errors are
// skipped rather than terminating the loop.
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.events)

	var prev *client.PlaybackState
	if state, err := w.source.GetPlaybackState(ctx); err == nil {
		prev = state
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			curr, err := w.source.GetPlaybackState(ctx)
			if err != nil {
				continue
			}

			for _, e := range diffStates(prev, curr) {
				select {
				case w.events <- e:
				default:
					// Drop when the consumer falls behind.
				}
			}

			prev = curr
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

// diffStates compares two snapshots and returns the detected events.
func diffStates(prev, curr *client.PlaybackState) []Event {
	if curr == nil {
		return nil
	}

	now := time.Now()
	var events []Event

	if prev == nil {
		if curr.Item != nil {
			events = append(events, Event{
				Type:      EventTrackChange,
				Timestamp: now,
				Current:   curr,
			})
		}
		return events
	}

	if trackChanged(prev, curr) {
		eventType := EventTrackChange
		if prev.Item != nil {
			if wasCompleted(prev) {
				eventType = EventTrackComplete
			} else {
				eventType = EventTrackSkip
			}
		}
		events = append(events, Event{
			Type:      eventType,
			Timestamp: now,
			Previous:  prev,
			Current:   curr,
		})
	}

	if prev.IsPlaying && !curr.IsPlaying {
		events = append(events, Event{Type: EventPause, Timestamp: now, Previous: prev, Current: curr})
	} else if !prev.IsPlaying && curr.IsPlaying {
		events = append(events, Event{Type: EventResume, Timestamp: now, Previous: prev, Current: curr})
	}

	if volumeOf(prev) != volumeOf(curr) {
		events = append(events, Event{Type: EventVolumeChange, Timestamp: now, Previous: prev, Current: curr})
	}

	if prev.Device.ID != curr.Device.ID {
		events = append(events, Event{Type: EventDeviceChange, Timestamp: now, Previous: prev, Current: curr})
	}

	return events
}

func trackChanged(prev, curr *client.PlaybackState) bool {
	if prev.Item == nil && curr.Item == nil {
		return false
	}
	if prev.Item == nil || curr.Item == nil {
		return true
	}
	return prev.Item.ID != curr.Item.ID
}

// wasCompleted guesses natural completion: progress within the last 5%
// of the track when it disappeared.
func wasCompleted(state *client.PlaybackState) bool {
	if state.Item == nil || state.Item.DurationMS == 0 {
		return false
	}
	return float64(state.ProgressMS) >= float64(state.Item.DurationMS)*0.95
}

func volumeOf(state *client.PlaybackState) int {
	if state.Device.VolumePercent == nil {
		return -1
	}
	return *state.Device.VolumePercent
}
