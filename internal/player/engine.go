package player

import (
	"context"
	"time"
)

// Status is a point-in-time report from an open engine handle.
type Status struct {
	Position  time.Duration
	Duration  time.Duration
	Playing   bool
	Buffering bool
	Finished  bool
}

// StatusFunc receives engine status updates. It is called from the
// engine's own goroutine.
type StatusFunc func(Status)

// Handle is one open audio stream. At most one handle exists per
// session; Release must be called before opening another.
type Handle interface {
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	SetVolume(v float64) error
	Status() Status
	Subscribe(fn StatusFunc)
	Release()
}

// Engine opens audio streams. Implementations decode and play the
// stream at the given URL; Open blocks until the stream is ready.
type Engine interface {
	Open(ctx context.Context, streamURL string) (Handle, error)
}
