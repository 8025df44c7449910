package watch

import (
	"fmt"
	"strings"
)

// Formatter renders events as terminal lines.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// NewFormatter creates a formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{showEmoji: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a single line.
func (f *Formatter) Format(e Event) string {
	var parts []string

	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, eventDescription(e))

	return strings.Join(parts, " ")
}

func eventDescription(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if e.Current != nil && e.Current.Item != nil {
			return fmt.Sprintf("Now playing: %s - %s", e.Current.Item.ArtistNames(), e.Current.Item.Name)
		}
		return "Track changed"

	case EventTrackComplete:
		if e.Previous != nil && e.Previous.Item != nil {
			return fmt.Sprintf("Finished: %s - %s", e.Previous.Item.ArtistNames(), e.Previous.Item.Name)
		}
		return "Track completed"

	case EventTrackSkip:
		if e.Previous != nil && e.Previous.Item != nil {
			return fmt.Sprintf("Skipped: %s - %s", e.Previous.Item.ArtistNames(), e.Previous.Item.Name)
		}
		return "Track skipped"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventVolumeChange:
		if e.Current != nil && e.Current.Device.VolumePercent != nil {
			return fmt.Sprintf("Volume: %d%%", *e.Current.Device.VolumePercent)
		}
		return "Volume changed"

	case EventDeviceChange:
		if e.Current != nil && e.Current.Device.Name != "" {
			return fmt.Sprintf("Device: %s", e.Current.Device.Name)
		}
		return "Device changed"

	default:
		return "Unknown event"
	}
}

func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventTrackComplete:
		return "✅"
	case EventTrackSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventVolumeChange:
		return "🔊"
	case EventDeviceChange:
		return "📱"
	default:
		return "❓"
	}
}

// EventTypeName returns the wire name of the event type for JSON
// output.
func EventTypeName(t EventType) string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventTrackComplete:
		return "track_complete"
	case EventTrackSkip:
		return "track_skip"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventVolumeChange:
		return "volume_change"
	case EventDeviceChange:
		return "device_change"
	default:
		return "unknown"
	}
}
