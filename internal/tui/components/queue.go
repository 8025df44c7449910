package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/vutran/strum/internal/core"
	"github.com/vutran/strum/internal/tui/styles"
)

// Queue displays the local playback queue with a movable cursor.
type Queue struct {
	offset int
	cursor int
}

func NewQueue() *Queue {
	return &Queue{}
}

// MoveDown moves the cursor toward the end of the queue.
func (q *Queue) MoveDown(queue core.Queue) {
	if q.cursor < queue.Len()-1 {
		q.cursor++
	}
}

// MoveUp moves the cursor toward the start of the queue.
func (q *Queue) MoveUp() {
	if q.cursor > 0 {
		q.cursor--
	}
}

// Cursor returns the index under the cursor.
func (q *Queue) Cursor() int {
	return q.cursor
}

// Render renders the queue panel.
func (q *Queue) Render(queue core.Queue, width, height int, focused bool) string {
	title := styles.PanelTitle("Queue", focused)

	var content string
	if queue.IsEmpty() {
		content = styles.Muted.Render("Queue is empty")
	} else {
		content = q.renderTracks(queue, width-4, height-4, focused)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (q *Queue) renderTracks(queue core.Queue, width, maxLines int, focused bool) string {
	tracks := queue.Tracks

	if q.cursor >= len(tracks) {
		q.cursor = len(tracks) - 1
	}

	visible := maxLines - 1
	if visible < 1 {
		visible = 1
	}

	// Keep the cursor on screen.
	if q.cursor < q.offset {
		q.offset = q.cursor
	}
	if q.cursor >= q.offset+visible {
		q.offset = q.cursor - visible + 1
	}

	start := q.offset
	end := start + visible
	if end > len(tracks) {
		end = len(tracks)
	}

	// "XX. " plus marker plus separator.
	const overhead = 9

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		track := tracks[i]
		num := fmt.Sprintf("%2d.", i+1)

		available := width - overhead
		title := truncate(track.Title, available*2/3)
		artist := truncate(track.Artist, available-len(title))

		marker := "  "
		if i == queue.CurrentIndex {
			marker = "▶ "
		}

		line := fmt.Sprintf("%s %s%s — %s", num, marker, title, artist)
		switch {
		case i == q.cursor && focused:
			line = styles.Highlight.Render(line)
		case i == queue.CurrentIndex:
			line = styles.Playing.Render(line)
		default:
			line = styles.Dim.Render(num) + fmt.Sprintf(" %s%s — %s", marker, title, styles.Muted.Render(artist))
		}
		lines = append(lines, line)
	}

	if end < len(tracks) {
		lines = append(lines, styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(tracks)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
