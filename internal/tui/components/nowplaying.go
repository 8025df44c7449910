package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vutran/strum/internal/core"
	"github.com/vutran/strum/internal/player"
	"github.com/vutran/strum/internal/tui/styles"
)

// NowPlaying displays the current track and transport state.
type NowPlaying struct{}

func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel.
func (n *NowPlaying) Render(state player.State, width, height int, focused bool) string {
	title := styles.PanelTitle("Now Playing", focused)

	var content string
	if state.Track == nil {
		content = styles.Muted.Render("Nothing playing. Press / to search.")
	} else {
		content = n.renderTrack(state, width-4)
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

func (n *NowPlaying) renderTrack(state player.State, width int) string {
	track := state.Track

	icon := styles.TransportIcon(state.Transport == core.TransportPlaying)
	if state.Transport == core.TransportLoading {
		icon = styles.Dim.Render("…")
	}

	title := styles.Title.Width(width - 4).Render(track.Title)
	artist := styles.Subtitle.Render(track.Artist)
	album := styles.Dim.Render(track.Album)

	progressWidth := width - 14
	if progressWidth < 10 {
		progressWidth = 10
	}
	fraction := 0.0
	if state.Duration > 0 {
		fraction = float64(state.Position) / float64(state.Duration)
	}
	bar := styles.ProgressBar(fraction, progressWidth)
	progress := fmt.Sprintf("%s %s %s", formatDuration(state.Position), bar, formatDuration(state.Duration))

	return lipgloss.JoinVertical(lipgloss.Left,
		icon+" "+title,
		"  "+artist,
		"  "+album,
		"",
		progress,
		"",
		n.renderModes(state),
	)
}

func (n *NowPlaying) renderModes(state player.State) string {
	mode := func(on bool, label string) string {
		if on {
			return styles.Playing.Render(label)
		}
		return styles.Dim.Render(label)
	}

	repeat := "repeat:off"
	switch state.Repeat {
	case core.RepeatAll:
		repeat = "repeat:all"
	case core.RepeatOne:
		repeat = "repeat:one"
	}

	parts := []string{
		mode(state.Shuffle, "shuffle"),
		mode(state.Repeat != core.RepeatOff, repeat),
		mode(state.Favorite, "♥"),
		styles.Muted.Render(fmt.Sprintf("vol %d%%", int(state.Volume*100))),
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += "  " + p
	}
	return out
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
