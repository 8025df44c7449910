package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vutran/strum/internal/audio"
	"github.com/vutran/strum/internal/config"
	"github.com/vutran/strum/internal/core"
	"github.com/vutran/strum/internal/player"
	"github.com/vutran/strum/internal/spotify/client"
	"github.com/vutran/strum/internal/tui/components"
	"github.com/vutran/strum/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowPlaying Panel = iota
	PanelQueue
)

const (
	searchDebounce = 300 * time.Millisecond
	seekStep       = 5 * time.Second
	volumeStep     = 0.05
)

// App wires the local playback session to the terminal UI.
type App struct {
	client  *client.Client
	session *player.Session
}

// NewApp creates the playback session behind the UI.
func NewApp(c *client.Client, cfg *config.Config) *App {
	session := player.NewSession(audio.NewEngine())
	session.SetVolume(float64(cfg.Playback.Volume) / 100.0)
	if mode := core.RepeatMode(cfg.Playback.Repeat); mode.Valid() {
		session.SetRepeatMode(mode)
	}
	if cfg.Playback.Shuffle {
		session.ToggleShuffle()
	}

	return &App{client: c, session: session}
}

// Close releases the audio session.
func (a *App) Close() {
	a.session.Close()
}

// Model is the main TUI model
type Model struct {
	app          *App
	width        int
	height       int
	focusedPanel Panel

	state  player.State
	states chan player.State

	nowPlaying *components.NowPlaying
	queueView  *components.Queue

	showHelp bool

	// Search state
	showSearch    bool
	searchInput   textinput.Model
	searchResults []core.Track
	searchCursor  int
	searching     bool
	lastQuery     string
	searchErr     error

	lastError   error
	errorExpiry time.Time

	quitting bool
}

// NewModel creates a new TUI model
func NewModel(app *App) Model {
	ti := textinput.New()
	ti.Placeholder = "Search tracks..."
	ti.CharLimit = 100
	ti.Width = 50

	return Model{
		app:         app,
		state:       app.session.State(),
		states:      make(chan player.State, 16),
		nowPlaying:  components.NewNowPlaying(),
		queueView:   components.NewQueue(),
		searchInput: ti,
	}
}

// Messages
type stateMsg player.State
type errMsg error

type searchDebounceMsg struct{ query string }
type searchResultsMsg struct {
	tracks []core.Track
	err    error
}

// waitForState blocks until the session publishes a state change.
func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-m.states)
	}
}

func (m Model) doSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if query == "" {
			return searchResultsMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := m.app.client.Search(ctx, client.SearchOptions{
			Query: query,
			Types: []client.SearchType{client.SearchTypeTrack},
			Limit: 25,
		})
		if err != nil {
			return searchResultsMsg{err: err}
		}
		if resp.Tracks == nil {
			return searchResultsMsg{}
		}
		return searchResultsMsg{tracks: client.TracksToCore(resp.Tracks.Items)}
	}
}

func (m Model) playSearchResults(index int) tea.Cmd {
	tracks := m.searchResults
	return func() tea.Msg {
		m.app.session.SetQueue(tracks)
		if err := m.app.session.PlayFromQueue(context.Background(), index); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (m Model) playFromQueue(index int) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.session.PlayFromQueue(context.Background(), index); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (m Model) nextTrack() tea.Cmd {
	return func() tea.Msg {
		if err := m.app.session.PlayNext(context.Background()); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (m Model) prevTrack() tea.Cmd {
	return func() tea.Msg {
		if err := m.app.session.PlayPrevious(context.Background()); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	unsubscribe := m.app.session.Subscribe(func(st player.State) {
		// The session holds its lock while publishing, so never block.
		select {
		case m.states <- st:
		default:
		}
	})
	_ = unsubscribe // released by session.Close on shutdown

	return m.waitForState()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		if time.Now().After(m.errorExpiry) {
			m.lastError = nil
		}
		m.state = player.State(msg)
		return m, m.waitForState()

	case errMsg:
		m.lastError = msg
		m.errorExpiry = time.Now().Add(5 * time.Second)
		return m, nil

	case searchDebounceMsg:
		if msg.query == m.searchInput.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query)
		}

	case searchResultsMsg:
		m.searching = false
		m.searchResults = msg.tracks
		m.searchErr = msg.err
		m.searchCursor = 0
		return m, nil
	}

	if m.showSearch {
		var inputCmd tea.Cmd
		m.searchInput, inputCmd = m.searchInput.Update(msg)
		return m, inputCmd
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	if m.showSearch {
		return m.handleSearchKeyPress(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "/":
		m.showSearch = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.searchResults = nil
		m.searchCursor = 0
		m.lastQuery = ""
		m.searchErr = nil
		return m, textinput.Blink

	case "tab", "shift+tab":
		if m.focusedPanel == PanelNowPlaying {
			m.focusedPanel = PanelQueue
		} else {
			m.focusedPanel = PanelNowPlaying
		}
		return m, nil
	}

	// Playback controls
	switch msg.String() {
	case " ":
		m.app.session.TogglePlay()
		return m, nil
	case "n":
		return m, m.nextTrack()
	case "p":
		return m, m.prevTrack()
	case "left":
		m.app.session.SeekTo(m.state.Position - seekStep)
		return m, nil
	case "right":
		m.app.session.SeekTo(m.state.Position + seekStep)
		return m, nil
	case "+", "=":
		m.app.session.SetVolume(m.state.Volume + volumeStep)
		return m, nil
	case "-":
		m.app.session.SetVolume(m.state.Volume - volumeStep)
		return m, nil
	case "s":
		m.app.session.ToggleShuffle()
		return m, nil
	case "r":
		m.app.session.ToggleRepeat()
		return m, nil
	case "f":
		m.app.session.ToggleFavorite()
		return m, nil
	}

	if m.focusedPanel == PanelQueue {
		switch msg.String() {
		case "j", "down":
			m.queueView.MoveDown(m.state.Queue)
		case "k", "up":
			m.queueView.MoveUp()
		case "enter":
			return m, m.playFromQueue(m.queueView.Cursor())
		}
	}

	return m, nil
}

func (m Model) handleSearchKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "esc":
		m.showSearch = false
		m.searchInput.Blur()
		return m, nil

	case "enter":
		if len(m.searchResults) > 0 && m.searchCursor < len(m.searchResults) {
			index := m.searchCursor
			m.showSearch = false
			m.searchInput.Blur()
			return m, m.playSearchResults(index)
		}
		return m, nil

	case "up", "ctrl+p":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil
	}

	var inputCmd tea.Cmd
	m.searchInput, inputCmd = m.searchInput.Update(msg)
	cmds = append(cmds, inputCmd)

	if m.searchInput.Value() != m.lastQuery {
		cmds = append(cmds, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{query: m.searchInput.Value()}
		}))
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.showSearch {
		return m.renderSearch()
	}

	topHeight := m.height * 40 / 100
	bottomHeight := m.height - topHeight - 3

	nowPlaying := m.nowPlaying.Render(m.state, m.width-2, topHeight-2, m.focusedPanel == PanelNowPlaying)
	queueView := m.queueView.Render(m.state.Queue, m.width-2, bottomHeight-2, m.focusedPanel == PanelQueue)

	main := lipgloss.JoinVertical(lipgloss.Left, nowPlaying, queueView)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) renderStatusBar() string {
	status := styles.Dim.Render("q:quit  ?:help  /:search  space:play/pause  n:next  p:prev  ←/→:seek  +/-:volume  s:shuffle  r:repeat  f:favorite")

	if m.lastError != nil {
		status = styles.ErrorText.Render("Error: " + m.lastError.Error())
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := "Strum - Keyboard Shortcuts"
	divider := strings.Repeat("═", len(title))

	help := `
  ` + title + `
  ` + divider + `

  Global
  ──────
  q, Ctrl+C    Quit
  ?            Toggle help
  /            Search
  Tab          Switch panel

  Playback
  ────────
  Space        Play/Pause
  n            Next track
  p            Previous track
  ←/→          Seek 5s
  +/=          Volume up
  -            Volume down
  s            Toggle shuffle
  r            Cycle repeat mode
  f            Favorite track

  Queue Panel
  ───────────
  j/↓          Cursor down
  k/↑          Cursor up
  Enter        Play selected

  Press ? or Esc to close
`

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.BorderStyle.Render(help))
}

func (m Model) renderSearch() string {
	var b strings.Builder

	b.WriteString(styles.Highlight.Render("Search"))
	b.WriteString("\n\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	switch {
	case m.searchErr != nil:
		b.WriteString(styles.ErrorText.Render("Error: " + m.searchErr.Error()))
	case m.searching:
		b.WriteString(styles.Muted.Render("Searching..."))
	case len(m.searchResults) == 0 && m.lastQuery != "":
		b.WriteString(styles.Muted.Render("No playable results"))
	default:
		for i, track := range m.searchResults {
			if i >= 10 {
				b.WriteString(styles.Dim.Render("  ...and more"))
				break
			}

			line := fmt.Sprintf("%s %s", track.Title, styles.Muted.Render(track.Artist))
			if i == m.searchCursor {
				b.WriteString(styles.Highlight.Render("> ") + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("↑/↓:nav  Enter:play  Esc:close"))

	content := lipgloss.NewStyle().
		Width(60).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.FocusedBorder.Render(content))
}

// Run starts the TUI application.
func Run(c *client.Client, cfg *config.Config) error {
	app := NewApp(c, cfg)
	defer app.Close()

	model := NewModel(app)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
