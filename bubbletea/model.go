package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/relay"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

const (
	emptyState   = "Start a conversation with the AI assistant!"
	idleHelp     = "Enter to send, Ctrl+N new chat, Ctrl+T switch model, Ctrl+C to quit"
	shortIDWidth = 8
	minHelpWidth = 12 // below this the session info is dropped from the status line
)

// Model is the Bubble Tea model for the relay TUI. It renders snapshots of a
// relay.Chat and pulls the active stream one snapshot at a time.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model
	// Spinner animates while a reply has not produced its first token.
	Spinner spinner.Model

	chat   relay.Chat
	styles Styles
	models []string

	snap   relay.Snapshot
	stream relay.Stream
	err    error
	ready  bool
}

// Option configures a Model.
type Option func(*Model)

// WithModels sets the model selectors cycled by Ctrl+T.
func WithModels(models []string) Option {
	return func(m *Model) {
		m.models = slices.Clone(models)
	}
}

// New creates a new TUI Model over chat.
func New(chat relay.Chat, theme relay.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask something about your data..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Accent))

	m := Model{
		Input:   ti,
		Spinner: sp,
		chat:    chat,
		styles:  styles,
		snap:    chat.Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Running returns whether a reply is being streamed.
func (m Model) Running() bool { return m.stream != nil }

// Err returns the last error shown in the status line, if any.
func (m Model) Err() error { return m.err }

// Snapshot returns the snapshot currently rendered.
func (m Model) Snapshot() relay.Snapshot { return m.snap }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		if msg.Stream != m.stream {
			return m, nil
		}
		m.snap = msg.Snapshot
		m = m.refresh()
		return m, nextSnapshot(m.stream)

	case StreamDoneMsg:
		if msg.Stream != m.stream {
			return m, nil
		}
		_ = m.stream.Close()
		m.stream = nil
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.snap = m.chat.Snapshot()
		m = m.refresh()
		cmd := m.Input.Focus()
		return m, cmd

	case spinner.TickMsg:
		if !m.Running() {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.Running() {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m = m.refresh()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.Running() {
			// The pending Next returns and delivers StreamDoneMsg.
			_ = m.stream.Close()
			m.snap = m.chat.Snapshot()
			return m.refresh(), nil
		}
		return m, tea.Quit

	case tea.KeyCtrlN:
		m.chat.Reset()
		if m.stream != nil {
			_ = m.stream.Close()
			m.stream = nil
		}
		m.err = nil
		m.snap = m.chat.Snapshot()
		m = m.refresh()
		cmd := m.Input.Focus()
		return m, cmd

	case tea.KeyCtrlT:
		if m.Running() || len(m.models) == 0 {
			return m, nil
		}
		if err := m.chat.SetModel(nextModel(m.models, m.snap.Model)); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.snap = m.chat.Snapshot()
		return m, nil

	case tea.KeyEnter:
		if m.Running() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)
	}

	// When idle, pass keys to both input (for typing) and viewport (for
	// scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.Running() {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	stream, err := m.chat.Submit(context.Background(), text)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m.stream = stream
	m.snap = m.chat.Snapshot()
	m = m.refresh()

	return m, tea.Batch(nextSnapshot(stream), m.Spinner.Tick)
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	if len(m.snap.Messages) == 0 {
		return m.styles.Muted.Render(emptyState)
	}
	var b strings.Builder
	for _, msg := range m.snap.Messages {
		view := NewBlock(msg, m.styles).View(m.Viewport.Width)
		if view == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(view)
	}
	return b.String()
}

func (m Model) statusLine() string {
	var prefix, text string
	style := m.styles.Muted
	switch {
	case m.err != nil:
		text = fmt.Sprintf("Error: %v", m.err)
		style = m.styles.Error
	case m.Running() && m.snap.Waiting:
		prefix = m.Spinner.View() + " "
		text = "Waiting for response..."
	case m.Running():
		text = "Generating..."
	case m.snap.State.Terminal():
		text = "Reply " + m.snap.State.String() + ". " + idleHelp
	default:
		text = idleHelp
	}

	width := m.Viewport.Width
	if width <= 0 {
		return prefix + style.Render(text)
	}

	info := sessionInfo(m.snap)
	infoW := runewidth.StringWidth(info)
	prefixW := lipgloss.Width(prefix)
	avail := width - prefixW - infoW - 1
	if avail < minHelpWidth {
		info, infoW = "", 0
		avail = width - prefixW
	}
	text = runewidth.Truncate(text, max(avail, 0), "…")

	line := prefix + style.Render(text)
	if info != "" {
		gap := width - prefixW - runewidth.StringWidth(text) - infoW
		line += strings.Repeat(" ", max(gap, 1)) + m.styles.Accent.Render(info)
	}
	return line
}

// sessionInfo names the session and model for the status line.
func sessionInfo(s relay.Snapshot) string {
	model := s.Model
	if model == "" {
		model = "default"
	}
	return runewidth.Truncate(s.SessionID, shortIDWidth, "") + " " + model
}

// nextModel returns the selector after current, wrapping around. An unknown
// current model selects the first entry.
func nextModel(models []string, current string) string {
	i := slices.Index(models, current)
	return models[(i+1)%len(models)]
}

// nextSnapshot pulls one snapshot from s.
func nextSnapshot(s relay.Stream) tea.Cmd {
	return func() tea.Msg {
		snap, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, relay.ErrStreamClosed) {
				err = nil
			}
			return StreamDoneMsg{Stream: s, Err: err}
		}
		return SnapshotMsg{Stream: s, Snapshot: snap}
	}
}
