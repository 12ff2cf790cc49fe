package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// View represents different screens in the TUI.
type View int

const (
	ViewStatus View = iota
	ViewLog
)

// maxEntries bounds the log kept in memory
const maxEntries = 1000

// statusInterval is how often the hub status is polled
const statusInterval = 250 * time.Millisecond

// Source is polled for the hub status
type Source interface {
	Status() hub.Status
}

// Model is the main Bubbletea model for the TUI.
type Model struct {
	// State
	view    View
	width   int
	height  int
	started time.Time
	paused  bool

	// Data
	src     Source
	feed    *Feed
	status  hub.Status
	entries []Entry
	events  int

	fetch  ProgressState
	upload ProgressState
	ota    ProgressState

	// Components
	log     viewport.Model
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	styles  Styles
}

type statusTickMsg time.Time

type entryMsg Entry

// NewModel creates the monitor for src, reading log entries from feed
func NewModel(src Source, feed *Feed) Model {
	h := help.New()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		started: time.Now(),
		src:     src,
		feed:    feed,
		status:  src.Status(),
		fetch:   NewProgressState("fetch", "chunks"),
		upload:  NewProgressState("upload", "bytes"),
		ota:     NewProgressState("ota", "bytes"),
		log:     viewport.New(80, 20),
		keys:    DefaultKeyMap(),
		help:    h,
		spinner: s,
		styles:  DefaultStyles(),
	}
}

func statusTickCmd() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func waitForEntry(f *Feed) tea.Cmd {
	return func() tea.Msg {
		return entryMsg(<-f.ch)
	}
}

// Init starts polling and listening
func (m Model) Init() tea.Cmd {
	return tea.Batch(statusTickCmd(), waitForEntry(m.feed), m.spinner.Tick)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.log.Width = max(20, msg.Width-4)
		m.log.Height = max(5, msg.Height-8)
		for _, p := range []*ProgressState{&m.fetch, &m.upload, &m.ota} {
			p.SetWidth(msg.Width - 8)
		}
		m.refreshLog()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusTickMsg:
		m.status = m.src.Status()
		m.fetch.Sync(m.status.Fetch)
		m.upload.Sync(m.status.Upload)
		m.ota.Sync(m.status.OTA)
		return m, statusTickCmd()

	case entryMsg:
		m.addEntry(Entry(msg))
		return m, waitForEntry(m.feed)
	}

	return m, nil
}

func (m *Model) addEntry(e Entry) {
	if e.Kind == KindEvent {
		m.events++
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	if !m.paused {
		m.refreshLog()
	}
}

func (m *Model) refreshLog() {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderEntry(e))
	}
	m.log.SetContent(b.String())
	m.log.GotoBottom()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Switch):
		if m.view == ViewStatus {
			m.view = ViewLog
		} else {
			m.view = ViewStatus
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if !m.paused {
			m.refreshLog()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		m.refreshLog()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current screen
func (m Model) View() string {
	var content string

	switch m.view {
	case ViewStatus:
		content = m.viewStatus()
	case ViewLog:
		content = m.viewLog()
	default:
		content = "Unknown view"
	}

	// Help
	helpView := m.styles.Help.Render(m.help.View(m.keys))

	return m.styles.App.Render(
		content + "\n" + helpView,
	)
}

// renderTitleBar renders the identity line and the view tabs
func (m Model) renderTitleBar() string {
	var parts []string

	parts = append(parts, m.styles.Title.Render("GyverHub"))

	if m.status.Running {
		parts = append(parts, m.spinner.View()+" "+m.styles.StatusOnline.Render("running"))
	} else {
		parts = append(parts, m.styles.StatusOffline.Render("○ stopped"))
	}
	if m.status.OTAURL {
		parts = append(parts, m.styles.Warning.Render("updating from URL"))
	}
	parts = append(parts, m.styles.Muted.Render(m.status.Prefix+"/"+m.status.ID))
	parts = append(parts, m.styles.Muted.Render("up "+formatUptime(time.Since(m.started))))

	tabs := []string{"Status", "Log"}
	for i, t := range tabs {
		if View(i) == m.view {
			tabs[i] = m.styles.TabOn.Render(t)
		} else {
			tabs[i] = m.styles.Tab.Render(t)
		}
	}

	return strings.Join(parts, "  ") + "\n" + strings.Join(tabs, " ")
}

func (m Model) viewStatus() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteString("\n\n")

	b.WriteString(m.renderField("Name", m.status.Name))
	b.WriteString(m.renderField("Device", m.status.ID))
	b.WriteString(m.renderField("Prefix", m.status.Prefix))
	b.WriteString(m.renderField("Events", fmt.Sprintf("%d", m.events)))
	if d := m.feed.Dropped(); d > 0 {
		b.WriteString(m.renderField("Dropped", m.styles.Warning.Render(fmt.Sprintf("%d", d))))
	}
	b.WriteString("\n")

	b.WriteString(m.styles.Muted.Render("Focus"))
	b.WriteString("\n")
	for i := 0; i < protocol.ConnCount; i++ {
		left := m.status.Focus[i]
		value := m.styles.Muted.Render("-")
		if left > 0 {
			value = m.styles.Success.Render(fmt.Sprintf("● %ds", left))
		}
		b.WriteString(m.renderField(protocol.Conn(i).String(), value))
	}
	b.WriteString("\n")

	b.WriteString(m.styles.Muted.Render("Transfers"))
	b.WriteString("\n")
	idle := true
	for _, p := range []ProgressState{m.fetch, m.upload, m.ota} {
		if p.IsActive() {
			idle = false
			b.WriteString(p.View())
			b.WriteString("\n")
		}
	}
	if idle {
		b.WriteString(m.styles.Muted.Render("  idle"))
		b.WriteString("\n")
	}

	if n := len(m.entries); n > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("Last"))
		b.WriteString("\n")
		for _, e := range m.entries[max(0, n-5):] {
			e.Text = truncate(e.Text, max(20, m.width-30))
			b.WriteString(m.renderEntry(e))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) viewLog() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteString("\n\n")
	b.WriteString(m.log.View())
	if m.paused {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render("paused"))
	}
	return b.String()
}

func (m Model) renderEntry(e Entry) string {
	ts := m.styles.Muted.Render(e.Time.Format("15:04:05.000"))
	if e.Kind == KindLog {
		return ts + " " + e.Text
	}
	return ts + " " + m.styles.Event.Render(e.Text) + " " + m.styles.Muted.Render(e.From.String())
}

func (m Model) renderField(label, value string) string {
	return m.styles.Label.Render(label+":") + " " + m.styles.Value.Render(value) + "\n"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func formatUptime(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours < 24 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	days := hours / 24
	hours = hours % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
