package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calyptra/voxwire/internal/events"
)

const maxEventLog = 50

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	// State
	health     HealthState
	directives map[string]*DirectiveState
	order      []string
	eventLog   []events.Event

	// Live indicators
	ticker Ticker
	pulse  Pulse

	// UI state
	theme      Theme
	dirTable   table.Model
	streamView viewport.Model
	streamInit bool

	// Communication
	hubEvents chan events.Event

	// Error display
	lastError string
}

// New creates a new watch TUI model.
func New(apiURL, apiKey string) *Model {
	return &Model{
		apiURL:     apiURL,
		apiKey:     apiKey,
		directives: make(map[string]*DirectiveState),
		eventLog:   make([]events.Event, 0),
		hubEvents:  make(chan events.Event, 100),
		ticker:     NewTicker(),
		theme:      NewDefaultTheme(),
		dirTable:   newDirectiveTable(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.dirTable, cmd = m.dirTable.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.streamView = viewport.New(msg.Width-6, 12)
		m.streamInit = true
		m.refreshStream()

	case tickMsg:
		m.ticker.Tick()
		m.pulse.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case eventMsg:
		e := events.Event(msg)

		// Newest first.
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > maxEventLog {
			m.eventLog = m.eventLog[:maxEventLog]
		}

		m.pulse.OnEvent()

		updateDirectiveState(m.directives, &m.order, e)
		m.dirTable.SetRows(directiveRows(m.directives, m.order))
		m.refreshStream()

		m.health.Connected = true
		m.lastError = ""

		return m, receiveNextEvent(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Handlers = msg.Handlers
		m.health.PendingOrdered = msg.PendingOrdered
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "SSE disconnected, reconnecting..."
		// Reconnect after a short delay; the existing receiveNextEvent
		// goroutine is still waiting on the channel and will pick up
		// events from the new subscription.
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		// Retry health in 5s
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})
	}

	return m, nil
}

func (m *Model) refreshStream() {
	if !m.streamInit {
		return
	}
	lines := make([]string, 0, len(m.eventLog))
	for _, e := range m.eventLog {
		lines = append(lines, formatEvent(e, m.theme))
	}
	if len(lines) == 0 {
		lines = append(lines, m.theme.Dim.Render("  Waiting for events..."))
	}
	m.streamView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing watch..."
	}

	innerWidth := m.width - 4

	header := renderHeader(m.health, m.ticker, m.pulse, m.theme, m.width)

	directives := m.theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("DIRECTIVES"),
			m.dirTable.View(),
		),
	)

	stream := m.theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("TRACE STREAM"),
			m.streamView.View(),
		),
	)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.Failed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Navigate Directives")

	parts := []string{header, directives, stream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
