package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HealthState tracks daemon health from /healthz polling.
type HealthState struct {
	Status         string
	UptimeSeconds  int64
	Handlers       int
	PendingOrdered int
	Connected      bool
	LastCheck      time.Time
}

// Ticker rotates through frames to show the TUI is alive.
type Ticker struct {
	frames []string
	index  int
}

func NewTicker() Ticker {
	return Ticker{frames: []string{"⟲", "⟳"}}
}

func (t *Ticker) Tick() {
	t.index = (t.index + 1) % len(t.frames)
}

func (t Ticker) Current() string {
	return t.frames[t.index]
}

// Pulse shows trace activity with a decaying dot pattern.
// Lights up on events, fades over time.
type Pulse struct {
	dots      int
	lastEvent time.Time
}

func (p *Pulse) OnEvent() {
	p.dots = 5
	p.lastEvent = time.Now()
}

func (p *Pulse) Decay() {
	if p.dots == 0 {
		return
	}
	elapsed := time.Since(p.lastEvent)
	switch {
	case elapsed > 10*time.Second:
		p.dots = 0
	case elapsed > 8*time.Second:
		p.dots = 1
	case elapsed > 6*time.Second:
		p.dots = 2
	case elapsed > 4*time.Second:
		p.dots = 3
	case elapsed > 2*time.Second:
		p.dots = 4
	}
}

func (p Pulse) Render(theme Theme) string {
	var result strings.Builder
	for i := range 5 {
		if i < p.dots {
			result.WriteString(theme.TickerActive.Render("●"))
		} else {
			result.WriteString(theme.TickerInactive.Render("○"))
		}
	}
	return result.String()
}

func (p Pulse) LastEvent() time.Time {
	return p.lastEvent
}

func renderHeader(health HealthState, ticker Ticker, pulse Pulse, theme Theme, width int) string {
	innerWidth := width - 4

	statusText := theme.Completed.Render("HEALTHY")
	statusIcon := "✅"
	if !health.Connected {
		statusText = theme.Failed.Render("CONNECTING")
		statusIcon = "🔌"
	} else if health.Status != "ok" && health.Status != "" {
		statusText = theme.Failed.Render("DEGRADED")
		statusIcon = "⚠️"
	}

	uptime := time.Duration(health.UptimeSeconds) * time.Second
	uptimeStr := formatDuration(uptime)

	lastEventStr := "never"
	if !pulse.LastEvent().IsZero() {
		ago := time.Since(pulse.LastEvent()).Round(time.Second)
		lastEventStr = fmt.Sprintf("%s ago", ago)
	}

	tickerStr := theme.Highlight.Render(ticker.Current())
	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	titleText := fmt.Sprintf(" VOXWIRE WATCH %s", tickerStr)

	titleWidth := lipgloss.Width(titleText)
	clockWidth := lipgloss.Width(clock)
	pad := innerWidth - titleWidth - clockWidth - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	statsLine := fmt.Sprintf(" %s %s  ⏱ %s  Handlers: %d  Pending: %d",
		statusIcon, statusText,
		uptimeStr,
		health.Handlers,
		health.PendingOrdered,
	)

	activityLine := fmt.Sprintf(" Last event: %s %s",
		lastEventStr,
		pulse.Render(theme),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleLine,
		statsLine,
		activityLine,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
