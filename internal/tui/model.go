// Package tui renders the telemetry stream as a terminal dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/aggregator"
	"github.com/atikulmunna/fleetwatch/internal/model"
	"github.com/atikulmunna/fleetwatch/internal/output"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const statsInterval = time.Second

// Controller toggles the stream. The scheduler satisfies it.
type Controller interface {
	Toggle() bool
	Frame() model.Frame
}

// StatsSource reports aggregated metrics.
type StatsSource interface {
	Snapshot() aggregator.Stats
}

type (
	frameMsg  model.Frame
	closedMsg struct{}
	statsMsg  aggregator.Stats
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	borderStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238"))
)

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctl    Controller
	stats  StatsSource
	frames <-chan model.Frame

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	frame    model.Frame
	snapshot aggregator.Stats
	ready    bool
	follow   bool
	width    int
}

// New creates a dashboard fed by frames.
func New(ctl Controller, stats StatsSource, frames <-chan model.Frame) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return Model{
		ctl:      ctl,
		stats:    stats,
		frames:   frames,
		keys:     DefaultKeyMap,
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(80, 20),
		frame:    ctl.Frame(),
		follow:   true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForFrame(m.frames), m.spinner.Tick, statsTick(m.stats))
}

// waitForFrame blocks on the next hub frame.
func waitForFrame(frames <-chan model.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return closedMsg{}
		}
		return frameMsg(f)
	}
}

func statsTick(stats StatsSource) tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg {
		return statsMsg(stats.Snapshot())
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 3)
		m.ready = true
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.ctl.Toggle()
			m.frame = m.ctl.Frame()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case frameMsg:
		// Frames published out of order by concurrent fetch completions are skipped.
		if f := model.Frame(msg); f.Seq >= m.frame.Seq {
			m.frame = f
			m.refreshContent()
		}
		return m, waitForFrame(m.frames)

	case closedMsg:
		return m, tea.Quit

	case statsMsg:
		m.snapshot = aggregator.Stats(msg)
		return m, statsTick(m.stats)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) refreshContent() {
	lines := make([]string, len(m.frame.Entries))
	for i, e := range m.frame.Entries {
		lines[i] = output.FormatLine(e)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// chromeHeight is the number of rows outside the viewport.
func (m Model) chromeHeight() int {
	return lipgloss.Height(m.header()) + lipgloss.Height(m.footer()) + 2
}

func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " establishing uplink..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		borderStyle.Width(m.width).Render(m.viewport.View()),
		m.footer(),
	)
}

func (m Model) header() string {
	var ai string
	if m.frame.Degraded {
		ai = offlineStyle.Render("AI OFFLINE · FALLBACK")
	} else {
		ai = onlineStyle.Render("AI ONLINE")
	}

	state := onlineStyle.Render("RUNNING")
	if !m.frame.Running {
		state = pausedStyle.Render("PAUSED")
	}

	fetch := ""
	if m.frame.Fetching {
		fetch = m.spinner.View() + " receiving"
	}

	return strings.Join([]string{
		titleStyle.Render("FLEETWATCH"),
		ai,
		state,
		dimStyle.Render(fmt.Sprintf("pending %d", m.frame.Pending)),
		fetch,
	}, "  ")
}

func (m Model) footer() string {
	s := m.snapshot
	counts := make([]string, 0, 4)
	for _, level := range []model.Level{model.LevelInfo, model.LevelWarn, model.LevelCrit, model.LevelSys} {
		counts = append(counts, fmt.Sprintf("%s %d", output.LevelTag(level), s.LevelCounts[level]))
	}

	stats := dimStyle.Render(fmt.Sprintf("up %s · %.2f eps · reactor %.1f%% · hull %.1f%% · signal %.1f%% · ",
		orDash(s.Uptime),
		s.EPS,
		s.Fleet[aggregator.GaugeReactor],
		s.Fleet[aggregator.GaugeHull],
		s.Fleet[aggregator.GaugeSignal],
	)) + strings.Join(counts, " ")

	return stats + "\n" + m.help.View(m.keys)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
