package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
	tea "github.com/charmbracelet/bubbletea"
)

// Fetcher refreshes the snapshot for the dashboard.
type Fetcher func() (chain.Session, statesync.Snapshot, error)

// DashboardModel is the Bubble Tea model for the live sale dashboard.
type DashboardModel struct {
	session    chain.Session
	snap       statesync.Snapshot
	loaded     bool
	lastUpdate time.Time
	interval   time.Duration
	quitting   bool
	fetcher    Fetcher
	err        string
}

type tickMsg time.Time

type snapshotMsg struct {
	session chain.Session
	snap    statesync.Snapshot
}

type fetchErrMsg string

// NewDashboardModel creates the dashboard model. Exposed so the model can be
// driven without a terminal.
func NewDashboardModel(interval time.Duration, fetcher Fetcher) DashboardModel {
	return DashboardModel{interval: interval, fetcher: fetcher}
}

// NewDashboard creates a Bubble Tea program for the live sale dashboard.
func NewDashboard(interval time.Duration, fetcher Fetcher) *tea.Program {
	return tea.NewProgram(NewDashboardModel(interval, fetcher))
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tick(m.interval))
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tick(m.interval))

	case snapshotMsg:
		m.session = msg.session
		m.snap = msg.snap
		m.loaded = true
		m.lastUpdate = time.Now()
		m.err = ""

	case fetchErrMsg:
		m.err = string(msg)
	}

	return m, nil
}

func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("⚡ Live Token Sale") + "\n")
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("Updated: %s · r to refresh · q to quit", updated)) + "\n\n")

	if m.err != "" {
		sb.WriteString(Err(m.err) + "\n")
	}

	if !m.loaded {
		sb.WriteString(StyleMeta.Render("Loading...") + "\n")
	} else {
		sb.WriteString(SnapshotBlock(m.session, m.snap) + "\n")
	}

	return sb.String()
}

func (m DashboardModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		s, snap, err := m.fetcher()
		if err != nil {
			return fetchErrMsg(err.Error())
		}
		return snapshotMsg{session: s, snap: snap}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
