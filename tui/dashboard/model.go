// Package dashboard is the interactive session dashboard behind
// "arcade tui": a live countdown with start, pause and end controls.
package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/tui/keymap"
)

const (
	requestTimeout = 15 * time.Second
	// localRefresh is how often the dashboard polls when no daemon streams
	// updates to it.
	localRefresh = 30 * time.Second
)

// Options configures a dashboard Model.
type Options struct {
	Client daemon.Client
	// OpenURL opens the Slack channel; nil hides the binding.
	OpenURL func(ctx context.Context) error
	Now     func() time.Time
}

type (
	stateMsg  struct{ state *store.State }
	updateMsg struct{ update daemon.StateUpdate }
	streamMsg struct{ ch <-chan daemon.StateUpdate }
	streamEnd struct{}
	tickMsg   time.Time
	doneMsg   struct{ text string }
	errMsg    struct{ err error }
)

// Model is the bubbletea model of the dashboard.
type Model struct {
	client  daemon.Client
	openURL func(ctx context.Context) error
	now     func() time.Time

	keys  keymap.Dashboard
	help  help.Model
	input textinput.Model

	stream    <-chan daemon.StateUpdate
	state     store.State
	loaded    bool
	streaming bool
	editing   bool
	busy      bool
	status    string
	err       error
	lastPoll  time.Time

	width int
}

// New creates a dashboard over client.
func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ti := textinput.New()
	ti.Placeholder = "What are you working on?"
	ti.CharLimit = 200
	ti.Prompt = "› "

	keys := keymap.NewDashboard()
	if opts.OpenURL == nil {
		keys.Slack.SetEnabled(false)
	}

	return Model{
		client:  opts.Client,
		openURL: opts.OpenURL,
		now:     opts.Now,
		keys:    keys,
		help:    help.New(),
		input:   ti,
	}
}

// Init loads the state and subscribes to daemon updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchState(), m.subscribe(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchState() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := m.client.State(ctx)
		if err != nil {
			return errMsg{err}
		}
		return stateMsg{st}
	}
}

// subscribe opens the daemon stream. A client without one leaves the
// dashboard in polling mode.
func (m Model) subscribe() tea.Cmd {
	return func() tea.Msg {
		ch, err := m.client.StreamState(context.Background())
		if err != nil {
			return nil
		}
		return streamMsg{ch}
	}
}

func waitForUpdate(ch <-chan daemon.StateUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return streamEnd{}
		}
		return updateMsg{u}
	}
}

// action runs a session command and reports its outcome.
func (m Model) action(done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err}
		}
		return doneMsg{done}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case stateMsg:
		m.state = *msg.state
		m.loaded = true
		m.lastPoll = m.now()
		return m, nil

	case streamMsg:
		m.streaming = true
		m.stream = msg.ch
		return m, waitForUpdate(msg.ch)

	case updateMsg:
		m.apply(msg.update)
		return m, waitForUpdate(m.stream)

	case streamEnd:
		m.streaming = false
		m.status = "Lost connection to the daemon"
		return m, nil

	case tickMsg:
		if !m.streaming && !m.busy && m.now().Sub(m.lastPoll) >= localRefresh {
			m.lastPoll = m.now()
			return m, tea.Batch(tick(), m.refresh())
		}
		return m, tick()

	case doneMsg:
		m.busy = false
		m.err = nil
		m.status = msg.text
		return m, m.fetchState()

	case errMsg:
		m.busy = false
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(u daemon.StateUpdate) {
	switch {
	case u.State != nil:
		m.state = *u.State
		m.loaded = true
	case u.Display != nil:
		m.state.Display = *u.Display
		m.state.Phase = u.Display.Phase
		if u.Display.Session != nil {
			m.state.Session = u.Display.Session
		}
	case u.Notification != nil:
		m.state.LastNotification = u.Notification
	case u.UpdateType == string(store.UpdateCredentialCleared):
		m.status = "Credentials were cleared; run arcade init"
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := m.client.Refresh(ctx); err != nil {
			return errMsg{err}
		}
		st, err := m.client.State(ctx)
		if err != nil {
			return errMsg{err}
		}
		return stateMsg{st}
	}
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	phase := m.state.Phase
	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		m.status = "Refreshing..."
		return m, m.action("Force refreshed status", func(ctx context.Context) error {
			_, err := m.client.Refresh(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Start):
		if phase == reconciler.PhaseActive || phase == reconciler.PhasePaused {
			m.err = errors.InvalidInput("session", "a session is already running")
			return m, nil
		}
		m.editing = true
		m.err = nil
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Pause):
		if phase != reconciler.PhaseActive && phase != reconciler.PhasePaused {
			m.err = errors.InvalidInput("session", "no session to pause")
			return m, nil
		}
		m.busy = true
		done := "Session paused"
		if phase == reconciler.PhasePaused {
			done = "Session resumed"
		}
		return m, m.action(done, func(ctx context.Context) error {
			_, err := m.client.PauseSession(ctx)
			return err
		})

	case key.Matches(msg, m.keys.End):
		if phase != reconciler.PhaseActive && phase != reconciler.PhasePaused {
			m.err = errors.InvalidInput("session", "no session to end")
			return m, nil
		}
		m.busy = true
		return m, m.action("Session ended", m.client.EndSession)

	case key.Matches(msg, m.keys.Slack):
		return m, m.action("Opened Slack", m.openURL)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		work := strings.TrimSpace(m.input.Value())
		if work == "" {
			m.err = errors.InvalidInput("work", "describe what you are working on")
			return m, nil
		}
		m.editing = false
		m.input.Blur()
		m.busy = true
		return m, m.action("Session started", func(ctx context.Context) error {
			_, err := m.client.StartSession(ctx, work)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
