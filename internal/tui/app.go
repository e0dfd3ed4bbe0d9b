package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/chronicle/internal/dashboard"
	"github.com/muurk/chronicle/internal/form"
	"github.com/muurk/chronicle/internal/logging"
	"github.com/muurk/chronicle/internal/notify"
)

// Tab identifies a top-level screen
type Tab int

const (
	TabHome Tab = iota
	TabDevices
	TabSettings
)

var tabNames = []string{"Home", "Devices", "Settings"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "Unknown"
}

// Messages

// opDoneMsg reports a finished dashboard call. Failures are already on the
// notification queue, so the model only needs to redraw.
type opDoneMsg struct {
	err error
}

// formOpenedMsg reports that a modify session finished loading
type formOpenedMsg struct {
	kind form.Kind
	err  error
}

// submitDoneMsg reports the result of a form submission
type submitDoneMsg struct {
	kind    form.Kind
	outcome form.Outcome
	err     error
}

// notificationMsg signals that the toast changed
type notificationMsg struct{}

// Model is the root bubbletea model
type Model struct {
	ctx  context.Context
	dash *dashboard.Dashboard
	snap dashboard.Snapshot

	width  int
	height int

	tab           Tab
	cursor        int
	detail        string // device shown in the detail pane
	confirmDelete string // device awaiting delete confirmation
	modal         *formModal

	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	modalKeys modalKeyMap
}

// New creates the root model for d
func New(ctx context.Context, d *dashboard.Dashboard) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		ctx:       ctx,
		dash:      d,
		snap:      d.Snapshot(),
		width:     DefaultWidth,
		height:    DefaultHeight,
		spinner:   s,
		help:      help.New(),
		keys:      newKeyMap(),
		modalKeys: newModalKeyMap(),
	}
}

// Run starts the dashboard UI and blocks until the user quits
func Run(ctx context.Context, d *dashboard.Dashboard) error {
	p := tea.NewProgram(New(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx))

	d.Notifications().Subscribe(func(notify.Notification, bool) {
		p.Send(notificationMsg{})
	})

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init loads the device list and settings
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.run(m.dash.RefreshDevices),
		m.run(m.dash.RefreshSettings),
	)
}

// run wraps a dashboard call as a command
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctx)}
	}
}

// runDevice wraps a per-device dashboard call as a command
func (m Model) runDevice(fn func(context.Context, string) error, name string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctx, name)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case notificationMsg, opDoneMsg:
		// state lives in the dashboard, redraw below

	case formOpenedMsg:
		if msg.err == nil && m.modal == nil {
			m.modal = newFormModal(m.controller(msg.kind).Snapshot())
			cmds = append(cmds, m.modal.focusAt(0))
		}

	case submitDoneMsg:
		if m.modal != nil && m.modal.kind == msg.kind && msg.err == nil {
			m.modal = nil
		}
		if msg.err != nil && !form.IsValidationError(msg.err) {
			logging.Debug("form submission failed: " + msg.err.Error())
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch {
		case m.modal != nil:
			cmd = m.updateModal(msg)
		case m.confirmDelete != "":
			cmd = m.updateConfirm(msg)
		default:
			var quit bool
			cmd, quit = m.updateMain(msg)
			if quit {
				return m, tea.Quit
			}
		}
		cmds = append(cmds, cmd)
	}

	m.snap = m.dash.Snapshot()
	m.clampCursor()
	return m, tea.Batch(cmds...)
}

func (m *Model) updateMain(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return nil, true

	case key.Matches(msg, m.keys.NextTab):
		m.switchTab((m.tab + 1) % Tab(len(tabNames)))

	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		m.cursor++

	case key.Matches(msg, m.keys.Open):
		if m.detail == "" {
			if name := m.selectedDevice(); name != "" {
				m.detail = name
				return m.runDevice(m.dash.LoadDevice, name), false
			}
		}

	case key.Matches(msg, m.keys.Back):
		m.detail = ""

	case key.Matches(msg, m.keys.Refresh):
		cmds := []tea.Cmd{m.run(m.dash.RefreshDevices), m.run(m.dash.RefreshSettings)}
		if m.detail != "" {
			cmds = append(cmds, m.runDevice(m.dash.LoadDevice, m.detail))
		}
		return tea.Batch(cmds...), false

	case key.Matches(msg, m.keys.New):
		if err := m.dash.OpenCreateDevice(); err != nil {
			return nil, false
		}
		m.modal = newFormModal(m.dash.DeviceForm().Snapshot())
		return m.modal.focusAt(0), false

	case key.Matches(msg, m.keys.Edit):
		return m.openEdit(), false

	case key.Matches(msg, m.keys.Delete):
		if m.tab != TabSettings {
			m.confirmDelete = m.selectedDevice()
		}

	case key.Matches(msg, m.keys.Config):
		if name := m.selectedDevice(); name != "" && m.tab != TabSettings {
			m.detail = name
			return m.runDevice(m.dash.FetchConfig, name), false
		}

	case key.Matches(msg, m.keys.Dismiss):
		m.dash.Notifications().Dismiss()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil, false
}

func (m *Model) openEdit() tea.Cmd {
	ctx := m.ctx
	dash := m.dash
	if m.tab == TabSettings {
		return func() tea.Msg {
			return formOpenedMsg{kind: form.KindSettings, err: dash.OpenSettings(ctx)}
		}
	}
	name := m.selectedDevice()
	if name == "" {
		return nil
	}
	return func() tea.Msg {
		return formOpenedMsg{kind: form.KindDevice, err: dash.OpenModifyDevice(ctx, name)}
	}
}

func (m *Model) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	name := m.confirmDelete
	m.confirmDelete = ""
	if !key.Matches(msg, m.keys.Confirm) {
		return nil
	}
	if m.detail == name {
		m.detail = ""
	}
	return m.runDevice(m.dash.DeleteDevice, name)
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	c := m.controller(m.modal.kind)

	switch {
	case key.Matches(msg, m.modalKeys.Cancel):
		if err := c.Cancel(); err != nil {
			// a submission is in flight
			return nil
		}
		m.modal = nil
		return nil

	case key.Matches(msg, m.modalKeys.Submit):
		return m.submit(c)

	case msg.Type == tea.KeyEnter:
		if m.modal.onLast() {
			return m.submit(c)
		}
		return m.modal.next()

	case key.Matches(msg, m.modalKeys.Next):
		return m.modal.next()

	case key.Matches(msg, m.modalKeys.Prev):
		return m.modal.prev()
	}
	return m.modal.update(msg)
}

func (m *Model) submit(c *form.Controller) tea.Cmd {
	if c.State() != form.StateOpen {
		return nil
	}
	if err := m.modal.apply(c); err != nil {
		return nil
	}

	ctx := m.ctx
	kind := m.modal.kind
	dash := m.dash
	return func() tea.Msg {
		var (
			outcome form.Outcome
			err     error
		)
		if kind == form.KindSettings {
			outcome, err = dash.SaveSettings(ctx)
		} else {
			outcome, err = dash.SubmitDevice(ctx)
		}
		return submitDoneMsg{kind: kind, outcome: outcome, err: err}
	}
}

func (m *Model) controller(kind form.Kind) *form.Controller {
	if kind == form.KindSettings {
		return m.dash.SettingsForm()
	}
	return m.dash.DeviceForm()
}

func (m *Model) switchTab(t Tab) {
	m.tab = t
	m.cursor = 0
	m.detail = ""
	m.confirmDelete = ""
}

// visibleDevices returns the rows listed on the current tab
func (m Model) visibleDevices() []dashboard.DeviceView {
	switch m.tab {
	case TabHome:
		return m.snap.Featured
	case TabDevices:
		return m.snap.Devices
	default:
		return nil
	}
}

// selectedDevice returns the device in the detail pane, or the one under
// the cursor
func (m Model) selectedDevice() string {
	if m.detail != "" {
		return m.detail
	}
	rows := m.visibleDevices()
	if m.cursor < len(rows) {
		return rows[m.cursor].Name
	}
	return ""
}

func (m *Model) clampCursor() {
	n := len(m.visibleDevices())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
