// Package ui provides the Bubble Tea TUI for pidash.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/auth"
	"github.com/five82/pidash/internal/gpio"
	"github.com/five82/pidash/internal/prefs"
	"github.com/five82/pidash/internal/state"
)

// Tab is one page of the signed-in dashboard.
type Tab int

const (
	TabSystem Tab = iota
	TabGPIO
	TabAccount

	noTab Tab = -1
)

var tabOrder = []Tab{TabSystem, TabGPIO, TabAccount}

func (t Tab) String() string {
	switch t {
	case TabSystem:
		return "System"
	case TabGPIO:
		return "GPIO"
	case TabAccount:
		return "Account"
	default:
		return ""
	}
}

// pref is the tab's name in the preferences file.
func (t Tab) pref() string {
	return strings.ToLower(t.String())
}

func tabFromPref(name string) Tab {
	for _, t := range tabOrder {
		if t.pref() == strings.ToLower(strings.TrimSpace(name)) {
			return t
		}
	}
	return TabSystem
}

// Session is the part of session.Session the UI drives.
type Session interface {
	Login(ctx context.Context, username, password string) auth.FormResult
	Signup(ctx context.Context, username, password, confirm string) auth.FormResult
	ChangePassword(ctx context.Context, current, password, confirm string) auth.FormResult
	Logout()

	OpenSystem(ctx context.Context) error
	CloseSystem()
	OpenGPIO(ctx context.Context) error
	CloseGPIO()
	OpenAccount(ctx context.Context) error
	CloseAccount()

	TogglePin(pin int, field gpio.Field)
	SubmitGPIO(ctx context.Context) (gpio.Command, error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   Session
	Store     *state.Store
	Device    string
	Tick      time.Duration
	ThemeName string
	StartTab  string
	PrefsPath string
	Log       zerolog.Logger
	// Clipboard replaces the system clipboard writer.
	Clipboard func(string) error
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	sess      Session
	store     *state.Store
	device    string
	prefsPath string
	tick      time.Duration
	log       zerolog.Logger
	copy      func(string) error

	// UI state
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot state.Snapshot

	// Navigation
	tab     Tab
	mounted Tab
	// signingOut suppresses remounting until a snapshot shows the logout.
	signingOut bool

	// Forms
	authForm        form
	pwForm          form
	editingPassword bool

	// GPIO cursor, an index into snapshot.GPIO.UsablePins.
	pinCursor int

	// Status line
	status    string
	statusErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	return Model{
		ctx:       ctx,
		sess:      opts.Session,
		store:     opts.Store,
		device:    opts.Device,
		prefsPath: prefsPath,
		tick:      tick,
		log:       opts.Log.With().Str("component", "ui").Logger(),
		copy:      copyFn,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:     GetTheme(themeName),
		tab:       tabFromPref(opts.StartTab),
		mounted:   noTab,
		authForm:  newForm(formLogin),
		pwForm:    newForm(formPassword),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.tick),
		m.spinner.Tick,
		m.authForm.setFocus(0),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampCursor()
		return m.syncMount()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case viewOpenedMsg:
		if msg.err != nil && msg.tab == m.mounted {
			m.log.Warn().Err(msg.err).Str("tab", msg.tab.String()).Msg("view load failed")
		}
		return m, nil

	case formResultMsg:
		return m.handleFormResult(msg)

	case gpioSubmittedMsg:
		switch {
		case msg.err != nil:
			m.setStatus("GPIO command failed: "+errorText(msg.err), true)
		case len(msg.cmd) == 0:
			m.setStatus("No pins selected", true)
		default:
			m.setStatus(fmt.Sprintf("GPIO command sent (%d %s)", len(msg.cmd), plural(len(msg.cmd), "pin", "pins")), false)
		}
		return m, nil

	case statusMsg:
		m.setStatus(msg.text, msg.err)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// screen is what the main area shows for the current auth state.
type screen int

const (
	screenChecking screen = iota
	screenSignedOut
	screenDashboard
)

func (m Model) screen() screen {
	a := m.snapshot.Auth
	switch {
	case !a.AuthCheckComplete:
		return screenChecking
	case !a.IsAuthenticated || m.signingOut:
		return screenSignedOut
	default:
		return screenDashboard
	}
}

// syncMount opens the current tab's view while signed in and closes it
// otherwise.
func (m Model) syncMount() (tea.Model, tea.Cmd) {
	authed := m.snapshot.Auth.AuthCheckComplete && m.snapshot.Auth.IsAuthenticated
	if m.signingOut {
		if !authed {
			m.signingOut = false
		}
		return m, nil
	}
	if !authed {
		m.unmount()
		return m, nil
	}
	if m.mounted == m.tab {
		return m, nil
	}
	m.unmount()
	return m, m.mount(m.tab)
}

func (m *Model) mount(tab Tab) tea.Cmd {
	m.mounted = tab
	if tab == TabGPIO {
		m.pinCursor = 0
	}
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		var err error
		switch tab {
		case TabSystem:
			err = sess.OpenSystem(ctx)
		case TabGPIO:
			err = sess.OpenGPIO(ctx)
		case TabAccount:
			err = sess.OpenAccount(ctx)
		}
		return viewOpenedMsg{tab: tab, err: err}
	}
}

func (m *Model) unmount() {
	switch m.mounted {
	case TabSystem:
		m.sess.CloseSystem()
	case TabGPIO:
		m.sess.CloseGPIO()
	case TabAccount:
		m.sess.CloseAccount()
		m.editingPassword = false
		m.pwForm = newForm(formPassword)
	}
	m.mounted = noTab
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch m.screen() {
	case screenChecking:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	case screenSignedOut:
		return m.handleAuthFormKey(msg)
	}

	if m.editingPassword {
		return m.handlePasswordFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(m.tab + 1)

	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(m.tab - 1)

	case key.Matches(msg, m.keys.TabSystem):
		return m.switchTab(TabSystem)

	case key.Matches(msg, m.keys.TabGPIO):
		return m.switchTab(TabGPIO)

	case key.Matches(msg, m.keys.TabAccount):
		return m.switchTab(TabAccount)

	case key.Matches(msg, m.keys.Logout):
		m.sess.Logout()
		m.unmount()
		m.signingOut = true
		m.authForm = newForm(formLogin)
		m.setStatus("Signed out", false)
		return m, m.authForm.setFocus(0)

	case key.Matches(msg, m.keys.Reload):
		m.unmount()
		return m, m.mount(m.tab)
	}

	switch m.tab {
	case TabSystem:
		return m.handleSystemKey(msg)
	case TabGPIO:
		return m.handleGPIOKey(msg)
	case TabAccount:
		if key.Matches(msg, m.keys.EditPassword) {
			m.editingPassword = true
			return m, m.pwForm.setFocus(0)
		}
	}
	return m, nil
}

func (m Model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	n := Tab(len(tabOrder))
	m.tab = ((t % n) + n) % n
	m.status = ""
	m.savePrefs()
	return m.syncMount()
}

func (m Model) handleAuthFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.authForm.submitting {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.SwitchForm):
		next := formSignup
		if m.authForm.kind == formSignup {
			next = formLogin
		}
		username := m.authForm.value(0)
		m.authForm = newForm(next)
		m.authForm.inputs[0].SetValue(username)
		return m, m.authForm.setFocus(0)
	case key.Matches(msg, m.keys.NextField):
		return m, m.authForm.setFocus(m.authForm.focus + 1)
	case key.Matches(msg, m.keys.PrevField):
		return m, m.authForm.setFocus(m.authForm.focus - 1)
	case key.Matches(msg, m.keys.Submit):
		if !m.authForm.onLast() {
			return m, m.authForm.setFocus(m.authForm.focus + 1)
		}
		return m.submitAuth()
	}
	var cmd tea.Cmd
	m.authForm, cmd = m.authForm.update(msg)
	return m, cmd
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	f := &m.authForm
	f.submitting = true
	sess, ctx, kind := m.sess, m.ctx, f.kind
	username, password := strings.TrimSpace(f.value(0)), f.value(1)
	submit := func() tea.Msg {
		return formResultMsg{kind: kind, res: sess.Login(ctx, username, password)}
	}
	if kind == formSignup {
		confirm := f.value(2)
		submit = func() tea.Msg {
			return formResultMsg{kind: kind, res: sess.Signup(ctx, username, password, confirm)}
		}
	}
	return m, tea.Batch(submit, m.spinner.Tick)
}

func (m Model) handlePasswordFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pwForm.submitting {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.editingPassword = false
		m.pwForm.blur()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		return m, m.pwForm.setFocus(m.pwForm.focus + 1)
	case key.Matches(msg, m.keys.PrevField):
		return m, m.pwForm.setFocus(m.pwForm.focus - 1)
	case key.Matches(msg, m.keys.Submit):
		if !m.pwForm.onLast() {
			return m, m.pwForm.setFocus(m.pwForm.focus + 1)
		}
		m.pwForm.submitting = true
		sess, ctx := m.sess, m.ctx
		current, password, confirm := m.pwForm.value(0), m.pwForm.value(1), m.pwForm.value(2)
		submit := func() tea.Msg {
			return formResultMsg{kind: formPassword, res: sess.ChangePassword(ctx, current, password, confirm)}
		}
		return m, tea.Batch(submit, m.spinner.Tick)
	}
	var cmd tea.Cmd
	m.pwForm, cmd = m.pwForm.update(msg)
	return m, cmd
}

func (m Model) handleFormResult(msg formResultMsg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case formLogin, formSignup:
		if m.authForm.kind != msg.kind {
			return m, nil
		}
		m.authForm.apply(msg.res)
		if !msg.res.Success {
			return m, nil
		}
		if msg.kind == formSignup {
			username := m.authForm.value(0)
			m.authForm = newForm(formLogin)
			m.authForm.inputs[0].SetValue(username)
			m.authForm.message, m.authForm.ok = "Account created. Sign in to continue.", true
			return m, m.authForm.setFocus(1)
		}
		m.authForm.inputs[1].SetValue("")
		m.signingOut = false
		m.setStatus("Signed in", false)
		return m, nil

	case formPassword:
		m.pwForm.apply(msg.res)
		if msg.res.Success {
			message := m.pwForm.message
			m.pwForm.clear()
			m.pwForm.message, m.pwForm.ok = message, true
			if m.pwForm.message == "" {
				m.pwForm.message = "Password updated"
			}
			m.editingPassword = false
			m.pwForm.blur()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSystemKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	device := m.snapshot.System.General.Device
	switch {
	case key.Matches(msg, m.keys.CopyHost):
		return m, m.copyCmd("hostname", device.Hostname)
	case key.Matches(msg, m.keys.CopyIP):
		return m, m.copyCmd("IP address", device.PrimaryIP())
	}
	return m, nil
}

func (m Model) handleGPIOKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pins := m.snapshot.GPIO.UsablePins
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.pinCursor < len(pins)-1 {
			m.pinCursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.pinCursor > 0 {
			m.pinCursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if !m.snapshot.GPIO.CanSubmit {
			m.setStatus("Mark at least one pin as used first", true)
			return m, nil
		}
		sess, ctx := m.sess, m.ctx
		return m, func() tea.Msg {
			cmd, err := sess.SubmitGPIO(ctx)
			return gpioSubmittedMsg{cmd: cmd, err: err}
		}
	}

	field, ok := m.pinField(msg)
	if !ok || len(pins) == 0 {
		return m, nil
	}
	m.sess.TogglePin(pins[m.pinCursor], field)
	return m, nil
}

func (m Model) pinField(msg tea.KeyMsg) (gpio.Field, bool) {
	switch {
	case key.Matches(msg, m.keys.ToggleUsed):
		return gpio.FieldUsed, true
	case key.Matches(msg, m.keys.ToggleOutput):
		return gpio.FieldOutput, true
	case key.Matches(msg, m.keys.ToggleHigh):
		return gpio.FieldHigh, true
	}
	return 0, false
}

func (m *Model) clampCursor() {
	n := len(m.snapshot.GPIO.UsablePins)
	if m.pinCursor >= n {
		m.pinCursor = n - 1
	}
	if m.pinCursor < 0 {
		m.pinCursor = 0
	}
}

func (m Model) copyCmd(what, value string) tea.Cmd {
	if value == "" {
		return func() tea.Msg {
			return statusMsg{text: "No " + what + " reported yet", err: true}
		}
	}
	write := m.copy
	return func() tea.Msg {
		if err := write(value); err != nil {
			return statusMsg{text: "Copy failed: " + err.Error(), err: true}
		}
		return statusMsg{text: "Copied " + what + " " + value}
	}
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, StartTab: m.tab.pref()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn().Err(err).Msg("save prefs")
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type viewOpenedMsg struct {
	tab Tab
	err error
}

type formResultMsg struct {
	kind formKind
	res  auth.FormResult
}

type gpioSubmittedMsg struct {
	cmd gpio.Command
	err error
}

type statusMsg struct {
	text string
	err  bool
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	ctx := m.ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
