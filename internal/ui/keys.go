package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	ForceQuit  key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Escape     key.Binding
	Logout     key.Binding
	Reload     key.Binding

	// Tab switching
	TabSystem  key.Binding
	TabGPIO    key.Binding
	TabAccount key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding

	// System actions
	CopyHost key.Binding
	CopyIP   key.Binding

	// GPIO actions
	ToggleUsed   key.Binding
	ToggleOutput key.Binding
	ToggleHigh   key.Binding
	Submit       key.Binding

	// Account actions
	EditPassword key.Binding

	// Forms
	NextField  key.Binding
	PrevField  key.Binding
	SwitchForm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "Quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "l", "right"),
			key.WithHelp("tab", "Next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "h", "left"),
			key.WithHelp("shift+tab", "Previous tab"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Leave form"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Sign out"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload tab"),
		),

		TabSystem: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "System"),
		),
		TabGPIO: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "GPIO"),
		),
		TabAccount: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Account"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),

		CopyHost: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Copy hostname"),
		),
		CopyIP: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy IP address"),
		),

		ToggleUsed: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Toggle used"),
		),
		ToggleOutput: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Toggle input/output"),
		),
		ToggleHigh: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle high/low"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit"),
		),

		EditPassword: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Change password"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		SwitchForm: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Sign in / sign up"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Reload, k.Logout, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped by column.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TabSystem, k.TabGPIO, k.TabAccount, k.NextTab, k.PrevTab},
		{k.CopyHost, k.CopyIP, k.Reload},
		{k.Up, k.Down, k.ToggleUsed, k.ToggleOutput, k.ToggleHigh, k.Submit},
		{k.EditPassword, k.Logout, k.CycleTheme, k.Help, k.Quit},
	}
}

// formKeys is the help shown while a form has focus.
type formKeys struct {
	keyMap
	switchable bool
}

func (f formKeys) ShortHelp() []key.Binding {
	bindings := []key.Binding{f.NextField, f.Submit}
	if f.switchable {
		bindings = append(bindings, f.SwitchForm)
	} else {
		bindings = append(bindings, f.Escape)
	}
	return append(bindings, f.ForceQuit)
}

func (f formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{f.ShortHelp()}
}
