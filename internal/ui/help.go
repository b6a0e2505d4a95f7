package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	k := m.keys

	sections := []helpSection{
		{title: "Navigation", keys: []key.Binding{k.TabSystem, k.TabGPIO, k.TabAccount, k.NextTab, k.PrevTab, k.Reload}},
		{title: "System", keys: []key.Binding{k.CopyHost, k.CopyIP}},
		{title: "GPIO", keys: []key.Binding{k.Up, k.Down, k.ToggleUsed, k.ToggleOutput, k.ToggleHigh, k.Submit}},
		{title: "Account", keys: []key.Binding{k.EditPassword, k.Escape, k.Logout}},
		{title: "General", keys: []key.Binding{k.CycleTheme, k.Help, k.Quit, k.ForceQuit}},
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, binding := range section.keys {
			h := binding.Help()
			b.WriteString(keyStyle.Render(h.Key))
			b.WriteString(styles.Text.Render(h.Desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(40)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	keys  []key.Binding
}
