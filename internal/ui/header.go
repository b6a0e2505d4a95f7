package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pidash/internal/state"
)

// renderMain composes header, tabs, body and footer to fill the terminal.
func (m Model) renderMain() string {
	header := m.renderHeader()
	footer := m.renderFooter()

	parts := []string{header}
	if m.screen() == screenDashboard {
		parts = append(parts, m.renderTabs())
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Height(p)
	}
	height := m.height - used - lipgloss.Height(footer)
	if height < 1 {
		height = 1
	}

	parts = append(parts, m.renderBody(height), footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderBody(height int) string {
	var content string
	switch m.screen() {
	case screenChecking:
		return m.centered(m.spinner.View()+" "+m.theme.Styles().MutedText.Render("Checking session..."), height)
	case screenSignedOut:
		return m.centered(m.renderAuthCard(), height)
	}

	switch m.tab {
	case TabSystem:
		content = m.renderSystem()
	case TabGPIO:
		content = m.renderGPIO()
	case TabAccount:
		content = m.renderAccount()
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(height).
		MaxHeight(height).
		Padding(0, 1).
		Render(content)
}

func (m Model) centered(content string, height int) string {
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderAuthCard() string {
	styles := m.theme.Styles()
	body := m.authForm.view(styles, m.spinner.View(), true)
	if m.status != "" && m.statusErr {
		body += "\n\n" + styles.DangerText.Render(m.status)
	}
	return styles.FocusCard.Width(44).Padding(1, 2).Render(body)
}

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("pidash", styles.Logo)}

	if snap.Connected {
		parts = append(parts, bg.Render("● online", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("● offline", styles.DangerText))
	}

	device := m.device
	if compact {
		device = truncateMiddle(device, 28)
	}
	if device != "" {
		parts = append(parts, bg.Render(device, styles.MutedText))
	}

	a := snap.Auth
	switch {
	case !a.AuthCheckComplete:
		parts = append(parts, bg.Render("checking session", styles.WarningText))
	case a.IsAuthenticated && a.User != nil:
		parts = append(parts,
			bg.Render("user", styles.FaintText)+bg.Space()+
				bg.Render(a.User.Username, styles.AccentText))
	default:
		parts = append(parts, bg.Render("signed out", styles.MutedText))
	}

	if !snap.LastUpdated.IsZero() && !compact {
		parts = append(parts, bg.Render(snap.LastUpdated.Format("15:04:05"), styles.FaintText))
	}

	if snap.LastError != nil {
		limit := 60
		if compact {
			limit = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), limit), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderTabs renders the tab strip of the dashboard.
func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, 0, len(tabOrder))
	for i, t := range tabOrder {
		label := string(rune('1'+i)) + " " + t.String()
		if t == m.tab {
			tabs = append(tabs, styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, styles.Tab.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if status := m.pageStatus(); status != "" {
		row += "  " + status
	}
	return lipgloss.NewStyle().Width(m.width).Render(row) + "\n"
}

// renderFooter renders the status message and key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	h := m.help
	h.Styles.ShortKey = styles.AccentText
	h.Styles.ShortDesc = styles.MutedText
	h.Styles.ShortSeparator = styles.FaintText

	var hints string
	switch {
	case m.screen() == screenSignedOut:
		hints = h.View(formKeys{keyMap: m.keys, switchable: true})
	case m.screen() == screenDashboard && m.editingPassword:
		hints = h.View(formKeys{keyMap: m.keys})
	default:
		hints = h.View(m.keys)
	}
	hints += "  " + styles.AccentText.Render("T") + styles.FaintText.Render(":"+m.theme.Name)

	lines := []string{hints}
	if m.status != "" && m.screen() != screenSignedOut {
		style := styles.SuccessText
		if m.statusErr {
			style = styles.DangerText
		}
		lines = append([]string{style.Render(truncate(m.status, m.width-2))}, lines...)
	}
	return styles.Footer.Width(m.width).Render(strings.Join(lines, "\n"))
}

// pageStatus describes the load state of the current tab's view.
func (m Model) pageStatus() string {
	styles := m.theme.Styles()
	page := m.currentPage()
	switch {
	case page.Loading():
		return m.spinner.View() + " " + styles.MutedText.Render("loading")
	case page.Err != nil:
		return styles.DangerText.Render("load failed: " + truncate(errorText(page.Err), 60))
	case page.Streaming:
		return styles.SuccessText.Render("● live") + " " + styles.FaintText.Render(formatUpdated(page.UpdatedAt))
	case page.Completed:
		return styles.FaintText.Render(formatUpdated(page.UpdatedAt))
	}
	return ""
}

func (m Model) currentPage() state.Page {
	switch m.tab {
	case TabSystem:
		return m.snapshot.System.Page
	case TabGPIO:
		return m.snapshot.GPIO.Page
	case TabAccount:
		return m.snapshot.Account.Page
	}
	return state.Page{}
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return "updated " + t.Format("15:04:05")
}
