package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const accountLabelWidth = 10

// timeClaims are registered claims holding Unix seconds.
var timeClaims = map[string]bool{"exp": true, "iat": true, "nbf": true}

// renderAccount renders the signed-in user and the password form.
func (m Model) renderAccount() string {
	acct := m.snapshot.Account
	styles := m.theme.Styles()

	var user string
	switch {
	case acct.User != nil:
		user = field(styles, "Username", accountLabelWidth, styles.AccentText.Render(acct.User.Username))
		if extra := userFields(styles, acct.User.Raw); extra != "" {
			user += "\n" + extra
		}
	case acct.Loading():
		user = styles.MutedText.Render("Loading profile...")
	case acct.Err != nil:
		user = styles.DangerText.Render("Profile unavailable: " + errorText(acct.Err))
	default:
		user = styles.FaintText.Render("No profile loaded")
	}

	width := 48
	sections := []string{
		card(styles, "Profile", user, width),
		card(styles, "Session", m.renderClaims(acct.Claims), width),
	}

	if m.editingPassword {
		sections = append(sections,
			styles.FocusCard.Width(width).Render(m.pwForm.view(styles, m.spinner.View(), true)))
	} else {
		hint := styles.AccentText.Render("p") + " " + styles.MutedText.Render("Change password")
		if m.pwForm.message != "" {
			msgStyle := styles.DangerText
			if m.pwForm.ok {
				msgStyle = styles.SuccessText
			}
			hint = msgStyle.Render(m.pwForm.message) + "\n" + hint
		}
		sections = append(sections, card(styles, "Password", hint, width))
	}

	if m.width-2 >= LayoutWideWidth {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.JoinVertical(lipgloss.Left, sections[:2]...), " ", sections[2])
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// userFields lists profile fields other than the username.
func userFields(styles Styles, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var fields map[string]any
	if json.Unmarshal(raw, &fields) != nil {
		return ""
	}
	delete(fields, "username")
	delete(fields, "password")
	return renderFields(styles, fields)
}

func (m Model) renderClaims(claims map[string]any) string {
	styles := m.theme.Styles()
	if len(claims) == 0 {
		return styles.FaintText.Render("No token claims")
	}
	return renderFields(styles, claims)
}

func renderFields(styles Styles, fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, field(styles, truncate(k, accountLabelWidth), accountLabelWidth, styles.Text.Render(claimValue(k, fields[k]))))
	}
	return strings.Join(lines, "\n")
}

// claimValue renders a claim, showing registered time claims as local time.
func claimValue(name string, v any) string {
	if n, ok := v.(float64); ok && timeClaims[name] {
		return time.Unix(int64(n), 0).Format("2006-01-02 15:04:05")
	}
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case float64:
		return fmt.Sprintf("%g", val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
