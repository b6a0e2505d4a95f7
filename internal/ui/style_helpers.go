package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle provides helpers for rendering text with consistent background colors.
// ANSI resets between styled segments otherwise leave gaps in the background.
type BgStyle struct {
	bg    lipgloss.Color
	space string // cached styled space
}

// NewBgStyle creates a new background style helper for the given color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render renders text with a style, ensuring every character including
// spaces carries the background color.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}

	wordStyle := style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return wordStyle.Render(text)
	}

	words := strings.Split(text, " ")
	result := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			result = append(result, wordStyle.Render(w))
		} else {
			result = append(result, "")
		}
	}
	return strings.Join(result, b.space)
}

// Space returns a single styled space.
func (b BgStyle) Space() string {
	return b.space
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	return lipgloss.NewStyle().Background(b.bg).Render(strings.Repeat(" ", n))
}

// Join joins parts with a styled separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, lipgloss.NewStyle().Background(b.bg).Render(sep))
}

// FillLine pads rendered content to fill the specified width with the background color.
func (b BgStyle) FillLine(content string, width int) string {
	return lipgloss.NewStyle().Background(b.bg).Width(width).Render(content)
}

// usageStyle picks a color for a usage fraction.
func usageStyle(styles Styles, frac float64) lipgloss.Style {
	switch {
	case frac >= 0.9:
		return styles.DangerText
	case frac >= 0.7:
		return styles.WarningText
	default:
		return styles.SuccessText
	}
}

// usageBar draws a fixed-width bar for a fraction in [0,1] followed by its
// percentage.
func usageBar(styles Styles, frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	bar := usageStyle(styles, frac).Render(strings.Repeat("█", filled)) +
		styles.FaintText.Render(strings.Repeat("░", width-filled))
	return bar + " " + styles.Text.Render(fmt.Sprintf("%5.1f%%", frac*100))
}

// field renders a muted label padded to width followed by a value.
func field(styles Styles, label string, width int, value string) string {
	return styles.MutedText.Render(padRight(label, width)) + " " + value
}

// card wraps content in a bordered box with a title.
func card(styles Styles, title, content string, width int) string {
	body := styles.CardTitle.Render(title)
	if content != "" {
		body += "\n" + content
	}
	style := styles.Card
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(body)
}
