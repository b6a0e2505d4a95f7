package ui

import (
	"testing"

	"github.com/five82/pidash/internal/gpio"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	want := []string{"Nightfox", "Kanagawa", "Slate"}
	if len(names) != len(want) {
		t.Fatalf("ThemeNames() returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ThemeNames() = %v, want %v", names, want)
		}
	}
}

func TestNextTheme(t *testing.T) {
	cases := map[string]string{
		"Nightfox": "Kanagawa",
		"Kanagawa": "Slate",
		"Slate":    "Nightfox",
		"Unknown":  "Nightfox",
	}
	for in, want := range cases {
		if got := NextTheme(in); got != want {
			t.Fatalf("NextTheme(%s) = %q, want %s", in, got, want)
		}
	}
}

func TestGetTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		if got := GetTheme(name).Name; got != name {
			t.Fatalf("GetTheme(%s).Name = %q", name, got)
		}
	}
	if got := GetTheme("Dracula").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(unknown).Name = %q, want Nightfox", got)
	}
}

func TestThemesColorEveryPinType(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, pt := range []gpio.PinType{gpio.PinGPIO, gpio.PinPower, gpio.PinGround, gpio.PinMisc} {
			if th.PinColors[pt] == "" {
				t.Fatalf("theme %s has no color for %s pins", name, pt)
			}
		}
	}
}

func TestPinStyleFallsBackToMuted(t *testing.T) {
	th := GetTheme("Slate")
	styles := th.Styles()
	got := styles.PinStyle(gpio.PinType("unknown")).GetBackground()
	want := styles.MutedText.GetForeground()
	if got != want {
		t.Fatalf("PinStyle(unknown) background = %v, want %v", got, want)
	}
}
