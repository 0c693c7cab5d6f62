package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"followup-cli/internal/model"
	"followup-cli/internal/store"
)

// Theme/palette helpers.
//
// The TUI must remain readable on both light and dark terminal backgrounds.
// We use lipgloss.AdaptiveColor where possible and only apply "faint" styling
// on dark backgrounds (faint text on light terminals often becomes illegible).

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted   lipgloss.TerminalColor = ac("240", "243")
	colorAccent  lipgloss.TerminalColor = ac("27", "62") // blue
	colorOverdue lipgloss.TerminalColor = ac("160", "203")
	colorActive  lipgloss.TerminalColor = ac("28", "77")
	colorExpired lipgloss.TerminalColor = ac("246", "240")

	colorSelectedBorder lipgloss.TerminalColor = ac("232", "255")
	colorCardBorder     lipgloss.TerminalColor = ac("250", "243")

	colorTagRed    lipgloss.TerminalColor = ac("160", "196")
	colorTagYellow lipgloss.TerminalColor = ac("136", "220")
	colorTagGreen  lipgloss.TerminalColor = ac("28", "82")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func colorForTag(tag model.ColorTag) (lipgloss.TerminalColor, bool) {
	switch tag {
	case model.ColorRed:
		return colorTagRed, true
	case model.ColorYellow:
		return colorTagYellow, true
	case model.ColorGreen:
		return colorTagGreen, true
	}
	return nil, false
}

// applyColorProfilePreference sets Lip Gloss's color profile for the TUI.
//
// termenv.EnvColorProfile respects CLICOLOR/CLICOLOR_FORCE, which is useful
// for non-interactive output but can accidentally disable colors in a TUI, so
// only NO_COLOR and explicit config are honored here.
func applyColorProfilePreference(cfg *store.TUIConfig) {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	if cfg != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.ColorProfile)) {
		case "truecolor":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "ansi":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
		if cfg.DarkBackground != nil {
			lipgloss.SetHasDarkBackground(*cfg.DarkBackground)
		}
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
}
