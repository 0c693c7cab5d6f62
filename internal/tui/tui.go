package tui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"followup-cli/internal/api"
	"followup-cli/internal/store"
)

// Run starts the interactive board and blocks until the user quits.
func Run(cfg *store.GlobalConfig) error { return run(cfg, false) }

// RunQuick starts the board directly inside the quick-recording flow.
func RunQuick(cfg *store.GlobalConfig) error { return run(cfg, true) }

func run(cfg *store.GlobalConfig, quick bool) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("no service URL configured: set baseUrl in config or pass --base-url")
	}
	applyColorProfilePreference(cfg.TUI)

	m := newAppModel(cfg, &api.Client{BaseURL: cfg.BaseURL, Token: cfg.Token})
	if quick {
		m.modal = modalQuick
		m.pauseRefresh()
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if path := strings.TrimSpace(os.Getenv("FOLLOWUP_TUI_DEBUG_LOG")); path != "" {
		if f, err := tea.LogToFile(path, "followup"); err == nil {
			defer f.Close()
		}
	}
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
