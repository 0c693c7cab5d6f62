package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Countdown chips.
//
// All visible chips share a single 1 Hz tick tagged with countdownSeq.
// reclassify retires the previous generation before arming the next, so a
// stale tick from an earlier render is dropped on arrival; there is never
// more than one live ticker no matter how many items count down.

// handleCountdownTick re-renders the chips for the current second. When a
// pending instant has passed, reclassify flips the item to overdue; once
// nothing is pending the registry stops ticking.
func (m *appModel) handleCountdownTick(msg countdownTickMsg) tea.Cmd {
	if msg.seq != m.countdownSeq || !m.countdownOn {
		return nil
	}
	return m.reclassify()
}
