package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Auto-refresh scheduler.
//
// bubbletea timers cannot be cancelled, so each armed tick carries the
// refreshSeq it was armed under. Pausing bumps the seq: the armed tick still
// arrives, but it no longer matches and is dropped without re-arming, so a
// paused scheduler fires zero polls. Resuming bumps again and arms one fresh
// tick.

func (m *appModel) scheduleRefresh() tea.Cmd {
	seq := m.refreshSeq
	return tea.Tick(m.cfg.RefreshInterval(), func(time.Time) tea.Msg {
		return refreshTickMsg{seq: seq}
	})
}

func (m *appModel) pauseRefresh() {
	m.refreshPaused = true
	m.refreshSeq++
}

func (m *appModel) resumeRefresh() tea.Cmd {
	m.refreshPaused = false
	m.refreshSeq++
	return m.scheduleRefresh()
}

// handleRefreshTick drops stale or paused ticks; a live tick polls silently
// and re-arms.
func (m *appModel) handleRefreshTick(msg refreshTickMsg) tea.Cmd {
	if msg.seq != m.refreshSeq || m.refreshPaused {
		return nil
	}
	return tea.Batch(m.loadDueCmd(true), m.scheduleRefresh())
}
