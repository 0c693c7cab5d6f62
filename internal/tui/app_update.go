package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"followup-cli/internal/bridge"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case dueLoadedMsg:
		m.loading = false
		if msg.err != nil {
			// Keep the last good set on the board; transient poll
			// failures must not blank it.
			m.errText = msg.err.Error()
			if !msg.silent {
				return m, m.showToast("Load failed: " + msg.err.Error())
			}
			return m, nil
		}
		m.errText = ""
		m.set = msg.set
		return m, m.reclassify()

	case refreshTickMsg:
		return m, m.handleRefreshTick(msg)

	case countdownTickMsg:
		return m, m.handleCountdownTick(msg)

	case toastDoneMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case dealersLoadedMsg:
		return m, m.handleDealersLoaded(msg)

	case rowResolvedMsg:
		return m, m.handleRowResolved(msg)

	case markDoneMsg:
		return m, m.handleMarkDone(msg)

	case bridgeEventMsg:
		return m, m.handleBridgeEvent(msg.ev)

	case historyLoadedMsg:
		m.historyLoading = false
		if msg.err != nil {
			return m, m.showToast("History: " + msg.err.Error())
		}
		m.historyFor = msg.client
		m.historyEntries = msg.entries
		m.historyShown = true
		return m, nil
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		m.teardownBridge()
		return m, tea.Quit
	}
	if m.modal == modalOutcome {
		cmd, handled := m.handleModalKey(msg)
		if handled {
			return m, cmd
		}
		return m, nil
	}
	if m.modal == modalQuick {
		if msg.String() == "esc" {
			return m, m.closeModal()
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		m.teardownBridge()
		return m, tea.Quit
	case "up", "k":
		m.sel--
		m.selCall = 0
		m.clampSelection()
		m.historyShown = false
		return m, nil
	case "down", "j":
		m.sel++
		m.selCall = 0
		m.clampSelection()
		m.historyShown = false
		return m, nil
	case "left":
		m.selCall--
		m.clampSelection()
		return m, nil
	case "right":
		m.selCall++
		m.clampSelection()
		return m, nil
	case "enter":
		return m, m.openOutcomeModal()
	case "o":
		return m, m.openQuick()
	case "r":
		return m, m.loadDueCmd(false)
	case "h":
		return m, m.toggleHistory()
	}
	return m, nil
}

func (m *appModel) toggleHistory() tea.Cmd {
	if m.historyShown {
		m.historyShown = false
		return nil
	}
	ic, ok := m.selected()
	if !ok {
		return nil
	}
	if m.historyFor == ic.Item.ClientName && len(m.historyEntries) > 0 {
		m.historyShown = true
		return nil
	}
	m.historyLoading = true
	return m.historyCmd(ic.Item.ClientName)
}

func (m *appModel) handleMarkDone(msg markDoneMsg) tea.Cmd {
	m.loading = false
	logCmd := m.logDispatchCmd(msg.rec, msg.err)
	if msg.err != nil {
		// The modal stays open with its inputs intact so the user can
		// retry deliberately; nothing retries on its own.
		if msg.quick {
			return tea.Batch(logCmd, m.showToast("Save failed: "+msg.err.Error()), m.closeModal())
		}
		return tea.Batch(logCmd, m.showToast("Save failed: "+msg.err.Error()))
	}
	toast := m.showToast("Saved: " + string(msg.rec.Outcome))
	closed := m.closeModal()
	// Quick flow refreshes silently; the modal flow reloads with the
	// spinner so the acted-on card visibly leaves the board.
	reload := m.loadDueCmd(msg.quick)
	return tea.Batch(logCmd, toast, closed, reload)
}

func (m *appModel) handleBridgeEvent(ev bridge.Event) tea.Cmd {
	switch ev.Kind {
	case bridge.EventConnected:
		if m.session != nil {
			return listenBridgeCmd(m.session)
		}
		return nil

	case bridge.EventOrderPunched:
		switch m.modal {
		case modalQuick:
			return m.handleQuickPunched(ev.Dealer, ev.IsNew)
		case modalOutcome:
			m.punchDone = true
			var listen tea.Cmd
			if m.session != nil {
				listen = listenBridgeCmd(m.session)
			}
			return tea.Batch(m.showToast("Order form submitted. Submit to record OR."), listen)
		}
		return nil

	case bridge.EventCloseRequested:
		if m.modal != modalNone {
			return m.closeModal()
		}
		m.teardownBridge()
		return nil

	case bridge.EventClosed:
		m.session = nil
		return nil
	}
	return nil
}
