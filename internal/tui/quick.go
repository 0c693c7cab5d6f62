package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"followup-cli/internal/bridge"
	"followup-cli/internal/model"
)

// Quick-recording flow: record an ad hoc order for any dealer, tracked or
// not, without picking a card first. The dealer list is preloaded so the
// form's init frame can carry it; the order is attributed by resolving the
// dealer name back to a row after the form reports completion.

func (m *appModel) openQuick() tea.Cmd {
	if m.modalCtx != nil || m.modal != modalNone {
		return nil
	}
	m.modal = modalQuick
	m.pauseRefresh()
	m.loading = true
	return m.dealersCmd()
}

func (m *appModel) handleDealersLoaded(msg dealersLoadedMsg) tea.Cmd {
	m.loading = false
	if m.modal != modalQuick {
		return nil
	}
	if msg.err != nil {
		return tea.Batch(m.showToast("Dealers: "+msg.err.Error()), m.closeModal())
	}
	m.quickDealers = msg.dealers
	s, err := m.host.Open(bridge.Launch{
		PunchURL: m.cfg.PunchURL,
		Quick:    true,
		Email:    m.cfg.Email,
		Dealers:  msg.dealers,
	})
	if err != nil {
		return tea.Batch(m.showToast("Order form: "+err.Error()), m.closeModal())
	}
	m.session = s
	return listenBridgeCmd(s)
}

// handleQuickPunched runs on ORDER_PUNCHED in quick mode. A missing dealer
// name aborts before any lookup; a failed lookup aborts after one toast.
// Nothing is retried and nothing is dispatched on either abort.
func (m *appModel) handleQuickPunched(dealer string, isNew bool) tea.Cmd {
	if dealer == "" {
		return tea.Batch(m.showToast("Dealer not received from order form"), m.closeModal())
	}
	m.loading = true
	return m.resolveRowCmd(dealer, isNew)
}

func (m *appModel) handleRowResolved(msg rowResolvedMsg) tea.Cmd {
	m.loading = false
	if m.modal != modalQuick {
		return nil
	}
	if msg.err != nil {
		return tea.Batch(m.showToast("Row lookup: "+msg.err.Error()), m.closeModal())
	}
	if msg.row <= 0 {
		return tea.Batch(m.showToast("Dealer is not tracked: "+msg.dealer), m.closeModal())
	}
	// CallN 0 marks the record as untracked by any scheduled call.
	rec := model.OutcomeRecord{
		RowIndex:    msg.row,
		Date:        m.set.Today,
		Outcome:     model.OutcomeOrderRecorded,
		Remark:      "Quick Order",
		CallN:       0,
		PlannedDate: m.set.Today,
	}
	m.loading = true
	return m.markCmd(rec, true)
}
