package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"followup-cli/internal/bridge"
	"followup-cli/internal/model"
)

// Outcome modal.
//
// The modal is single-flight: openOutcomeModal refuses while modalCtx is
// live, so a second enter (or a bridge event racing a close) can never stack
// contexts. Every close path funnels through closeModal, which also tears
// down any bridge session and resumes the refresh scheduler.

func (m *appModel) openOutcomeModal() tea.Cmd {
	if m.modalCtx != nil || m.modal != modalNone {
		return nil
	}
	ic, ok := m.selected()
	if !ok || m.selCall >= len(ic.Item.DueCalls) {
		return nil
	}
	// Expired calls stay visible on overdue cards but are never actionable.
	if !ic.ActiveCalls[m.selCall] {
		return m.showToast("This call's window has expired")
	}
	dc := ic.Item.DueCalls[m.selCall]
	m.modalCtx = &modalContext{
		rowIndex:   ic.Item.RowIndex,
		dateISO:    m.set.Today,
		callN:      dc.CallN,
		callDate:   dc.CallDate,
		clientName: ic.Item.ClientName,
	}
	m.modal = modalOutcome
	m.outcome = ""
	m.remark.SetValue("")
	m.remark.Blur()
	m.schedShown = false
	m.punchDone = false
	m.pauseRefresh()
	return nil
}

// applyOutcome is the modal's outcome change handler: it first resets every
// sub-block (including any live bridge session), then reveals the one the
// new outcome needs.
func (m *appModel) applyOutcome(o model.Outcome) tea.Cmd {
	if m.modal != modalOutcome || m.modalCtx == nil {
		return nil
	}
	m.teardownBridge()
	m.schedShown = false
	m.punchDone = false
	m.outcome = o

	switch o {
	case model.OutcomeScheduleFollowUp:
		m.schedShown = true
		m.prefillSchedule(m.now())
		return m.focusSchedule(schedYear)
	case model.OutcomeOrderRecorded:
		s, err := m.host.Open(bridge.Launch{
			PunchURL:    m.cfg.PunchURL,
			ClientName:  m.modalCtx.clientName,
			CallN:       m.modalCtx.callN,
			PlannedDate: m.modalCtx.callDate,
			RowIndex:    m.modalCtx.rowIndex,
		})
		if err != nil {
			m.outcome = ""
			return m.showToast("Order form: " + err.Error())
		}
		m.session = s
		return listenBridgeCmd(s)
	}
	return nil
}

func (m *appModel) prefillSchedule(now time.Time) {
	vals := [schedFieldCount]string{
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
		fmt.Sprintf("%02d", now.Hour()),
		fmt.Sprintf("%02d", now.Minute()),
	}
	for i := range m.schedIn {
		m.schedIn[i].SetValue(vals[i])
	}
}

func (m *appModel) focusSchedule(f scheduleField) tea.Cmd {
	m.schedFocus = f
	m.remark.Blur()
	var cmd tea.Cmd
	for i := range m.schedIn {
		if scheduleField(i) == f {
			cmd = m.schedIn[i].Focus()
		} else {
			m.schedIn[i].Blur()
		}
	}
	return cmd
}

// parseSchedule assembles the SF inputs into an instant. The instant must be
// strictly in the future.
func (m *appModel) parseSchedule() (time.Time, error) {
	var n [schedFieldCount]int
	for i := range m.schedIn {
		v, err := strconv.Atoi(strings.TrimSpace(m.schedIn[i].Value()))
		if err != nil {
			return time.Time{}, fmt.Errorf("incomplete date/time")
		}
		n[i] = v
	}
	now := m.now()
	when := time.Date(n[schedYear], time.Month(n[schedMonth]), n[schedDay],
		n[schedHour], n[schedMinute], 0, 0, now.Location())
	if when.Month() != time.Month(n[schedMonth]) || when.Day() != n[schedDay] {
		return time.Time{}, fmt.Errorf("invalid calendar date")
	}
	if !when.After(now) {
		return time.Time{}, fmt.Errorf("follow-up must be in the future")
	}
	return when, nil
}

func (m *appModel) submitOutcome() tea.Cmd {
	if m.modal != modalOutcome || m.modalCtx == nil {
		return nil
	}
	if m.outcome == "" {
		return m.showToast("Please select an outcome")
	}
	rec := model.OutcomeRecord{
		RowIndex:    m.modalCtx.rowIndex,
		Date:        m.modalCtx.dateISO,
		Outcome:     m.outcome,
		Remark:      strings.TrimSpace(m.remark.Value()),
		CallN:       m.modalCtx.callN,
		PlannedDate: m.modalCtx.callDate,
	}
	switch m.outcome {
	case model.OutcomeScheduleFollowUp:
		when, err := m.parseSchedule()
		if err != nil {
			return m.showToast(err.Error())
		}
		rec.ScheduleAt = &when
	case model.OutcomeOrderRecorded:
		if m.cfg.RequirePunchCompletion && !m.punchDone {
			return m.showToast("Submit the order form first")
		}
	}
	if err := rec.Validate(); err != nil {
		return m.showToast(err.Error())
	}
	m.loading = true
	return m.markCmd(rec, false)
}

// closeModal is the single teardown path: bridge session, context, paused
// refresh. Safe to call when nothing is open.
func (m *appModel) closeModal() tea.Cmd {
	m.teardownBridge()
	m.modal = modalNone
	m.modalCtx = nil
	m.outcome = ""
	m.schedShown = false
	m.punchDone = false
	m.quickDealers = nil
	m.remark.Blur()
	if m.refreshPaused {
		return m.resumeRefresh()
	}
	return nil
}

func (m *appModel) teardownBridge() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}

// handleModalKey routes keys while the outcome modal is open. A focused
// remark input captures everything except esc (blur) and enter (submit) so
// outcome shortcuts cannot fire mid-sentence.
func (m *appModel) handleModalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.remark.Focused() {
		switch msg.String() {
		case "esc":
			m.remark.Blur()
			return nil, true
		case "enter":
			return m.submitOutcome(), true
		}
		var cmd tea.Cmd
		m.remark, cmd = m.remark.Update(msg)
		return cmd, true
	}
	switch msg.String() {
	case "esc":
		return m.closeModal(), true
	case "enter":
		return m.submitOutcome(), true
	case "n":
		return m.applyOutcome(model.OutcomeNoResponse), true
	case "s":
		return m.applyOutcome(model.OutcomeScheduleFollowUp), true
	case "o":
		return m.applyOutcome(model.OutcomeOrderRecorded), true
	case "m":
		for i := range m.schedIn {
			m.schedIn[i].Blur()
		}
		return m.remark.Focus(), true
	case "tab", "shift+tab":
		if !m.schedShown {
			return nil, true
		}
		next := m.schedFocus + 1
		if msg.String() == "shift+tab" {
			next = m.schedFocus - 1
		}
		if next < 0 {
			next = schedFieldCount - 1
		}
		if next >= schedFieldCount {
			next = 0
		}
		return m.focusSchedule(next), true
	}
	if m.schedShown {
		var cmd tea.Cmd
		m.schedIn[m.schedFocus], cmd = m.schedIn[m.schedFocus].Update(msg)
		return cmd, true
	}
	return nil, false
}
