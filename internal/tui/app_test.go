package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"followup-cli/internal/bridge"
	"followup-cli/internal/model"
	"followup-cli/internal/store"
)

type fakeService struct {
	set      model.ItemSet
	dueErr   error
	dealers  []string
	rowFor   map[string]int
	rowErr   error
	marked   []model.OutcomeRecord
	markErr  error
	dueCalls int
}

func (f *fakeService) Due(context.Context) (model.ItemSet, error) {
	f.dueCalls++
	return f.set, f.dueErr
}
func (f *fakeService) Dealers(context.Context, string) ([]string, error) {
	return f.dealers, nil
}
func (f *fakeService) RowByDealer(_ context.Context, _ string, dealer string) (int, error) {
	if f.rowErr != nil {
		return 0, f.rowErr
	}
	return f.rowFor[dealer], nil
}
func (f *fakeService) RemarkHistory(context.Context, string) ([]model.RemarkEntry, error) {
	return nil, nil
}
func (f *fakeService) Mark(_ context.Context, rec model.OutcomeRecord) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, rec)
	return nil
}

var testNow = time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

func testSet() model.ItemSet {
	return model.ItemSet{
		Today: "2026-01-12",
		Items: []model.Item{
			{RowIndex: 2, ClientName: "Acme", DueCalls: []model.DueCall{{CallN: 1, CallDate: "2026-01-12"}}},
			{RowIndex: 3, ClientName: "Globex", DueCalls: []model.DueCall{{CallN: 2, CallDate: "2026-01-02"}}},
		},
	}
}

func newTestModel(t *testing.T, svc *fakeService) appModel {
	t.Helper()
	t.Setenv("FOLLOWUP_CONFIG_DIR", t.TempDir())
	cfg := &store.GlobalConfig{
		BaseURL:  "https://svc.test",
		Email:    "op@test",
		PunchURL: "https://forms.example/orderPunch.html",
	}
	m := newAppModel(cfg, svc)
	m.now = func() time.Time { return testNow }
	m.dlog = store.DispatchLog{Dir: t.TempDir()}
	m.host.OpenBrowser = func(string) error { return nil }
	return m
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	nm, cmd := m.Update(msg)
	return nm.(appModel), cmd
}

func loadSet(t *testing.T, m appModel, set model.ItemSet) appModel {
	t.Helper()
	m, _ = update(t, m, dueLoadedMsg{set: set})
	return m
}

func key(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOverdueItemVisibleButCallNotSelectable(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())

	vis := m.visible()
	if len(vis) != 2 {
		t.Fatalf("visible = %d, want 2", len(vis))
	}
	// Move to Globex: its only call is ten days old, so its bucket is over.
	m, _ = update(t, m, key("down"))
	m, _ = update(t, m, key("enter"))
	if m.modal != modalNone || m.modalCtx != nil {
		t.Fatal("expired call must not open the outcome modal")
	}
	if m.toast == "" {
		t.Fatal("expected an expired-call toast")
	}
}

func TestModalSingleFlight(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())

	m, _ = update(t, m, key("enter"))
	if m.modal != modalOutcome || m.modalCtx == nil {
		t.Fatal("modal did not open for an active call")
	}
	first := m.modalCtx
	// A second open attempt while the context is live is refused.
	cmd := m.openOutcomeModal()
	if cmd != nil || m.modalCtx != first {
		t.Fatal("second open must be refused while the modal is live")
	}
}

func TestModalPausesAndResumeRefresh(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())

	armedSeq := m.refreshSeq
	m, _ = update(t, m, key("enter"))
	if !m.refreshPaused {
		t.Fatal("opening the modal must pause auto-refresh")
	}
	// The tick armed before the pause arrives stale and must not poll or
	// re-arm.
	before := svc.dueCalls
	m, cmd := update(t, m, refreshTickMsg{seq: armedSeq})
	if cmd != nil || svc.dueCalls != before {
		t.Fatal("stale tick fired a poll while paused")
	}

	m, _ = update(t, m, key("esc"))
	if m.refreshPaused || m.modalCtx != nil {
		t.Fatal("cancel must close the modal and resume refresh")
	}
	// A live tick polls again.
	_, cmd = update(t, m, refreshTickMsg{seq: m.refreshSeq})
	if cmd == nil {
		t.Fatal("live tick must poll and re-arm")
	}
}

func TestPauseGenerationsDropOlderTicks(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())

	m.pauseRefresh()
	seqAfterFirst := m.refreshSeq
	m.pauseRefresh()
	// A tick from the first pause generation is stale too.
	if cmd := m.handleRefreshTick(refreshTickMsg{seq: seqAfterFirst}); cmd != nil {
		t.Fatal("tick from an older pause generation must be dropped")
	}
	m.resumeRefresh()
	if m.refreshPaused {
		t.Fatal("resume must unpause")
	}
}

func TestSubmitNoResponse(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())

	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("n"))
	if m.outcome != model.OutcomeNoResponse {
		t.Fatalf("outcome = %q, want NR", m.outcome)
	}
	m, cmd := update(t, m, key("enter"))
	if cmd == nil {
		t.Fatal("submit must dispatch")
	}
	msg := cmd()
	done, ok := msg.(markDoneMsg)
	if !ok {
		t.Fatalf("submit cmd returned %T, want markDoneMsg", msg)
	}
	if done.err != nil {
		t.Fatalf("dispatch: %v", done.err)
	}
	if len(svc.marked) != 1 || svc.marked[0].Outcome != model.OutcomeNoResponse ||
		svc.marked[0].RowIndex != 2 || svc.marked[0].CallN != 1 {
		t.Fatalf("dispatched record wrong: %+v", svc.marked)
	}
	m, _ = update(t, m, done)
	if m.modal != modalNone || m.refreshPaused {
		t.Fatal("successful submit must close the modal and resume refresh")
	}
	if m.toast != "Saved: NR" {
		t.Fatalf("toast = %q", m.toast)
	}
}

func TestSubmitWithoutOutcomeRefused(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("enter"))
	if m.modal != modalOutcome {
		t.Fatal("modal must stay open when no outcome is chosen")
	}
	if len(svc.marked) != 0 {
		t.Fatal("nothing may be dispatched without an outcome")
	}
}

func TestScheduleFollowUpValidation(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("s"))
	if !m.schedShown {
		t.Fatal("SF must reveal the schedule fields")
	}
	// Prefill equals now, which is not in the future: submit is refused.
	m, _ = update(t, m, key("enter"))
	if m.modal != modalOutcome || len(svc.marked) != 0 {
		t.Fatal("past/now schedule must not dispatch")
	}

	// A future instant passes.
	m.schedIn[schedDay].SetValue("14")
	m, cmd := update(t, m, key("enter"))
	if cmd == nil {
		t.Fatal("valid SF submit must dispatch")
	}
	done := cmd().(markDoneMsg)
	if done.err != nil {
		t.Fatalf("dispatch: %v", done.err)
	}
	if done.rec.ScheduleAt == nil || done.rec.ScheduleAt.Day() != 14 {
		t.Fatalf("scheduleAt wrong: %+v", done.rec.ScheduleAt)
	}
}

func TestMarkFailureKeepsModalOpen(t *testing.T) {
	svc := &fakeService{markErr: errors.New("boom")}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("n"))
	m, cmd := update(t, m, key("enter"))
	done := cmd().(markDoneMsg)
	if done.err == nil {
		t.Fatal("expected dispatch error")
	}
	m, _ = update(t, m, done)
	if m.modal != modalOutcome || m.modalCtx == nil {
		t.Fatal("failed dispatch must keep the modal open")
	}
	if m.loading {
		t.Fatal("modal must return to an enabled state after failure")
	}
}

func TestCountdownGenerationRetired(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	future := testNow.Add(2 * time.Hour)
	set := testSet()
	set.Items[0].SFFuture = &future
	m = loadSet(t, m, set)

	if !m.countdownOn {
		t.Fatal("pending follow-up must arm the countdown")
	}
	gen := m.countdownSeq
	// Reload retires the generation.
	m = loadSet(t, m, set)
	if m.countdownSeq == gen {
		t.Fatal("reload must retire the countdown generation")
	}
	if cmd := m.handleCountdownTick(countdownTickMsg{seq: gen}); cmd != nil {
		t.Fatal("stale countdown tick must be dropped")
	}
	if cmd := m.handleCountdownTick(countdownTickMsg{seq: m.countdownSeq}); cmd == nil {
		t.Fatal("live countdown tick must re-arm")
	}
}

func TestCountdownStopsWhenNothingPending(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	past := testNow.Add(-time.Minute)
	set := testSet()
	set.Items[0].SFFuture = &past
	m = loadSet(t, m, set)
	if m.countdownOn {
		t.Fatal("countdown must not run when no instant is pending")
	}
	// The passed instant flips the item overdue instead.
	if !m.cls.Items[0].Overdue {
		t.Fatal("passed follow-up instant must mark the item overdue")
	}
}

func TestQuickFlowAborts(t *testing.T) {
	svc := &fakeService{dealers: []string{"Acme"}, rowFor: map[string]int{"Acme": 2}}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())

	m, _ = update(t, m, key("o"))
	if m.modal != modalQuick || !m.refreshPaused {
		t.Fatal("quick flow must open and pause refresh")
	}

	// Missing dealer name: abort with a toast, nothing resolved or sent.
	cmd := m.handleQuickPunched("", false)
	if cmd == nil {
		t.Fatal("expected abort cmd")
	}
	if len(svc.marked) != 0 {
		t.Fatal("abort must not dispatch")
	}
}

func TestQuickFlowDispatch(t *testing.T) {
	svc := &fakeService{dealers: []string{"Acme"}, rowFor: map[string]int{"Acme": 9}}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, key("o"))

	m, cmd := update(t, m, rowResolvedMsg{dealer: "Acme", row: 9})
	if cmd == nil {
		t.Fatal("resolved row must dispatch")
	}
	done := cmd().(markDoneMsg)
	if done.err != nil {
		t.Fatalf("dispatch: %v", done.err)
	}
	rec := done.rec
	if rec.Outcome != model.OutcomeOrderRecorded || rec.CallN != 0 ||
		rec.Remark != "Quick Order" || rec.RowIndex != 9 || rec.PlannedDate != "2026-01-12" {
		t.Fatalf("quick record wrong: %+v", rec)
	}
	m, _ = update(t, m, done)
	if m.modal != modalNone || m.refreshPaused {
		t.Fatal("quick dispatch must close the flow and resume refresh")
	}
}

func TestQuickFlowUntrackedDealer(t *testing.T) {
	svc := &fakeService{rowFor: map[string]int{}}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, key("o"))

	m, _ = update(t, m, rowResolvedMsg{dealer: "Nobody", row: 0})
	if m.modal != modalNone || m.refreshPaused {
		t.Fatal("untracked dealer must abort the flow and resume refresh")
	}
	if len(svc.marked) != 0 {
		t.Fatal("untracked dealer must not dispatch")
	}
	if m.toast == "" {
		t.Fatal("expected an abort toast")
	}
}

func TestOrderRecordedCompletionGate(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m.cfg.RequirePunchCompletion = true
	m = loadSet(t, m, testSet())

	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("o"))
	if m.outcome != model.OutcomeOrderRecorded || m.session == nil {
		t.Fatal("OR must select the outcome and open a bridge session")
	}
	// Submit is gated until the form reports completion.
	m, _ = update(t, m, key("enter"))
	if len(svc.marked) != 0 || m.modal != modalOutcome {
		t.Fatal("submit must be refused before the form completes")
	}

	m, _ = update(t, m, bridgeEventMsg{ev: bridge.Event{Kind: bridge.EventOrderPunched, Dealer: "Acme"}})
	if !m.punchDone {
		t.Fatal("ORDER_PUNCHED must unlock submit")
	}
	m, cmd := update(t, m, key("enter"))
	if cmd == nil {
		t.Fatal("gated submit must dispatch once unlocked")
	}
	done := cmd().(markDoneMsg)
	if done.rec.Outcome != model.OutcomeOrderRecorded {
		t.Fatalf("dispatched outcome = %q, want OR", done.rec.Outcome)
	}
	m, _ = update(t, m, done)
	if m.session != nil || m.modal != modalNone {
		t.Fatal("submit must tear the bridge session down with the modal")
	}
}

func TestBridgeCloseRequestClosesModal(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("o"))
	if m.session == nil {
		t.Fatal("OR must open a bridge session")
	}
	m, _ = update(t, m, bridgeEventMsg{ev: bridge.Event{Kind: bridge.EventCloseRequested}})
	if m.modal != modalNone || m.modalCtx != nil || m.session != nil || m.refreshPaused {
		t.Fatal("CLOSE_PUNCH must tear down the modal, the session and resume refresh")
	}
}

func TestPollFailureKeepsBoard(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(t, svc)
	m = loadSet(t, m, testSet())
	m, _ = update(t, m, dueLoadedMsg{err: errors.New("dial timeout"), silent: true})
	if len(m.set.Items) != 2 {
		t.Fatal("a failed silent poll must keep the last good set")
	}
	if m.errText == "" {
		t.Fatal("poll failure must be surfaced")
	}
	// Next successful poll clears the error.
	m = loadSet(t, m, testSet())
	if m.errText != "" {
		t.Fatal("successful poll must clear the error")
	}
}
