// Package tui implements the interactive follow-up board: due cards, the
// outcome modal, the quick-recording flow, and the timers that keep both the
// data and the countdown chips fresh.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"followup-cli/internal/api"
	"followup-cli/internal/bridge"
	"followup-cli/internal/model"
	"followup-cli/internal/store"
	"followup-cli/internal/window"
)

// dataService is the remote surface the TUI depends on. *api.Client
// implements it; tests substitute a fake.
type dataService interface {
	Due(ctx context.Context) (model.ItemSet, error)
	Dealers(ctx context.Context, email string) ([]string, error)
	RowByDealer(ctx context.Context, email, dealer string) (int, error)
	RemarkHistory(ctx context.Context, clientName string) ([]model.RemarkEntry, error)
	Mark(ctx context.Context, rec model.OutcomeRecord) error
}

var _ dataService = (*api.Client)(nil)

type modalKind int

const (
	modalNone modalKind = iota
	modalOutcome
	modalQuick
)

// modalContext pins the row/call the outcome modal was opened for. Only one
// may exist at a time; opening over a live one is refused.
type modalContext struct {
	rowIndex   int
	dateISO    string
	callN      int
	callDate   string
	clientName string
}

// scheduleField indexes the SF date/time inputs.
type scheduleField int

const (
	schedYear scheduleField = iota
	schedMonth
	schedDay
	schedHour
	schedMinute
	schedFieldCount
)

type appModel struct {
	cfg  *store.GlobalConfig
	svc  dataService
	calc window.Calc
	host *bridge.Host
	dlog store.DispatchLog

	// now is swappable in tests.
	now func() time.Time

	width  int
	height int

	loading bool
	spin    spinner.Model
	errText string

	set model.ItemSet
	cls window.Classification
	// sel indexes cls.Visible(); selCall indexes the item's DueCalls.
	sel     int
	selCall int

	// Refresh scheduler. Pausing bumps refreshSeq so an in-flight tick is
	// dropped on arrival instead of firing a poll.
	refreshPaused bool
	refreshSeq    int

	// Countdown chips share one 1 Hz tick tagged with countdownSeq; a
	// reclassification retires the old generation before arming the next.
	countdownSeq int
	countdownOn  bool

	modal      modalKind
	modalCtx   *modalContext
	outcome    model.Outcome
	remark     textinput.Model
	schedIn    [schedFieldCount]textinput.Model
	schedFocus scheduleField
	schedShown bool

	session   *bridge.Session
	punchDone bool

	// Quick-recording flow scratch state.
	quickDealers []string

	toast    string
	toastSeq int

	historyFor     string
	historyEntries []model.RemarkEntry
	historyShown   bool
	historyLoading bool

	quitting bool
}

func newAppModel(cfg *store.GlobalConfig, svc dataService) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	remark := textinput.New()
	remark.Placeholder = "Remark (optional)"
	remark.CharLimit = 500

	m := appModel{
		cfg:     cfg,
		svc:     svc,
		loading: true,
		calc:    window.Calc{ThirdBucketEnd: cfg.ThirdBucketEnd},
		host:    &bridge.Host{Origin: cfg.TrustedOrigin()},
		now:     time.Now,
		spin:    sp,
		remark:  remark,
	}
	labels := [schedFieldCount]string{"YYYY", "MM", "DD", "hh", "mm"}
	limits := [schedFieldCount]int{4, 2, 2, 2, 2}
	for i := range m.schedIn {
		in := textinput.New()
		in.Placeholder = labels[i]
		in.CharLimit = limits[i]
		in.Width = limits[i]
		m.schedIn[i] = in
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.loadDueCmd(false), m.scheduleRefresh()}
	// `followup quick` starts directly inside the quick-recording flow.
	if m.modal == modalQuick {
		cmds = append(cmds, m.dealersCmd())
	}
	return tea.Batch(cmds...)
}

// Messages.

type dueLoadedMsg struct {
	set    model.ItemSet
	err    error
	silent bool
}

type refreshTickMsg struct{ seq int }

type countdownTickMsg struct{ seq int }

type toastDoneMsg struct{ seq int }

type bridgeEventMsg struct{ ev bridge.Event }

type dealersLoadedMsg struct {
	dealers []string
	err     error
}

type rowResolvedMsg struct {
	dealer string
	isNew  bool
	row    int
	err    error
}

type markDoneMsg struct {
	rec   model.OutcomeRecord
	err   error
	quick bool
}

type historyLoadedMsg struct {
	client  string
	entries []model.RemarkEntry
	err     error
}

// Commands.

func (m *appModel) loadDueCmd(silent bool) tea.Cmd {
	if !silent {
		m.loading = true
	}
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		set, err := svc.Due(ctx)
		return dueLoadedMsg{set: set, err: err, silent: silent}
	}
}

func (m *appModel) markCmd(rec model.OutcomeRecord, quick bool) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		err := svc.Mark(ctx, rec)
		return markDoneMsg{rec: rec, err: err, quick: quick}
	}
}

func (m *appModel) dealersCmd() tea.Cmd {
	svc, email := m.svc, m.cfg.Email
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		dealers, err := svc.Dealers(ctx, email)
		return dealersLoadedMsg{dealers: dealers, err: err}
	}
}

func (m *appModel) resolveRowCmd(dealer string, isNew bool) tea.Cmd {
	svc, email := m.svc, m.cfg.Email
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		row, err := svc.RowByDealer(ctx, email, dealer)
		return rowResolvedMsg{dealer: dealer, isNew: isNew, row: row, err: err}
	}
}

func (m *appModel) historyCmd(client string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		entries, err := svc.RemarkHistory(ctx, client)
		return historyLoadedMsg{client: client, entries: entries, err: err}
	}
}

func (m *appModel) logDispatchCmd(rec model.OutcomeRecord, dispatchErr error) tea.Cmd {
	dlog := m.dlog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dlog.Append(ctx, rec, dispatchErr)
		return nil
	}
}

// listenBridgeCmd waits for the next session event. It re-arms from Update
// until EventClosed arrives.
func listenBridgeCmd(s *bridge.Session) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.Events()
		if !ok {
			return bridgeEventMsg{ev: bridge.Event{Kind: bridge.EventClosed}}
		}
		return bridgeEventMsg{ev: ev}
	}
}

func (m *appModel) showToast(text string) tea.Cmd {
	m.toast = text
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return toastDoneMsg{seq: seq}
	})
}

// Selection helpers.

func (m *appModel) visible() []window.ItemClass {
	return m.cls.Visible()
}

func (m *appModel) selected() (window.ItemClass, bool) {
	vis := m.visible()
	if m.sel < 0 || m.sel >= len(vis) {
		return window.ItemClass{}, false
	}
	return vis[m.sel], true
}

func (m *appModel) clampSelection() {
	vis := m.visible()
	if len(vis) == 0 {
		m.sel, m.selCall = 0, 0
		return
	}
	if m.sel >= len(vis) {
		m.sel = len(vis) - 1
	}
	if m.sel < 0 {
		m.sel = 0
	}
	calls := len(vis[m.sel].Item.DueCalls)
	if m.selCall >= calls {
		m.selCall = calls - 1
	}
	if m.selCall < 0 {
		m.selCall = 0
	}
}

// reclassify recomputes the board from the current set and retires the
// countdown generation, arming a new one when any chip is still pending.
func (m *appModel) reclassify() tea.Cmd {
	now := m.now()
	m.cls = m.calc.Classify(m.set, now)
	m.clampSelection()

	m.countdownSeq++
	m.countdownOn = false
	for _, ic := range m.cls.Items {
		if ic.Item.SFFuture != nil && ic.Item.SFFuture.After(now) {
			m.countdownOn = true
			break
		}
	}
	if !m.countdownOn {
		return nil
	}
	return m.countdownTick()
}

func (m *appModel) countdownTick() tea.Cmd {
	seq := m.countdownSeq
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return countdownTickMsg{seq: seq}
	})
}
