package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"followup-cli/internal/model"
	"followup-cli/internal/window"
)

func (m appModel) View() string {
	if m.quitting {
		return ""
	}
	w := m.width
	if w <= 0 {
		w = 80
	}

	var b strings.Builder
	b.WriteString(m.viewHeader(w))
	b.WriteString("\n")

	switch m.modal {
	case modalOutcome:
		b.WriteString(m.viewOutcomeModal(w))
	case modalQuick:
		b.WriteString(m.viewQuick(w))
	default:
		b.WriteString(m.viewBoard(w))
	}

	b.WriteString("\n")
	b.WriteString(m.viewFooter(w))
	return b.String()
}

func (m appModel) viewHeader(w int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Follow-ups")
	date := styleMuted().Render(m.set.Today)
	counts := fmt.Sprintf("due %d", m.cls.DueCount)
	if m.cls.OverdueCount > 0 {
		counts += " · " + lipgloss.NewStyle().Foreground(colorOverdue).Render(fmt.Sprintf("overdue %d", m.cls.OverdueCount))
	}
	line := title + "  " + date + "  " + styleMuted().Render(counts)
	if m.loading {
		line += "  " + m.spin.View()
	}
	if m.toast != "" {
		line += "  " + lipgloss.NewStyle().Foreground(colorAccent).Render(m.toast)
	}
	if m.errText != "" && m.toast == "" {
		line += "  " + lipgloss.NewStyle().Foreground(colorOverdue).Render("offline")
	}
	return truncateDisplay(line, w)
}

func (m appModel) viewBoard(w int) string {
	vis := m.visible()
	if len(vis) == 0 {
		if m.loading {
			return styleMuted().Render("Loading…")
		}
		return styleMuted().Render("Nothing due. 🎉")
	}
	var parts []string
	for i, ic := range vis {
		parts = append(parts, m.viewCard(ic, i == m.sel, w))
		if i == m.sel && m.historyShown {
			parts = append(parts, m.viewHistory(w))
		}
	}
	return strings.Join(parts, "\n")
}

func (m appModel) viewCard(ic window.ItemClass, selected bool, w int) string {
	inner := w - 4
	if inner < 20 {
		inner = 20
	}

	name := truncateDisplay(ic.Item.ClientName, inner-14)
	if tagColor, ok := colorForTag(ic.Item.Color()); ok {
		name = lipgloss.NewStyle().Foreground(tagColor).Render("●") + " " + name
	}
	head := lipgloss.NewStyle().Bold(true).Render(name)
	if ic.Overdue {
		head += "  " + lipgloss.NewStyle().Foreground(colorOverdue).Bold(true).Render("OVERDUE")
	}

	var calls []string
	for i, dc := range ic.Item.DueCalls {
		label := fmt.Sprintf("Call %d · %s", dc.CallN, dc.CallDate)
		st := lipgloss.NewStyle()
		if ic.ActiveCalls[i] {
			st = st.Foreground(colorActive)
		} else {
			st = faintIfDark(st.Foreground(colorExpired))
			label += " (expired)"
		}
		if selected && i == m.selCall {
			st = st.Underline(true).Bold(true)
		}
		calls = append(calls, st.Render("["+label+"]"))
	}

	lines := []string{head}
	if len(calls) > 0 {
		lines = append(lines, strings.Join(calls, " "))
	}
	if chip := m.countdownChip(ic.Item); chip != "" {
		lines = append(lines, chip)
	}
	if ic.Item.RemarkText != "" {
		remark := fmt.Sprintf("↳ %s", ic.Item.RemarkText)
		if ic.Item.RemarkDay > 0 {
			remark += styleMuted().Render(fmt.Sprintf(" (day %d)", ic.Item.RemarkDay))
		}
		lines = append(lines, truncateDisplay(styleMuted().Render(remark), inner))
	}

	border := colorCardBorder
	if selected {
		border = colorSelectedBorder
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(inner)
	return card.Render(strings.Join(lines, "\n"))
}

func (m appModel) countdownChip(it model.Item) string {
	if it.SFFuture == nil {
		return ""
	}
	d := it.SFFuture.Sub(m.now())
	if d <= 0 {
		return lipgloss.NewStyle().Foreground(colorOverdue).Render("⏱ Overdue")
	}
	return styleMuted().Render("⏱ next follow-up in " + window.FormatRemaining(d))
}

func (m appModel) viewHistory(w int) string {
	if m.historyLoading {
		return styleMuted().Render("  loading history…")
	}
	if len(m.historyEntries) == 0 {
		return styleMuted().Render("  no remark history")
	}
	var md strings.Builder
	fmt.Fprintf(&md, "### %s\n\n", m.historyFor)
	for _, e := range m.historyEntries {
		fmt.Fprintf(&md, "- **%s** %s\n", e.At.Format("2006-01-02 15:04"), e.Remark)
	}
	return renderMarkdown(md.String(), min(w-2, 78))
}

func (m appModel) viewOutcomeModal(w int) string {
	ctx := m.modalCtx
	if ctx == nil {
		return ""
	}
	inner := min(w-4, 64)

	title := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("Record outcome · %s · Call %d (%s)", ctx.clientName, ctx.callN, ctx.callDate))

	var opts []string
	for _, o := range []model.Outcome{model.OutcomeNoResponse, model.OutcomeScheduleFollowUp, model.OutcomeOrderRecorded} {
		key := map[model.Outcome]string{
			model.OutcomeNoResponse:       "n",
			model.OutcomeScheduleFollowUp: "s",
			model.OutcomeOrderRecorded:    "o",
		}[o]
		st := styleMuted()
		if m.outcome == o {
			st = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
		}
		opts = append(opts, st.Render(fmt.Sprintf("(%s) %s", key, o.Label())))
	}

	lines := []string{title, "", strings.Join(opts, "  ")}

	if m.schedShown {
		var fields []string
		for i := range m.schedIn {
			fields = append(fields, m.schedIn[i].View())
		}
		lines = append(lines, "", "Next follow-up: "+strings.Join(fields, " "))
	}
	if m.outcome == model.OutcomeOrderRecorded {
		status := "order form opened in browser…"
		if m.punchDone {
			status = "order form submitted ✓"
		}
		lines = append(lines, "", styleMuted().Render(status))
	}
	lines = append(lines, "", "Remark: "+m.remark.View())

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Width(inner)
	return box.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewQuick(w int) string {
	inner := min(w-4, 64)
	status := "Loading dealers…"
	if len(m.quickDealers) > 0 {
		status = fmt.Sprintf("Waiting for the order form in your browser… (%d dealers sent)", len(m.quickDealers))
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render("Quick order"),
		"",
		styleMuted().Render(status),
		styleMuted().Render("esc cancels"),
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Width(inner)
	return box.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewFooter(w int) string {
	var help string
	switch m.modal {
	case modalOutcome:
		help = "n/s/o outcome · m remark · tab fields · enter submit · esc cancel"
	case modalQuick:
		help = "esc cancel"
	default:
		help = "↑/↓ item · ←/→ call · enter record · o quick order · h history · r reload · q quit"
	}
	return truncateDisplay(styleMuted().Render(help), w)
}
