// Package window implements the follow-up activity-window calculator: the
// pure date arithmetic that decides which due calls are still actionable,
// which have expired, and which items are overdue.
package window

import (
	"fmt"
	"time"

	"followup-cli/internal/model"
)

// DefaultThirdBucketEnd is the last day of the third week bucket. Historical
// deployments disagree on whether the third bucket ends on day 21 or 22, so
// the boundary is a parameter rather than a constant (see Calc).
const DefaultThirdBucketEnd = 21

// Calc computes activity windows for due calls.
//
// A month is partitioned into four buckets by day-of-month: 1-7, 8-14,
// 15-ThirdBucketEnd, and ThirdBucketEnd+1 through the last calendar day.
// A call scheduled on any day of a bucket stays actionable until the last
// instant of that bucket.
type Calc struct {
	// ThirdBucketEnd is 21 or 22. Zero means DefaultThirdBucketEnd.
	ThirdBucketEnd int
}

func (c Calc) thirdEnd() int {
	if c.ThirdBucketEnd == 0 {
		return DefaultThirdBucketEnd
	}
	return c.ThirdBucketEnd
}

func daysInMonth(y int, m time.Month) int {
	// Day 0 of next month is last day of this month.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WindowEnd returns the last instant (23:59:59.999 local) of the bucket
// containing date's day-of-month, in the same month and year as date.
func (c Calc) WindowEnd(date time.Time) time.Time {
	dd := date.Day()
	var end int
	switch {
	case dd <= 7:
		end = 7
	case dd <= 14:
		end = 14
	case dd <= c.thirdEnd():
		end = c.thirdEnd()
	default:
		end = daysInMonth(date.Year(), date.Month())
	}
	return time.Date(date.Year(), date.Month(), end, 23, 59, 59, int(999*time.Millisecond), date.Location())
}

// CallWindowEnd returns the instant after which dc is no longer actionable.
// A precise deadline (SFAt) overrides the calendar-derived bucket end.
func (c Calc) CallWindowEnd(dc model.DueCall, loc *time.Location) (time.Time, error) {
	if dc.SFAt != nil {
		return *dc.SFAt, nil
	}
	date, err := dc.Date(loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("call %d: bad date %q: %w", dc.CallN, dc.CallDate, err)
	}
	return c.WindowEnd(date), nil
}

// CallActive reports whether dc may still be acted on at now. Calls with an
// unparseable date are never active.
func (c Calc) CallActive(dc model.DueCall, now time.Time) bool {
	end, err := c.CallWindowEnd(dc, now.Location())
	if err != nil {
		return false
	}
	return !now.After(end)
}

// ItemOverdue reports whether it carries at least one unresolved obligation
// at now. It is the OR of three rules:
//   - a due call dated (at local midnight) strictly before the start of
//     now's calendar day,
//   - a due call whose precise deadline has passed,
//   - a pending scheduled follow-up instant at or before now.
//
// Callers must recompute this on every refresh and on countdown ticks; the
// result is only valid for the instant it was computed at.
func (c Calc) ItemOverdue(it model.Item, now time.Time) bool {
	today0 := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, dc := range it.DueCalls {
		if d, err := dc.Date(now.Location()); err == nil && d.Before(today0) {
			return true
		}
		if dc.SFAt != nil && dc.SFAt.Before(now) {
			return true
		}
	}
	if it.SFFuture != nil && !it.SFFuture.After(now) {
		return true
	}
	return false
}

// ItemClass is the classification of one item at a given instant.
type ItemClass struct {
	Item model.Item
	// ActiveCalls is aligned index-for-index with Item.DueCalls.
	ActiveCalls []bool
	Overdue     bool
	// Visible means the item is rendered/selectable: at least one active
	// call, or overdue. An expired call on a visible item is still never
	// selectable.
	Visible bool
}

func (ic ItemClass) AnyActive() bool {
	for _, a := range ic.ActiveCalls {
		if a {
			return true
		}
	}
	return false
}

// Classification is the result of classifying a whole item set.
type Classification struct {
	Items []ItemClass
	// DueCount counts items with at least one active call.
	DueCount int
	// OverdueCount counts overdue items.
	OverdueCount int
}

// Visible returns only the renderable items, in set order.
func (cl Classification) Visible() []ItemClass {
	out := make([]ItemClass, 0, len(cl.Items))
	for _, ic := range cl.Items {
		if ic.Visible {
			out = append(out, ic)
		}
	}
	return out
}

// Classify evaluates every item of set at now.
func (c Calc) Classify(set model.ItemSet, now time.Time) Classification {
	var cl Classification
	cl.Items = make([]ItemClass, 0, len(set.Items))
	for _, it := range set.Items {
		ic := ItemClass{Item: it, ActiveCalls: make([]bool, len(it.DueCalls))}
		for i, dc := range it.DueCalls {
			ic.ActiveCalls[i] = c.CallActive(dc, now)
		}
		ic.Overdue = c.ItemOverdue(it, now)
		ic.Visible = ic.AnyActive() || ic.Overdue
		if ic.AnyActive() {
			cl.DueCount++
		}
		if ic.Overdue {
			cl.OverdueCount++
		}
		cl.Items = append(cl.Items, ic)
	}
	return cl
}

// FormatRemaining renders a countdown as "{d}d {hh}:{mm}:{ss}", computed by
// integer division of whole milliseconds. Negative durations format as the
// zero countdown; callers render "Overdue" for those instead.
func FormatRemaining(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	days := s / 86400
	h := (s % 86400) / 3600
	m := (s % 3600) / 60
	sec := s % 60
	return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, sec)
}
