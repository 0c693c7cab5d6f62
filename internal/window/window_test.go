package window

import (
	"testing"
	"time"

	"followup-cli/internal/model"
)

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func ts(t time.Time) *time.Time { return &t }

func TestWindowEndBuckets(t *testing.T) {
	c := Calc{}
	cases := []struct {
		day     int
		wantDay int
	}{
		{1, 7}, {7, 7},
		{8, 14}, {14, 14},
		{15, 21}, {21, 21},
		{22, 31}, {31, 31},
	}
	for _, tc := range cases {
		got := c.WindowEnd(at(2026, time.January, tc.day, 10, 0, 0))
		if got.Day() != tc.wantDay {
			t.Fatalf("day %d: window ends day %d, want %d", tc.day, got.Day(), tc.wantDay)
		}
		if got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 || got.Nanosecond() != int(999*time.Millisecond) {
			t.Fatalf("day %d: window end not at last instant: %v", tc.day, got)
		}
	}
}

func TestWindowEndThirdBucketVariant(t *testing.T) {
	c := Calc{ThirdBucketEnd: 22}
	if got := c.WindowEnd(at(2026, time.March, 22, 9, 0, 0)); got.Day() != 22 {
		t.Fatalf("day 22 with boundary 22: window ends day %d, want 22", got.Day())
	}
	if got := c.WindowEnd(at(2026, time.March, 23, 9, 0, 0)); got.Day() != 31 {
		t.Fatalf("day 23 with boundary 22: window ends day %d, want 31", got.Day())
	}
	// Default boundary puts day 22 in the month-end bucket instead.
	if got := (Calc{}).WindowEnd(at(2026, time.March, 22, 9, 0, 0)); got.Day() != 31 {
		t.Fatalf("day 22 with boundary 21: window ends day %d, want 31", got.Day())
	}
}

func TestWindowEndMonthLengths(t *testing.T) {
	c := Calc{}
	if got := c.WindowEnd(at(2026, time.February, 25, 0, 0, 0)); got.Day() != 28 {
		t.Fatalf("feb 2026: window ends day %d, want 28", got.Day())
	}
	if got := c.WindowEnd(at(2028, time.February, 25, 0, 0, 0)); got.Day() != 29 {
		t.Fatalf("feb 2028 (leap): window ends day %d, want 29", got.Day())
	}
	if got := c.WindowEnd(at(2026, time.April, 30, 0, 0, 0)); got.Day() != 30 {
		t.Fatalf("apr 2026: window ends day %d, want 30", got.Day())
	}
}

func TestCallActiveBoundary(t *testing.T) {
	c := Calc{}
	dc := model.DueCall{CallN: 1, CallDate: "2026-01-03"}
	end := time.Date(2026, time.January, 7, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !c.CallActive(dc, end) {
		t.Fatal("call should be active at the exact window end")
	}
	if c.CallActive(dc, end.Add(time.Millisecond)) {
		t.Fatal("call should be expired one instant past the window end")
	}
	if c.CallActive(model.DueCall{CallN: 1, CallDate: "bogus"}, end) {
		t.Fatal("unparseable call date must never be active")
	}
}

func TestCallActiveDeadlineOverridesWindow(t *testing.T) {
	c := Calc{}
	// Calendar window would run through day 7, but the precise deadline is
	// earlier and wins.
	dl := at(2026, time.January, 5, 12, 0, 0)
	dc := model.DueCall{CallN: 2, CallDate: "2026-01-03", SFAt: ts(dl)}
	if !c.CallActive(dc, dl) {
		t.Fatal("call should be active at its deadline")
	}
	if c.CallActive(dc, dl.Add(time.Second)) {
		t.Fatal("call should be expired past its deadline")
	}
	// A deadline can also extend past the calendar window.
	late := at(2026, time.January, 20, 0, 0, 0)
	dc.SFAt = ts(late)
	if !c.CallActive(dc, at(2026, time.January, 15, 0, 0, 0)) {
		t.Fatal("later deadline should keep the call active past the bucket end")
	}
}

func TestItemOverdue(t *testing.T) {
	c := Calc{}
	now := at(2026, time.January, 12, 10, 30, 0)

	past := model.Item{DueCalls: []model.DueCall{{CallN: 1, CallDate: "2026-01-02"}}}
	if !c.ItemOverdue(past, now) {
		t.Fatal("call dated before today must mark the item overdue")
	}
	today := model.Item{DueCalls: []model.DueCall{{CallN: 1, CallDate: "2026-01-12"}}}
	if c.ItemOverdue(today, now) {
		t.Fatal("call dated today is not overdue")
	}

	passed := model.Item{DueCalls: []model.DueCall{
		{CallN: 1, CallDate: "2026-01-12", SFAt: ts(at(2026, time.January, 12, 9, 0, 0))},
	}}
	if !c.ItemOverdue(passed, now) {
		t.Fatal("passed deadline must mark the item overdue")
	}

	pending := model.Item{SFFuture: ts(at(2026, time.January, 12, 10, 30, 0))}
	if !c.ItemOverdue(pending, now) {
		t.Fatal("scheduled instant equal to now must mark the item overdue")
	}
	pending.SFFuture = ts(now.Add(time.Second))
	if c.ItemOverdue(pending, now) {
		t.Fatal("scheduled instant after now is not overdue")
	}
}

func TestClassify(t *testing.T) {
	c := Calc{}
	now := at(2026, time.January, 12, 10, 0, 0)
	set := model.ItemSet{
		Today: "2026-01-12",
		Items: []model.Item{
			// Active call in the current bucket.
			{RowIndex: 2, ClientName: "Acme", DueCalls: []model.DueCall{{CallN: 1, CallDate: "2026-01-12"}}},
			// Call ten days back: its bucket is over, so it is expired, and
			// the past date makes the item overdue. Visible via overdue only.
			{RowIndex: 3, ClientName: "Globex", DueCalls: []model.DueCall{{CallN: 2, CallDate: "2026-01-02"}}},
			// Nothing active, nothing overdue.
			{RowIndex: 4, ClientName: "Initech", SFFuture: ts(now.Add(48 * time.Hour))},
		},
	}
	cl := c.Classify(set, now)
	if len(cl.Items) != 3 {
		t.Fatalf("classified %d items, want 3", len(cl.Items))
	}
	acme, globex, initech := cl.Items[0], cl.Items[1], cl.Items[2]
	if !acme.Visible || !acme.ActiveCalls[0] || acme.Overdue {
		t.Fatalf("acme: got %+v, want visible with one active call, not overdue", acme)
	}
	if !globex.Visible || globex.ActiveCalls[0] || !globex.Overdue {
		t.Fatalf("globex: got %+v, want visible, expired call, overdue", globex)
	}
	if initech.Visible {
		t.Fatal("initech has no active call and is not overdue; must be hidden")
	}
	if cl.DueCount != 1 || cl.OverdueCount != 1 {
		t.Fatalf("counts due=%d overdue=%d, want 1 and 1", cl.DueCount, cl.OverdueCount)
	}
	if vis := cl.Visible(); len(vis) != 2 || vis[0].Item.RowIndex != 2 || vis[1].Item.RowIndex != 3 {
		t.Fatalf("visible items wrong: %+v", vis)
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0d 00:00:00"},
		{-5 * time.Second, "0d 00:00:00"},
		{61 * time.Second, "0d 00:01:01"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1d 02:03:04"},
		{999 * time.Millisecond, "0d 00:00:00"},
		{3 * 24 * time.Hour, "3d 00:00:00"},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.d); got != tc.want {
			t.Fatalf("FormatRemaining(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
