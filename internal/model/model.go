package model

import (
	"fmt"
	"strings"
	"time"
)

// Outcome classifies how a follow-up call was resolved. The wire values match
// the remote service's historical short codes.
type Outcome string

const (
	OutcomeNoResponse       Outcome = "NR"
	OutcomeScheduleFollowUp Outcome = "SF"
	OutcomeOrderRecorded    Outcome = "OR"
)

func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToUpper(strings.TrimSpace(s))) {
	case OutcomeNoResponse:
		return OutcomeNoResponse, nil
	case OutcomeScheduleFollowUp:
		return OutcomeScheduleFollowUp, nil
	case OutcomeOrderRecorded:
		return OutcomeOrderRecorded, nil
	}
	return "", fmt.Errorf("unknown outcome %q (want NR, SF or OR)", s)
}

func (o Outcome) Label() string {
	switch o {
	case OutcomeNoResponse:
		return "No Response"
	case OutcomeScheduleFollowUp:
		return "Schedule Follow-up"
	case OutcomeOrderRecorded:
		return "Order Recorded"
	default:
		return string(o)
	}
}

// ColorTag is the client's normalized color label.
type ColorTag string

const (
	ColorNone   ColorTag = ""
	ColorRed    ColorTag = "Red"
	ColorYellow ColorTag = "Yellow"
	ColorGreen  ColorTag = "Green"
)

// NormalizeColor maps the service's free-form color strings ("red", "Y",
// "green ") onto a ColorTag. Unrecognized values map to ColorNone.
func NormalizeColor(raw string) ColorTag {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(v, "r"):
		return ColorRed
	case strings.HasPrefix(v, "y"):
		return ColorYellow
	case strings.HasPrefix(v, "g"):
		return ColorGreen
	default:
		return ColorNone
	}
}

// DueCall is one scheduled follow-up contact attempt.
//
// CallDate is a calendar date (YYYY-MM-DD). SFAt, when present, is a precise
// deadline chosen by a previous "schedule follow-up" outcome; it overrides the
// calendar-derived activity window end.
type DueCall struct {
	CallN    int        `json:"callN"`
	CallDate string     `json:"callDate"`
	SFAt     *time.Time `json:"sfAt,omitempty"`
}

// Date parses CallDate in the given location at local midnight.
func (dc DueCall) Date(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(dc.CallDate), loc)
}

// Item is one client row as served by the remote service. Items are produced
// fresh on every refresh and never mutated; a refresh replaces the whole set.
type Item struct {
	RowIndex   int       `json:"rowIndex"`
	ClientName string    `json:"clientName"`
	DueCalls   []DueCall `json:"dueCalls"`

	RemarkText string `json:"remarkText,omitempty"`
	RemarkDay  int    `json:"remarkDay,omitempty"`

	// SFFuture is the next scheduled follow-up instant, if one is pending.
	SFFuture *time.Time `json:"sfFuture,omitempty"`

	ClientColor string `json:"clientColor,omitempty"`
}

func (it Item) Color() ColorTag { return NormalizeColor(it.ClientColor) }

// ItemSet is the unit exchanged with the remote service on each poll.
type ItemSet struct {
	Today string `json:"today"` // YYYY-MM-DD, service-local
	Items []Item `json:"items"`
}

// RemarkEntry is one row of a client's follow-up remark history.
type RemarkEntry struct {
	At     time.Time `json:"at"`
	Remark string    `json:"remark"`
}

// OutcomeRecord is the write-once payload dispatched to the remote service
// when an outcome is recorded. ScheduleAt is required iff Outcome is SF.
// CallN 0 marks an untracked (ad hoc) order from the quick-recording flow.
type OutcomeRecord struct {
	RowIndex    int        `json:"rowIndex"`
	Date        string     `json:"date"` // YYYY-MM-DD, the set's asOf date
	Outcome     Outcome    `json:"outcome"`
	Remark      string     `json:"remark"`
	CallN       int        `json:"callN"`
	PlannedDate string     `json:"plannedDate"`
	ScheduleAt  *time.Time `json:"scheduleAt,omitempty"`
}

// Validate enforces the per-outcome payload requirements shared by the TUI
// modal and the scriptable `followup mark` command.
func (r OutcomeRecord) Validate() error {
	switch r.Outcome {
	case OutcomeNoResponse, OutcomeOrderRecorded:
		// No extra input required.
	case OutcomeScheduleFollowUp:
		if r.ScheduleAt == nil || r.ScheduleAt.IsZero() {
			return fmt.Errorf("outcome SF requires a scheduleAt instant")
		}
	default:
		return fmt.Errorf("missing or unknown outcome %q", r.Outcome)
	}
	if r.RowIndex <= 0 {
		return fmt.Errorf("missing rowIndex")
	}
	return nil
}
