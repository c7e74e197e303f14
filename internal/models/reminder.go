package models

import (
	"fmt"
	"sort"
	"time"
)

// RepeatKind tags the repeat rule union.
type RepeatKind string

const (
	RepeatNone    RepeatKind = "none"
	RepeatDaily   RepeatKind = "daily"
	RepeatWeekly  RepeatKind = "weekly"
	RepeatMonthly RepeatKind = "monthly"
	RepeatCustom  RepeatKind = "custom"
)

// CustomUnit is the step unit of a custom-interval rule.
type CustomUnit string

const (
	UnitMinutes CustomUnit = "minutes"
	UnitDays    CustomUnit = "days"
	UnitWeeks   CustomUnit = "weeks"
	UnitMonths  CustomUnit = "months"
)

// Repeat is a reminder's recurrence rule. Daily and Monthly use Interval
// only; Weekly adds Weekdays (0=Sunday..6); Custom adds Unit.
type Repeat struct {
	Kind     RepeatKind `json:"kind"`
	Interval int        `json:"interval,omitempty"`
	Weekdays []int      `json:"weekdays,omitempty"`
	Unit     CustomUnit `json:"unit,omitempty"`
}

// IsRecurring returns true if the rule describes a repeating series.
func (r Repeat) IsRecurring() bool {
	return r.Kind != "" && r.Kind != RepeatNone
}

// Normalize enforces the rule invariants: interval at least 1, weekdays
// deduplicated and sorted ascending with out-of-range values dropped.
func (r Repeat) Normalize() Repeat {
	if r.Kind == "" {
		r.Kind = RepeatNone
	}
	if r.Interval < 1 {
		r.Interval = 1
	}
	if len(r.Weekdays) > 0 {
		seen := make(map[int]bool, len(r.Weekdays))
		days := make([]int, 0, len(r.Weekdays))
		for _, d := range r.Weekdays {
			if d < 0 || d > 6 || seen[d] {
				continue
			}
			seen[d] = true
			days = append(days, d)
		}
		sort.Ints(days)
		r.Weekdays = days
	}
	if r.Kind != RepeatWeekly && r.Kind != RepeatCustom {
		r.Weekdays = nil
	}
	if r.Kind != RepeatCustom {
		r.Unit = ""
	}
	return r
}

// Equal compares two rules after normalization.
func (r Repeat) Equal(other Repeat) bool {
	a, b := r.Normalize(), other.Normalize()
	if a.Kind != b.Kind || a.Interval != b.Interval || a.Unit != b.Unit {
		return false
	}
	if len(a.Weekdays) != len(b.Weekdays) {
		return false
	}
	for i := range a.Weekdays {
		if a.Weekdays[i] != b.Weekdays[i] {
			return false
		}
	}
	return true
}

// Config returns the rule as a generic map, the form the schedule
// fingerprint hashes.
func (r Repeat) Config() map[string]any {
	r = r.Normalize()
	cfg := map[string]any{
		"kind":     string(r.Kind),
		"interval": r.Interval,
	}
	if len(r.Weekdays) > 0 {
		days := make([]any, len(r.Weekdays))
		for i, d := range r.Weekdays {
			days[i] = d
		}
		cfg["weekdays"] = days
	}
	if r.Unit != "" {
		cfg["unit"] = string(r.Unit)
	}
	return cfg
}

// BaseLocalLayout is the layout of the timezone-naive wall-clock
// reference stored on a reminder.
const BaseLocalLayout = "2006-01-02T15:04:05"

type Reminder struct {
	ReminderID         int64      `json:"reminder_id"`
	UserID             int64      `json:"user_id"`
	Title              string     `json:"title"`
	Body               string     `json:"body"`
	Active             bool       `json:"active"`
	TriggerAt          *time.Time `json:"trigger_at"` // most recently requested or fired occurrence
	Repeat             Repeat     `json:"repeat"`
	RecurrenceRule     string     `json:"recurrence_rule,omitempty"` // legacy RFC 5545 text, normalized on read
	SnoozedUntil       *time.Time `json:"snoozed_until"`
	StartAt            *time.Time `json:"start_at"`      // series anchor
	BaseAtLocal        string     `json:"base_at_local"` // wall-clock reference, timezone-naive
	NextTriggerAt      *time.Time `json:"next_trigger_at"`
	LastFiredAt        *time.Time `json:"last_fired_at"`
	LastAcknowledgedAt *time.Time `json:"last_acknowledged_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsRecurring returns true if the reminder repeats.
func (r *Reminder) IsRecurring() bool {
	return r.Repeat.IsRecurring()
}

// Anchor returns the fixed reference the series is computed from,
// falling back to the trigger time for rows created before anchors were
// persisted.
func (r *Reminder) Anchor() time.Time {
	if r.StartAt != nil {
		return *r.StartAt
	}
	if r.TriggerAt != nil {
		return *r.TriggerAt
	}
	return time.Time{}
}

// BaseLocal returns the wall-clock reference interpreted in loc. Every
// computed occurrence preserves its hour/minute/second (and, for monthly
// rules, its day-of-month), so the schedule floats with local time
// instead of drifting with UTC offsets.
func (r *Reminder) BaseLocal(loc *time.Location) time.Time {
	if r.BaseAtLocal != "" {
		if t, err := time.ParseInLocation(BaseLocalLayout, r.BaseAtLocal, loc); err == nil {
			return t
		}
	}
	return r.Anchor().In(loc)
}

// InheritAnchor carries the series anchor over from the previous version
// of an edited reminder. The anchor is preserved across edits unless the
// repeat rule itself changed; a new rule starts a new series at the new
// trigger time.
func (r *Reminder) InheritAnchor(prev *Reminder) {
	if prev != nil && prev.StartAt != nil && r.Repeat.Equal(prev.Repeat) {
		r.StartAt = prev.StartAt
		r.BaseAtLocal = prev.BaseAtLocal
		return
	}
	r.RestartSeries()
}

// RestartSeries re-anchors the series at the current trigger time.
func (r *Reminder) RestartSeries() {
	r.StartAt = r.TriggerAt
	if r.TriggerAt != nil {
		r.BaseAtLocal = r.TriggerAt.In(time.Local).Format(BaseLocalLayout)
	} else {
		r.BaseAtLocal = ""
	}
}

// EventID derives the deduplication key for one logical occurrence. Both
// delivery channels compute the same id for the same occurrence without
// coordination.
func EventID(reminderID int64, triggerAt time.Time) string {
	return fmt.Sprintf("%d-%d", reminderID, triggerAt.UnixMilli())
}
