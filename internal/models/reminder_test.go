package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepeatNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Repeat
		want Repeat
	}{
		{
			name: "zero value becomes none",
			in:   Repeat{},
			want: Repeat{Kind: RepeatNone, Interval: 1},
		},
		{
			name: "interval floors at one",
			in:   Repeat{Kind: RepeatDaily, Interval: -3},
			want: Repeat{Kind: RepeatDaily, Interval: 1},
		},
		{
			name: "weekdays deduplicated sorted and range checked",
			in:   Repeat{Kind: RepeatWeekly, Interval: 1, Weekdays: []int{5, 1, 5, -1, 9, 1}},
			want: Repeat{Kind: RepeatWeekly, Interval: 1, Weekdays: []int{1, 5}},
		},
		{
			name: "weekdays cleared for daily",
			in:   Repeat{Kind: RepeatDaily, Interval: 2, Weekdays: []int{1, 2}},
			want: Repeat{Kind: RepeatDaily, Interval: 2},
		},
		{
			name: "unit cleared for non-custom",
			in:   Repeat{Kind: RepeatMonthly, Interval: 1, Unit: UnitDays},
			want: Repeat{Kind: RepeatMonthly, Interval: 1},
		},
		{
			name: "custom keeps unit",
			in:   Repeat{Kind: RepeatCustom, Unit: UnitMinutes, Interval: 30},
			want: Repeat{Kind: RepeatCustom, Unit: UnitMinutes, Interval: 30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestRepeatEqual(t *testing.T) {
	a := Repeat{Kind: RepeatWeekly, Interval: 2, Weekdays: []int{5, 1}}
	b := Repeat{Kind: RepeatWeekly, Interval: 2, Weekdays: []int{1, 5, 5}}
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(Repeat{Kind: RepeatWeekly, Interval: 1, Weekdays: []int{1, 5}}))
	assert.False(t, a.Equal(Repeat{Kind: RepeatWeekly, Interval: 2, Weekdays: []int{1}}))
	assert.False(t, a.Equal(Repeat{Kind: RepeatDaily, Interval: 2}))

	// Zero value and explicit none are the same rule.
	assert.True(t, Repeat{}.Equal(Repeat{Kind: RepeatNone, Interval: 1}))
}

func TestRepeatConfig(t *testing.T) {
	cfg := Repeat{Kind: RepeatWeekly, Interval: 2, Weekdays: []int{4, 1}}.Config()
	assert.Equal(t, "weekly", cfg["kind"])
	assert.Equal(t, 2, cfg["interval"])
	assert.Equal(t, []any{1, 4}, cfg["weekdays"])
	_, hasUnit := cfg["unit"]
	assert.False(t, hasUnit)

	cfg = Repeat{Kind: RepeatCustom, Unit: UnitMonths, Interval: 3}.Config()
	assert.Equal(t, "months", cfg["unit"])
	_, hasDays := cfg["weekdays"]
	assert.False(t, hasDays)
}

func TestEventID(t *testing.T) {
	at := time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "42-1767344400000", EventID(42, at))

	// Same instant in another zone yields the same id.
	assert.Equal(t, EventID(42, at), EventID(42, at.In(time.FixedZone("X", 3600))))
}

func TestReminderAnchorFallback(t *testing.T) {
	trigger := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, time.January, 1, 8, 0, 0, 0, time.UTC)

	rem := &Reminder{TriggerAt: &trigger}
	assert.Equal(t, trigger, rem.Anchor())

	rem.StartAt = &start
	assert.Equal(t, start, rem.Anchor())

	assert.True(t, (&Reminder{}).Anchor().IsZero())
}

func TestReminderBaseLocal(t *testing.T) {
	loc := time.UTC
	rem := &Reminder{BaseAtLocal: "2026-01-31T09:30:00"}
	got := rem.BaseLocal(loc)
	assert.Equal(t, time.Date(2026, time.January, 31, 9, 30, 0, 0, loc), got)

	// Malformed text falls back to the anchor.
	start := time.Date(2026, time.February, 2, 7, 0, 0, 0, time.UTC)
	rem = &Reminder{BaseAtLocal: "not-a-time", StartAt: &start}
	assert.Equal(t, start, rem.BaseLocal(loc))
}

func TestInheritAnchor(t *testing.T) {
	oldStart := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	newTrigger := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	prev := &Reminder{
		StartAt:     &oldStart,
		BaseAtLocal: "2026-01-01T09:00:00",
		Repeat:      Repeat{Kind: RepeatWeekly, Interval: 2, Weekdays: []int{4}},
	}

	// Same rule: the series anchor survives the edit.
	rem := &Reminder{
		TriggerAt: &newTrigger,
		Repeat:    Repeat{Kind: RepeatWeekly, Interval: 2, Weekdays: []int{4}},
	}
	rem.InheritAnchor(prev)
	require.NotNil(t, rem.StartAt)
	assert.Equal(t, oldStart, *rem.StartAt)
	assert.Equal(t, "2026-01-01T09:00:00", rem.BaseAtLocal)

	// Changed rule: the series restarts at the new trigger.
	rem = &Reminder{
		TriggerAt: &newTrigger,
		Repeat:    Repeat{Kind: RepeatDaily, Interval: 1},
	}
	rem.InheritAnchor(prev)
	require.NotNil(t, rem.StartAt)
	assert.Equal(t, newTrigger, *rem.StartAt)
	assert.NotEmpty(t, rem.BaseAtLocal)

	// No previous version behaves like a fresh series.
	rem = &Reminder{TriggerAt: &newTrigger}
	rem.InheritAnchor(nil)
	require.NotNil(t, rem.StartAt)
	assert.Equal(t, newTrigger, *rem.StartAt)
}

func TestRestartSeriesWithoutTrigger(t *testing.T) {
	rem := &Reminder{BaseAtLocal: "2026-01-01T09:00:00"}
	rem.RestartSeries()
	assert.Nil(t, rem.StartAt)
	assert.Empty(t, rem.BaseAtLocal)
}
