package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebell/notebell/internal/models"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNextTriggerOneShot(t *testing.T) {
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatNone}

	next, ok := NextTrigger(date(2025, time.December, 31, 9, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, anchor, next)

	// A one-shot whose time has passed has no next occurrence.
	_, ok = NextTrigger(date(2026, time.January, 1, 9, 1), anchor, anchor, rep)
	assert.False(t, ok)

	// An occurrence exactly at now is not a future occurrence.
	_, ok = NextTrigger(anchor, anchor, anchor, rep)
	assert.False(t, ok)
}

func TestNextTriggerFutureAnchorIsFirstOccurrence(t *testing.T) {
	anchor := date(2026, time.March, 10, 8, 30)
	now := date(2026, time.January, 1, 0, 0)

	for _, rep := range []models.Repeat{
		{Kind: models.RepeatDaily, Interval: 1},
		{Kind: models.RepeatWeekly, Interval: 2, Weekdays: []int{2}},
		{Kind: models.RepeatMonthly, Interval: 1},
		{Kind: models.RepeatCustom, Unit: models.UnitMinutes, Interval: 15},
	} {
		next, ok := NextTrigger(now, anchor, anchor, rep)
		require.True(t, ok, "kind %s", rep.Kind)
		assert.Equal(t, anchor, next, "kind %s", rep.Kind)
	}
}

func TestNextTriggerDaily(t *testing.T) {
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatDaily, Interval: 1}

	// The Jan 2 occurrence already passed at 10:00, so Jan 3 is next.
	next, ok := NextTrigger(date(2026, time.January, 2, 10, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 3, 9, 0), next)

	// Before today's time-of-day, today still counts.
	next, ok = NextTrigger(date(2026, time.January, 2, 8, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 2, 9, 0), next)
}

func TestNextTriggerDailyInterval(t *testing.T) {
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatDaily, Interval: 3}

	// Series is Jan 1, 4, 7, ...
	next, ok := NextTrigger(date(2026, time.January, 2, 12, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 4, 9, 0), next)

	next, ok = NextTrigger(date(2026, time.January, 4, 9, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 7, 9, 0), next)
}

func TestNextTriggerWeeklyBiweekly(t *testing.T) {
	// Anchor Thursday 2026-01-01; every 2 weeks on Thursday.
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatWeekly, Interval: 2, Weekdays: []int{4}}

	next, ok := NextTrigger(date(2026, time.January, 2, 10, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 15, 9, 0), next)

	next, ok = NextTrigger(date(2026, time.January, 15, 9, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 29, 9, 0), next)
}

func TestNextTriggerWeeklyMultipleDays(t *testing.T) {
	// Anchor Thursday 2026-01-01; Mondays and Fridays every week.
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatWeekly, Interval: 1, Weekdays: []int{1, 5}}

	next, ok := NextTrigger(date(2026, time.January, 1, 12, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 2, 9, 0), next) // Friday

	next, ok = NextTrigger(next, anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 5, 9, 0), next) // Monday
}

func TestNextTriggerWeeklyEmptyWeekdays(t *testing.T) {
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatWeekly, Interval: 1}

	_, ok := NextTrigger(date(2026, time.January, 2, 0, 0), anchor, anchor, rep)
	assert.False(t, ok)
}

func TestNextTriggerMonthlyClampDoesNotPersist(t *testing.T) {
	// Anchor on the 31st: February clamps to the 28th, March returns to
	// the 31st.
	anchor := date(2026, time.January, 31, 9, 0)
	rep := models.Repeat{Kind: models.RepeatMonthly, Interval: 1}

	next, ok := NextTrigger(date(2026, time.January, 31, 9, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.February, 28, 9, 0), next)

	next, ok = NextTrigger(next, anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.March, 31, 9, 0), next)
}

func TestNextTriggerMonthlyLeapYear(t *testing.T) {
	// 2028 is a leap year.
	anchor := date(2028, time.January, 31, 9, 0)
	rep := models.Repeat{Kind: models.RepeatMonthly, Interval: 1}

	next, ok := NextTrigger(date(2028, time.January, 31, 9, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2028, time.February, 29, 9, 0), next)

	// Feb 29 anchor with a yearly cadence lands on Feb 28 off-leap.
	anchor = date(2028, time.February, 29, 9, 0)
	rep = models.Repeat{Kind: models.RepeatMonthly, Interval: 12}
	next, ok = NextTrigger(date(2028, time.February, 29, 9, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2029, time.February, 28, 9, 0), next)
}

func TestNextTriggerCustomMinutes(t *testing.T) {
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatCustom, Unit: models.UnitMinutes, Interval: 90}

	// now == anchor: the occurrence at now is skipped.
	next, ok := NextTrigger(anchor, anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 1, 10, 30), next)

	// Landing exactly on an occurrence also skips to the next one.
	next, ok = NextTrigger(date(2026, time.January, 1, 10, 30), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 1, 12, 0), next)

	// Mid-interval rounds up.
	next, ok = NextTrigger(date(2026, time.January, 1, 9, 45), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 1, 10, 30), next)
}

func TestNextTriggerCustomWeeksPinsAnchorWeekday(t *testing.T) {
	// Anchor Thursday; every 3 weeks repeats on Thursdays.
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatCustom, Unit: models.UnitWeeks, Interval: 3}

	next, ok := NextTrigger(date(2026, time.January, 2, 0, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 22, 9, 0), next)
	assert.Equal(t, time.Thursday, next.Weekday())
}

func TestNextTriggerCustomDaysAndMonthsDelegate(t *testing.T) {
	anchor := date(2026, time.January, 31, 9, 0)

	next, ok := NextTrigger(date(2026, time.February, 1, 0, 0), anchor, anchor,
		models.Repeat{Kind: models.RepeatCustom, Unit: models.UnitDays, Interval: 10})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.February, 10, 9, 0), next)

	next, ok = NextTrigger(date(2026, time.February, 1, 0, 0), anchor, anchor,
		models.Repeat{Kind: models.RepeatCustom, Unit: models.UnitMonths, Interval: 1})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.February, 28, 9, 0), next)
}

func TestNextTriggerStrictFutureAndMonotonic(t *testing.T) {
	anchor := date(2026, time.January, 31, 9, 0)
	rules := []models.Repeat{
		{Kind: models.RepeatDaily, Interval: 1},
		{Kind: models.RepeatDaily, Interval: 5},
		{Kind: models.RepeatWeekly, Interval: 1, Weekdays: []int{0, 3, 6}},
		{Kind: models.RepeatWeekly, Interval: 3, Weekdays: []int{2}},
		{Kind: models.RepeatMonthly, Interval: 1},
		{Kind: models.RepeatMonthly, Interval: 7},
		{Kind: models.RepeatCustom, Unit: models.UnitMinutes, Interval: 45},
		{Kind: models.RepeatCustom, Unit: models.UnitWeeks, Interval: 2},
		{Kind: models.RepeatCustom, Unit: models.UnitMonths, Interval: 2},
	}

	for _, rep := range rules {
		now := date(2026, time.January, 15, 12, 34)
		for i := 0; i < 50; i++ {
			next, ok := NextTrigger(now, anchor, anchor, rep)
			require.True(t, ok, "kind %s unit %s step %d", rep.Kind, rep.Unit, i)
			// Feeding the output back as now must advance strictly.
			require.True(t, next.After(now), "kind %s unit %s step %d: %s is not after %s",
				rep.Kind, rep.Unit, i, next, now)
			now = next
		}
	}
}

func TestNextTriggerPreservesWallClock(t *testing.T) {
	anchor := date(2026, time.January, 1, 7, 45)
	rep := models.Repeat{Kind: models.RepeatDaily, Interval: 1}

	now := date(2026, time.June, 20, 23, 0)
	next, ok := NextTrigger(now, anchor, anchor, rep)
	require.True(t, ok)
	assert.Equal(t, 7, next.Hour())
	assert.Equal(t, 45, next.Minute())
}

func TestNextTriggerFarFutureNowIsBounded(t *testing.T) {
	anchor := date(2026, time.January, 1, 9, 0)
	rep := models.Repeat{Kind: models.RepeatDaily, Interval: 1}

	next, ok := NextTrigger(date(3026, time.January, 1, 0, 0), anchor, anchor, rep)
	require.True(t, ok)
	assert.True(t, next.After(date(3026, time.January, 1, 0, 0)))
}
