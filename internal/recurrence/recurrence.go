package recurrence

import (
	"time"

	"github.com/notebell/notebell/internal/models"
)

// maxSteps bounds every forward search so a malformed rule degrades to
// "no occurrence" instead of spinning.
const maxSteps = 3000

// NextTrigger returns the first occurrence of rep strictly after now.
//
// anchor is the fixed series reference. base carries the wall-clock
// time-of-day every candidate must preserve (and, for monthly rules, the
// target day-of-month), so the schedule floats with local time. The
// boolean is false when the rule has no future occurrence: a one-shot
// whose time has passed, or a degenerate rule such as a weekly repeat
// with no weekdays.
func NextTrigger(now, anchor, base time.Time, rep models.Repeat) (time.Time, bool) {
	rep = rep.Normalize()
	if !rep.IsRecurring() {
		if anchor.After(now) {
			return anchor, true
		}
		return time.Time{}, false
	}
	if anchor.After(now) {
		return anchor, true
	}

	switch rep.Kind {
	case models.RepeatDaily:
		return nextDaily(now, anchor, base, rep.Interval)
	case models.RepeatWeekly:
		return nextWeekly(now, anchor, base, rep.Interval, rep.Weekdays)
	case models.RepeatMonthly:
		return nextMonthly(now, anchor, base, rep.Interval)
	case models.RepeatCustom:
		switch rep.Unit {
		case models.UnitMinutes:
			return nextMinutes(now, anchor, rep.Interval)
		case models.UnitDays:
			return nextDaily(now, anchor, base, rep.Interval)
		case models.UnitWeeks:
			// A custom weekly interval repeats on the anchor's weekday.
			return nextWeekly(now, anchor, base, rep.Interval, []int{int(anchor.Weekday())})
		case models.UnitMonths:
			return nextMonthly(now, anchor, base, rep.Interval)
		}
	}
	return time.Time{}, false
}

func nextDaily(now, anchor, base time.Time, interval int) (time.Time, bool) {
	day0 := startOfDay(anchor)
	elapsed := civilDays(day0, startOfDay(now.In(anchor.Location())))
	k := elapsed / interval
	if k < 0 {
		k = 0
	}
	for step := 0; step < maxSteps; step++ {
		c := withClock(day0.AddDate(0, 0, k*interval), base)
		if c.After(now) {
			return c, true
		}
		k++
	}
	return time.Time{}, false
}

func nextWeekly(now, anchor, base time.Time, interval int, weekdays []int) (time.Time, bool) {
	if len(weekdays) == 0 {
		return time.Time{}, false
	}
	anchorWeek := weekStart(anchor)
	nowWeek := weekStart(now.In(anchor.Location()))
	weeks := civilDays(anchorWeek, nowWeek) / 7
	if weeks < 0 {
		weeks = 0
	}
	// Round up to the next eligible week block; a partial offset means
	// the current week is not part of this series' cadence.
	block := ((weeks + interval - 1) / interval) * interval
	for step := 0; step < maxSteps; step++ {
		ws := anchorWeek.AddDate(0, 0, block*7)
		for _, wd := range weekdays {
			c := withClock(ws.AddDate(0, 0, wd), base)
			if c.After(now) {
				return c, true
			}
		}
		block += interval
	}
	return time.Time{}, false
}

func nextMonthly(now, anchor, base time.Time, interval int) (time.Time, bool) {
	loc := anchor.Location()
	target := base.Day()
	anchorIdx := monthIndex(anchor)
	offset := monthIndex(now.In(loc)) - anchorIdx
	if offset < 0 {
		offset = 0
	}
	k := ((offset + interval - 1) / interval) * interval
	for step := 0; step < maxSteps; step++ {
		idx := anchorIdx + k
		year, month := idx/12, time.Month(idx%12+1)
		day := target
		// Clamp to the candidate month's length. The clamp is decided
		// per month, so a 31st anchor lands on Feb 28 and still returns
		// to the 31st in March.
		if last := daysIn(year, month, loc); day > last {
			day = last
		}
		c := time.Date(year, month, day, base.Hour(), base.Minute(), base.Second(), 0, loc)
		if c.After(now) {
			return c, true
		}
		k += interval
	}
	return time.Time{}, false
}

func nextMinutes(now, anchor time.Time, interval int) (time.Time, bool) {
	step := time.Duration(interval) * time.Minute
	// First multiple of the interval strictly after now; an occurrence
	// landing exactly on now is skipped.
	n := now.Sub(anchor)/step + 1
	return anchor.Add(time.Duration(n) * step), true
}

// withClock keeps d's calendar date and applies base's wall-clock time.
func withClock(d, base time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(),
		base.Hour(), base.Minute(), base.Second(), 0, d.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns midnight of the Sunday starting t's week.
func weekStart(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

// civilDays counts calendar days from a to b. Both must be local
// midnights in the same location; DST makes some days 23 or 25 hours
// long, so the raw division is corrected against the actual dates.
func civilDays(a, b time.Time) int {
	days := int(b.Sub(a) / (24 * time.Hour))
	for _, k := range []int{days - 1, days, days + 1} {
		c := a.AddDate(0, 0, k)
		if c.Year() == b.Year() && c.Month() == b.Month() && c.Day() == b.Day() {
			return k
		}
	}
	return days
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// daysIn returns the number of days in the given month; day 0 of the
// following month normalizes to its last day.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
