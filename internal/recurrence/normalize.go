package recurrence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teambition/rrule-go"

	"github.com/notebell/notebell/internal/models"
)

// FromRRule maps a legacy RFC 5545 RRULE string onto the Repeat union.
// Older rows persisted raw RRULE text; this is the single place that
// shape is interpreted on the way out of storage.
func FromRRule(ruleStr string) (models.Repeat, error) {
	ruleStr = strings.TrimPrefix(strings.TrimSpace(ruleStr), "RRULE:")
	if ruleStr == "" {
		return models.Repeat{Kind: models.RepeatNone}.Normalize(), nil
	}

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return models.Repeat{}, fmt.Errorf("failed to parse RRULE: %w", err)
	}

	interval := opt.Interval
	if interval < 1 {
		interval = 1
	}

	switch opt.Freq {
	case rrule.MINUTELY:
		return models.Repeat{
			Kind:     models.RepeatCustom,
			Unit:     models.UnitMinutes,
			Interval: interval,
		}.Normalize(), nil
	case rrule.DAILY:
		return models.Repeat{Kind: models.RepeatDaily, Interval: interval}.Normalize(), nil
	case rrule.WEEKLY:
		if len(opt.Byweekday) == 0 {
			// No BYDAY: the rule repeats on the anchor's own weekday.
			return models.Repeat{
				Kind:     models.RepeatCustom,
				Unit:     models.UnitWeeks,
				Interval: interval,
			}.Normalize(), nil
		}
		days := make([]int, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			// rrule weekdays are Monday-based, ours are Sunday-based.
			days = append(days, (wd.Day()+1)%7)
		}
		sort.Ints(days)
		return models.Repeat{
			Kind:     models.RepeatWeekly,
			Interval: interval,
			Weekdays: days,
		}.Normalize(), nil
	case rrule.MONTHLY:
		return models.Repeat{Kind: models.RepeatMonthly, Interval: interval}.Normalize(), nil
	default:
		return models.Repeat{}, fmt.Errorf("unsupported RRULE frequency in %q", ruleStr)
	}
}
