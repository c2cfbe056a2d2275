package recurrence

import "time"

// NextOccurrence returns the first occurrence strictly after last, or false
// when the pattern yields nothing more (past its end date, weekly rule with
// no days, custom rule without an interval).
func NextOccurrence(last time.Time, p Pattern) (time.Time, bool) {
	last = StartOfDay(last)

	var next time.Time
	switch p.Type {
	case TypeDaily:
		next = last.AddDate(0, 0, intervalOrDefault(p.Interval))

	case TypeWeekly:
		var ok bool
		next, ok = nextByWeekday(last, p.Days)
		if !ok {
			return time.Time{}, false
		}

	case TypeBiweekly:
		// Deliberately the weekly search result pushed out by two weeks.
		// Existing schedules depend on these exact dates; an anchor-based
		// cadence would shift them.
		wk, ok := nextByWeekday(last, p.Days)
		if !ok {
			return time.Time{}, false
		}
		next = wk.AddDate(0, 0, 14)

	case TypeMonthly:
		next = last.AddDate(0, intervalOrDefault(p.Interval), 0)

	case TypeCustom:
		if p.Interval < 1 {
			return time.Time{}, false
		}
		next = last.AddDate(0, 0, p.Interval)

	default:
		return time.Time{}, false
	}

	if p.EndDate != nil && next.After(StartOfDay(*p.EndDate)) {
		return time.Time{}, false
	}
	return next, true
}

// intervalOrDefault maps an unset interval (0 = unset; see Pattern) to the
// default of 1.
func intervalOrDefault(interval int) int {
	if interval < 1 {
		return 1
	}
	return interval
}

// nextByWeekday scans the seven days after last for the first whose weekday
// is in days.
func nextByWeekday(last time.Time, days []time.Weekday) (time.Time, bool) {
	if len(days) == 0 {
		return time.Time{}, false
	}
	for i := 1; i <= 7; i++ {
		candidate := last.AddDate(0, 0, i)
		for _, d := range days {
			if candidate.Weekday() == d {
				return candidate, true
			}
		}
	}
	return time.Time{}, false
}

// GenerateOccurrences expands a definition into concrete dates within
// [windowStart, windowEnd]. The cursor seeds at the later of LastGenerated
// and windowStart, so regeneration over an overlapping window never replays
// dates already handed out. Every step strictly advances the cursor by at
// least a day, which bounds the loop.
func GenerateOccurrences(def Definition, windowStart, windowEnd time.Time) ([]time.Time, error) {
	p, err := ParsePattern(def)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	windowStart = StartOfDay(windowStart)
	windowEnd = StartOfDay(windowEnd)

	cursor := windowStart
	if def.LastGenerated != nil {
		if lg := StartOfDay(*def.LastGenerated); lg.After(cursor) {
			cursor = lg
		}
	}

	var dates []time.Time
	for {
		next, ok := NextOccurrence(cursor, *p)
		if !ok {
			break
		}
		if next.After(windowEnd) {
			break
		}
		if !next.Before(windowStart) {
			dates = append(dates, next)
		}
		cursor = next
	}
	return dates, nil
}
