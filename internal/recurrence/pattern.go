package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Pattern types.
const (
	TypeDaily    = "daily"
	TypeWeekly   = "weekly"
	TypeBiweekly = "biweekly"
	TypeMonthly  = "monthly"
	TypeCustom   = "custom"
)

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Definition carries the recurrence fields read off a chore record. The
// scheduler never mutates it; LastGenerated advances through the store.
type Definition struct {
	Recurring     bool
	Type          string
	Interval      *int
	Days          string // comma-separated weekday names, e.g. "monday,thursday"
	EndDate       *time.Time
	LastGenerated *time.Time
}

// Pattern is a parsed, validated recurrence rule.
type Pattern struct {
	Type     string
	Interval int // 0 = unset; daily/monthly default to 1
	Days     []time.Weekday
	EndDate  *time.Time
}

// ParsePattern validates a definition into a Pattern. It returns (nil, nil)
// when the chore simply isn't recurring, and an error only for a malformed
// rule (unknown type or unparseable day name).
func ParsePattern(def Definition) (*Pattern, error) {
	if !def.Recurring || def.Type == "" {
		return nil, nil
	}

	switch def.Type {
	case TypeDaily, TypeWeekly, TypeBiweekly, TypeMonthly, TypeCustom:
	default:
		return nil, fmt.Errorf("unknown recurrence type: %q", def.Type)
	}

	p := Pattern{Type: def.Type, EndDate: def.EndDate}
	if def.Interval != nil {
		p.Interval = *def.Interval
	}

	if def.Days != "" {
		for _, name := range strings.Split(def.Days, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			wd, ok := dayNames[name]
			if !ok {
				return nil, fmt.Errorf("unknown weekday: %q", name)
			}
			p.Days = append(p.Days, wd)
		}
	}

	return &p, nil
}

// StartOfDay truncates a time to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
