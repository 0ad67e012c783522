package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDayGroup = errors.New("invalid day group")

// Days is a weekday bitmask.
type Days uint8

func (d Days) Has(wd time.Weekday) bool {
	return d&(1<<uint(wd)) != 0
}

func (d Days) with(wd time.Weekday) Days {
	return d | 1<<uint(wd)
}

// GroupKind orders day groups by how specific their label is. Higher wins when
// more than one group covers the same weekday.
type GroupKind int

const (
	KindDaily GroupKind = iota
	KindRange
	KindList
	KindSingle
)

func (k GroupKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	default:
		return "daily"
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, bool) {
	s := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), ".")
	if wd, ok := weekdayNames[s]; ok {
		return wd, true
	}
	wd, ok := weekdayNames[strings.TrimSuffix(s, "s")]
	return wd, ok
}

var (
	rangeSeparators = []string{" through ", " thru ", " to ", "–", "—", "-"}
	listSeparators  = []string{",", "/", "&", " and "}
)

// parseDayGroup turns labels like "Monday to Friday", "Sat", "Tue and Thu" or
// "Daily" into a weekday set.
func parseDayGroup(label string) (Days, GroupKind, error) {
	s := strings.ToLower(strings.Join(strings.Fields(label), " "))
	switch s {
	case "":
		return 0, 0, fmt.Errorf("%w: empty label", ErrInvalidDayGroup)
	case "daily", "every day", "everyday", "all week":
		return 0x7f, KindDaily, nil
	case "weekdays":
		return weekdayRange(time.Monday, time.Friday), KindRange, nil
	case "weekends", "weekend":
		return Days(0).with(time.Saturday).with(time.Sunday), KindList, nil
	}

	if wd, ok := parseWeekday(s); ok {
		return Days(0).with(wd), KindSingle, nil
	}

	for _, sep := range rangeSeparators {
		from, to, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		start, ok1 := parseWeekday(from)
		end, ok2 := parseWeekday(to)
		if !ok1 || !ok2 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDayGroup, label)
		}
		return weekdayRange(start, end), KindRange, nil
	}

	if parts := splitAny(s, listSeparators); len(parts) > 1 {
		var days Days
		for _, p := range parts {
			wd, ok := parseWeekday(p)
			if !ok {
				return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDayGroup, label)
			}
			days = days.with(wd)
		}
		return days, KindList, nil
	}

	return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDayGroup, label)
}

// weekdayRange is inclusive and wraps, so "Friday to Monday" covers the weekend.
func weekdayRange(start, end time.Weekday) Days {
	var days Days
	for wd := start; ; wd = (wd + 1) % 7 {
		days = days.with(wd)
		if wd == end {
			return days
		}
	}
}

func splitAny(s string, seps []string) []string {
	for _, sep := range seps[1:] {
		s = strings.ReplaceAll(s, sep, seps[0])
	}
	var out []string
	for _, p := range strings.Split(s, seps[0]) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
