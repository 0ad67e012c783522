package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTime   = errors.New("invalid time")
	ErrInvalidWindow = errors.New("invalid time range")
)

// Clock is a time of day in minutes after midnight.
type Clock int

var clockLayouts = []string{"3:04 PM", "3:04PM", "3 PM", "3PM", "15:04"}

// ParseClock accepts "11:00 AM", "11am", "11 a.m.", "14:30" and "noon".
func ParseClock(raw string) (Clock, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Join(strings.Fields(s), " ")
	switch s {
	case "":
		return 0, fmt.Errorf("%w: empty", ErrInvalidTime)
	case "NOON":
		return 12 * 60, nil
	case "MIDNIGHT":
		return 0, nil
	}

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
}

// String renders the canonical "3:04 PM" form used as the slot time.
func (c Clock) String() string {
	t := time.Date(2000, 1, 1, int(c)/60, int(c)%60, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}

// Window is a declared availability range. Start is inclusive and End is
// exclusive; an End before Start runs past midnight.
type Window struct {
	Start Clock
	End   Clock
	Raw   string
}

var windowSeparators = []string{" TO ", "–", "—", "-"}

func ParseWindow(raw string) (Window, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, sep := range windowSeparators {
		from, to, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		start, err := ParseClock(from)
		if err != nil {
			return Window{}, fmt.Errorf("%w %q: %v", ErrInvalidWindow, raw, err)
		}
		end, err := ParseClock(to)
		if err != nil {
			return Window{}, fmt.Errorf("%w %q: %v", ErrInvalidWindow, raw, err)
		}
		return Window{Start: start, End: end, Raw: strings.TrimSpace(raw)}, nil
	}
	return Window{}, fmt.Errorf("%w %q: missing separator", ErrInvalidWindow, raw)
}

func (w Window) Contains(c Clock) bool {
	switch {
	case w.Start < w.End:
		return c >= w.Start && c < w.End
	case w.Start > w.End:
		return c >= w.Start || c < w.End
	default:
		return true
	}
}

func (w Window) String() string {
	return w.Start.String() + " - " + w.End.String()
}
