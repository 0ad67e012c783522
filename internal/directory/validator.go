package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownDoctor  = errors.New("unknown doctor")
	ErrInvalidDate    = errors.New("invalid date")
	ErrDateInPast     = errors.New("date is in the past")
	ErrTimeInPast     = errors.New("time has already passed today")
	ErrDayUnavailable = errors.New("doctor is not available on that day")
	ErrOutsideHours   = errors.New("time is outside the doctor's hours")
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"2 January 2006",
}

// ParseDate accepts ISO dates and spelled-out month forms. Numeric
// day/month orderings are rejected because they are ambiguous.
func ParseDate(raw string) (time.Time, error) {
	s := strings.Join(strings.Fields(raw), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// Slot is a validated (doctor, date, time) with canonical formatting.
type Slot struct {
	Doctor    string
	Specialty string
	Date      string // YYYY-MM-DD
	Time      string // 3:04 PM
	Weekday   time.Weekday
	DayGroup  string
	Period    string
}

// MismatchError describes why a well-formed request falls outside the
// doctor's declared availability.
type MismatchError struct {
	Doctor  Doctor
	Date    string
	Weekday time.Weekday
	Time    string
	Group   *DayGroup // nil when the doctor has no hours that weekday
	Reason  error
}

func (e *MismatchError) Error() string {
	if e.Group == nil {
		return fmt.Sprintf("%s: %s is not available on %s (%s)", e.Reason, e.Doctor.Name, e.Weekday, e.Date)
	}
	return fmt.Sprintf("%s: %s on %s (%s) sees patients %s", e.Reason, e.Doctor.Name, e.Weekday, e.Group.Label, describePeriods(e.Group.Periods))
}

func (e *MismatchError) Unwrap() error { return e.Reason }

type Validator struct {
	dir *Directory
	now func() time.Time
}

func NewValidator(dir *Directory, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{dir: dir, now: now}
}

// Validate resolves the doctor, the day group for the date's weekday and
// checks the time against that group's periods.
func (v *Validator) Validate(doctor, date, clock string) (Slot, error) {
	doc, ok := v.dir.Lookup(doctor)
	if !ok {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownDoctor, doctor)
	}

	day, err := ParseDate(date)
	if err != nil {
		return Slot{}, err
	}
	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return Slot{}, fmt.Errorf("%w: %s", ErrDateInPast, day.Format(DateLayout))
	}

	at, err := ParseClock(clock)
	if err != nil {
		return Slot{}, err
	}
	if day.Equal(today) && at < Clock(now.Hour()*60+now.Minute()) {
		return Slot{}, fmt.Errorf("%w: %s", ErrTimeInPast, at)
	}

	slot := Slot{
		Doctor:    doc.Name,
		Specialty: doc.Specialty,
		Date:      day.Format(DateLayout),
		Time:      at.String(),
		Weekday:   day.Weekday(),
	}

	group, ok := doc.GroupFor(day.Weekday())
	if !ok {
		return Slot{}, &MismatchError{Doctor: doc, Date: slot.Date, Weekday: slot.Weekday, Time: slot.Time, Reason: ErrDayUnavailable}
	}
	slot.DayGroup = group.Label

	for _, p := range group.Periods {
		if p.Window.Contains(at) {
			slot.Period = p.Label
			return slot, nil
		}
	}
	return Slot{}, &MismatchError{Doctor: doc, Date: slot.Date, Weekday: slot.Weekday, Time: slot.Time, Group: &group, Reason: ErrOutsideHours}
}

func describePeriods(periods []Period) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = fmt.Sprintf("%s %s", p.Label, p.Window)
	}
	return strings.Join(parts, ", ")
}
