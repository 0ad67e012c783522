package assistant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/appointment-assistant/internal/appointment"
	"github.com/hackgods/appointment-assistant/internal/directory"
)

func askFor(field string, f Fields, dir *directory.Directory) string {
	switch field {
	case FieldPatientName:
		return "Hello! I can book an appointment for you. May I have your full name?"
	case FieldDoctor:
		return fmt.Sprintf("Thanks, %s. Which doctor would you like to see? We have:\n%s", f.PatientName, dir.Describe())
	case FieldDate:
		return fmt.Sprintf("What date would you like to see %s? %s", f.Doctor, availabilityOf(f.Doctor, dir))
	case FieldTime:
		return fmt.Sprintf("What time on %s works for you? %s", f.Date, availabilityOf(f.Doctor, dir))
	case FieldEmail:
		return "What email address should we use for the confirmation?"
	}
	return "How can I help you with your appointment?"
}

func availabilityOf(name string, dir *directory.Directory) string {
	doc, ok := dir.Lookup(name)
	if !ok {
		return ""
	}
	return "Their hours are:\n" + directory.DescribeDoctor(doc)
}

func rejectionDraft(err error, f Fields, dir *directory.Directory) string {
	var mismatch *directory.MismatchError
	switch {
	case errors.As(err, &mismatch):
		hours := directory.DescribeDoctor(mismatch.Doctor)
		if errors.Is(err, directory.ErrDayUnavailable) {
			return fmt.Sprintf("Sorry, %s is not available on %s (%s). Please pick another date.\n%s",
				mismatch.Doctor.Name, mismatch.Weekday, mismatch.Date, hours)
		}
		return fmt.Sprintf("Sorry, %s is not available at %s on %s. Please pick a time within these hours:\n%s",
			mismatch.Doctor.Name, mismatch.Time, mismatch.Date, hours)
	case errors.Is(err, directory.ErrUnknownDoctor):
		return fmt.Sprintf("I couldn't find %s in our directory. Please choose one of:\n%s", f.Doctor, dir.Describe())
	case errors.Is(err, directory.ErrDateInPast):
		return fmt.Sprintf("%s is already in the past. Which upcoming date would you like?", f.Date)
	case errors.Is(err, directory.ErrTimeInPast):
		return fmt.Sprintf("%s today has already passed. Which later time would you like?", f.Time)
	case errors.Is(err, directory.ErrInvalidDate):
		return fmt.Sprintf("I couldn't understand the date %q. Please give it like 2026-10-21 or October 21, 2026.", f.Date)
	case errors.Is(err, directory.ErrInvalidTime):
		return fmt.Sprintf("I couldn't understand the time %q. Please give it like 11:00 AM.", f.Time)
	}
	return "Something about that request doesn't look right. Could you rephrase it?"
}

// clearRejected drops the field the patient has to supply again.
func clearRejected(err error, f Fields) Fields {
	switch {
	case errors.Is(err, directory.ErrUnknownDoctor):
		f.Doctor = ""
	case errors.Is(err, directory.ErrDayUnavailable), errors.Is(err, directory.ErrDateInPast), errors.Is(err, directory.ErrInvalidDate):
		f.Date = ""
	case errors.Is(err, directory.ErrOutsideHours), errors.Is(err, directory.ErrInvalidTime), errors.Is(err, directory.ErrTimeInPast):
		f.Time = ""
	}
	return f
}

func commitDraft(res *appointment.CommitResult) (ReplyKind, string) {
	a := res.Appointment
	switch res.Result {
	case appointment.ResultBooked:
		var b strings.Builder
		fmt.Fprintf(&b, "Your appointment with %s on %s at %s is booked, %s.", a.DoctorName, a.Date, a.Time, a.PatientName)
		if res.Notification.Status == appointment.SinkOK {
			b.WriteString(" The doctor has been notified.")
		} else {
			b.WriteString(" We could not notify the doctor right now, but your booking is saved.")
		}
		return ReplyBooked, b.String()
	case appointment.ResultSlotTaken:
		return ReplySlotTaken, fmt.Sprintf("Sorry, %s is already booked at %s on %s. Please choose another time.", a.DoctorName, a.Time, a.Date)
	case appointment.ResultLocalFailed:
		return ReplyFailed, fmt.Sprintf("Your appointment with %s on %s at %s was saved remotely, but we could not record it locally. Please contact the clinic to confirm.", a.DoctorName, a.Date, a.Time)
	case appointment.ResultBusy:
		return ReplyBusy, "Someone else is booking that exact slot right now. Please try again in a moment."
	}
	return ReplyFailed, "Sorry, we could not save your appointment right now. Please try again later."
}

// afterTerminal decides what the next booking starts from.
func afterTerminal(kind ReplyKind, f Fields) Fields {
	switch kind {
	case ReplyBooked:
		return Fields{PatientName: f.PatientName, Email: f.Email}
	case ReplySlotTaken:
		f.Time = ""
	}
	return f
}
