package assistant

import (
	"context"
	"time"

	"github.com/hackgods/appointment-assistant/internal/appointment"
)

type Stage string

const (
	StageGathering  Stage = "gathering"
	StageValidating Stage = "validating"
	StageCommitting Stage = "committing"
	StageTerminal   Stage = "terminal"
)

type Intent string

const (
	IntentBook        Intent = "book"
	IntentListDoctors Intent = "list_doctors"
	IntentReset       Intent = "reset"
	IntentOther       Intent = "other"
)

func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentBook, IntentListDoctors, IntentReset:
		return Intent(s)
	default:
		return IntentOther
	}
}

// Field names, in the order the assistant asks for them.
const (
	FieldPatientName = "patient_name"
	FieldDoctor      = "doctor_name"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldEmail       = "email"
)

// Fields holds what the patient has told us so far. Empty means unknown.
type Fields struct {
	PatientName string `json:"patient_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Doctor      string `json:"doctor_name,omitempty"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
}

// Merge overwrites f with every non-empty field of other.
func (f *Fields) Merge(other Fields) {
	if other.PatientName != "" {
		f.PatientName = other.PatientName
	}
	if other.Email != "" {
		f.Email = other.Email
	}
	if other.Doctor != "" {
		f.Doctor = other.Doctor
	}
	if other.Date != "" {
		f.Date = other.Date
	}
	if other.Time != "" {
		f.Time = other.Time
	}
}

func (f Fields) Missing(requireEmail bool) []string {
	var missing []string
	if f.PatientName == "" {
		missing = append(missing, FieldPatientName)
	}
	if f.Doctor == "" {
		missing = append(missing, FieldDoctor)
	}
	if f.Date == "" {
		missing = append(missing, FieldDate)
	}
	if f.Time == "" {
		missing = append(missing, FieldTime)
	}
	if requireEmail && f.Email == "" {
		missing = append(missing, FieldEmail)
	}
	return missing
}

func (f Fields) IsEmpty() bool {
	return f == Fields{}
}

type Extraction struct {
	Intent Intent
	Fields Fields
}

type ExtractRequest struct {
	Text     string
	Known    Fields
	Awaiting string // field the previous reply asked for, if any
	Doctors  []string
	Today    time.Time
	History  []Pair
}

type ReplyKind string

const (
	ReplyAsk       ReplyKind = "ask"
	ReplyListing   ReplyKind = "listing"
	ReplyRejected  ReplyKind = "rejected"
	ReplyBooked    ReplyKind = "booked"
	ReplySlotTaken ReplyKind = "slot_taken"
	ReplyBusy      ReplyKind = "busy"
	ReplyFailed    ReplyKind = "failed"
	ReplyReset     ReplyKind = "reset"
)

type PhraseRequest struct {
	Kind     ReplyKind
	Draft    string
	UserText string
	Fields   Fields
	History  []Pair
}

// Reply is the outcome of one turn.
type Reply struct {
	Kind   ReplyKind                 `json:"kind"`
	Text   string                    `json:"text"`
	Stage  Stage                     `json:"stage"`
	Fields Fields                    `json:"fields"`
	Commit *appointment.CommitResult `json:"-"`
}

// Extractor turns free text into structured booking fields.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (Extraction, error)
}

// Phraser turns a draft reply into user-facing text, streaming it through emit.
type Phraser interface {
	Phrase(ctx context.Context, req PhraseRequest, emit func(string)) (string, error)
}

// Booker commits a validated appointment to the sinks.
type Booker interface {
	Book(ctx context.Context, sessionID string, appt appointment.Appointment) (*appointment.CommitResult, error)
}
