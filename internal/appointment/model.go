package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
)

// Appointment is one booking as handed to every sink. Date and Time are the
// canonical forms produced by slot validation.
type Appointment struct {
	PatientName string
	Email       string
	DoctorName  string
	Date        string
	Time        string
	Status      AppointmentStatus
	CreatedAt   time.Time
}

// SlotKey identifies a bookable (doctor, date, time) triple.
type SlotKey struct {
	Doctor string
	Date   string
	Time   string
}

func (a Appointment) Key() SlotKey {
	return SlotKey{Doctor: a.DoctorName, Date: a.Date, Time: a.Time}
}

func (k SlotKey) String() string {
	return k.Doctor + "|" + k.Date + "|" + k.Time
}

var slotNamespace = uuid.MustParse("6f1c5a0e-8d1b-4c57-9a53-2f0b8d6e4a91")

// DocumentID derives a stable id for the slot so that stores which enforce
// unique ids reject a second booking of the same slot themselves.
func (k SlotKey) DocumentID() string {
	name := strings.ToLower(k.String())
	return "appointment." + uuid.NewSHA1(slotNamespace, []byte(name)).String()
}

// Confirmation is returned by a sink that persisted the appointment.
type Confirmation struct {
	Sink       string
	DocumentID string
	Message    string
}

// Ack is returned by the notification sink.
type Ack struct {
	StatusCode int
	Message    string
}

type EventLog struct {
	ID        int64
	EventType string
	SlotKey   string
	SessionID string
	Payload   []byte
	CreatedAt time.Time
}
