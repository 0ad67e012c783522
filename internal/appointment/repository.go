package appointment

import "context"

// Notifier alerts the doctor. Failures are reported, never fatal.
type Notifier interface {
	Notify(ctx context.Context, appt Appointment) (*Ack, error)
}

// RemoteStore is the document store of record.
type RemoteStore interface {
	Save(ctx context.Context, appt Appointment) (*Confirmation, error)
}

// LocalLog is the append-only local booking list.
type LocalLog interface {
	Confirm(ctx context.Context, appt Appointment) (*Confirmation, error)
}

// EventRepository records what happened to each sink during a booking.
type EventRepository interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}
