package appointment

import "errors"

var (
	ErrSlotAlreadyBooked  = errors.New("slot is already booked")
	ErrSlotBeingBooked    = errors.New("slot is currently being booked, please retry")
	ErrSinkWriteFailed    = errors.New("remote store write failed")
	ErrNotificationFailed = errors.New("doctor notification failed")
	ErrLocalWriteFailed   = errors.New("local log write failed")
	ErrSinkTimeout        = errors.New("sink call timed out")
)

// SinkError tags a failure with the sink class so callers can match both the
// class (ErrSinkWriteFailed, ...) and the cause (ErrSinkTimeout, a network
// error) with errors.Is.
type SinkError struct {
	Kind  error
	Cause error
}

func (e *SinkError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *SinkError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewSinkError(kind, cause error) error {
	return &SinkError{Kind: kind, Cause: cause}
}
