package sanity

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackgods/appointment-assistant/internal/appointment"
)

const appointmentType = "appointment"

const slotQuery = `*[_type == "appointment" && doctorName == $doctorName && date == $date && time == $time][0]`

// Store is the remote document-store sink.
type Store struct {
	client *Client
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Save checks the slot, then creates a pending appointment document. The
// document id is derived from the slot, so a racing duplicate that slipped
// past the check is rejected by Sanity with a conflict.
func (s *Store) Save(ctx context.Context, appt appointment.Appointment) (*appointment.Confirmation, error) {
	key := appt.Key()

	existing, err := s.client.Query(ctx, slotQuery, map[string]any{
		"doctorName": key.Doctor,
		"date":       key.Date,
		"time":       key.Time,
	})
	if err != nil {
		return nil, sinkFailure(fmt.Errorf("check slot: %w", err))
	}
	if existing != nil {
		return nil, appointment.ErrSlotAlreadyBooked
	}

	docID := key.DocumentID()
	doc := map[string]any{
		"_id":         docID,
		"_type":       appointmentType,
		"patientName": appt.PatientName,
		"doctorName":  appt.DoctorName,
		"date":        appt.Date,
		"time":        appt.Time,
		"status":      string(appointment.StatusPending),
	}
	if appt.Email != "" {
		doc["email"] = appt.Email
	}

	res, err := s.client.Mutate(ctx, Mutation{Create: doc})
	if err != nil {
		if errors.Is(err, ErrDocumentExists) {
			return nil, appointment.ErrSlotAlreadyBooked
		}
		return nil, sinkFailure(fmt.Errorf("create appointment: %w", err))
	}

	conf := &appointment.Confirmation{
		Sink:       appointment.SinkRemote,
		DocumentID: docID,
		Message:    "Appointment saved to Sanity.",
	}
	if len(res.Results) > 0 && res.Results[0].ID != "" {
		conf.DocumentID = res.Results[0].ID
	}
	return conf, nil
}

func sinkFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appointment.NewSinkError(appointment.ErrSinkWriteFailed, fmt.Errorf("%w: %v", appointment.ErrSinkTimeout, err))
	}
	return appointment.NewSinkError(appointment.ErrSinkWriteFailed, err)
}
