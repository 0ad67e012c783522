package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hackgods/appointment-assistant/internal/appointment"
)

// Payload is the body posted to the doctor notification webhook.
type Payload struct {
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// Webhook simulates the doctor-side message with a single POST. It never
// retries; every failure comes back wrapped in ErrNotificationFailed.
type Webhook struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("notify: webhook url is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{url: url, timeout: timeout, httpClient: &http.Client{}}, nil
}

func (w *Webhook) Notify(ctx context.Context, appt appointment.Appointment) (*appointment.Ack, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	body, err := json.Marshal(Payload{
		PatientName: appt.PatientName,
		DoctorName:  appt.DoctorName,
		Date:        appt.Date,
		Time:        appt.Time,
	})
	if err != nil {
		return nil, appointment.NewSinkError(appointment.ErrNotificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, appointment.NewSinkError(appointment.ErrNotificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appointment.NewSinkError(appointment.ErrNotificationFailed, fmt.Errorf("%w: %v", appointment.ErrSinkTimeout, err))
		}
		return nil, appointment.NewSinkError(appointment.ErrNotificationFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, appointment.NewSinkError(appointment.ErrNotificationFailed, fmt.Errorf("webhook status %d", resp.StatusCode))
	}

	return &appointment.Ack{StatusCode: resp.StatusCode, Message: "Doctor notified via webhook."}, nil
}
