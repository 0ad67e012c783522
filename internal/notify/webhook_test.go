package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-assistant/internal/appointment"
)

func sampleAppointment() appointment.Appointment {
	return appointment.Appointment{PatientName: "Ali", DoctorName: "Dr. Khan", Date: "2026-10-21", Time: "11:00 AM"}
}

func TestNotifyPostsPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook, err := NewWebhook(srv.URL, time.Second)
	require.NoError(t, err)

	ack, err := hook.Notify(context.Background(), sampleAppointment())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ack.StatusCode)
	assert.Equal(t, Payload{PatientName: "Ali", DoctorName: "Dr. Khan", Date: "2026-10-21", Time: "11:00 AM"}, got)
}

func TestNotifyNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	hook, err := NewWebhook(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = hook.Notify(context.Background(), sampleAppointment())
	require.Error(t, err)
	assert.ErrorIs(t, err, appointment.ErrNotificationFailed)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifyNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	hook, err := NewWebhook(url, time.Second)
	require.NoError(t, err)

	_, err = hook.Notify(context.Background(), sampleAppointment())
	assert.ErrorIs(t, err, appointment.ErrNotificationFailed)
	assert.NotErrorIs(t, err, appointment.ErrSinkTimeout)
}

func TestNotifyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	hook, err := NewWebhook(srv.URL, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = hook.Notify(context.Background(), sampleAppointment())
	assert.ErrorIs(t, err, appointment.ErrNotificationFailed)
	assert.ErrorIs(t, err, appointment.ErrSinkTimeout)
}

func TestNewWebhookRequiresURL(t *testing.T) {
	_, err := NewWebhook("", time.Second)
	assert.Error(t, err)
}
