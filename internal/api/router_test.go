package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-assistant/internal/appointment"
	"github.com/hackgods/appointment-assistant/internal/assistant"
	"github.com/hackgods/appointment-assistant/internal/directory"
	"github.com/hackgods/appointment-assistant/internal/metrics"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type acceptingBooker struct {
	calls atomic.Int32
}

func (b *acceptingBooker) Book(ctx context.Context, sessionID string, appt appointment.Appointment) (*appointment.CommitResult, error) {
	b.calls.Add(1)
	ok := func(sink string) appointment.SinkOutcome {
		return appointment.SinkOutcome{Sink: sink, Status: appointment.SinkOK}
	}
	return &appointment.CommitResult{
		Appointment:  appt,
		Result:       appointment.ResultBooked,
		Notification: ok(appointment.SinkNotification),
		Remote:       ok(appointment.SinkRemote),
		Local:        ok(appointment.SinkLocal),
	}, nil
}

type testServer struct {
	*httptest.Server
	booker   *acceptingBooker
	sessions *assistant.SessionStore
}

func newTestServer(t *testing.T, checks ...DependencyCheck) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	dir := directory.Default()
	booker := &acceptingBooker{}
	sessions := assistant.NewSessionStore(100, time.Minute, m, logging.Discard())
	orch := assistant.NewOrchestrator(dir, booker, assistant.Options{
		Metrics: m,
		Logger:  logging.Discard(),
		Now:     func() time.Time { return fixedNow },
	})

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Directory: dir,
		Sessions:  sessions,
		Assistant: orch,
		Checks:    checks,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:    logging.Discard(),
		Env:       "test",
		Version:   "v0.0.0",
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, booker: booker, sessions: sessions}
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(s.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	assert.Equal(t, "gathering", out.Stage)
	return out.ID
}

func postMessage(t *testing.T, url, text, accept string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(SendMessageRequest{Text: text})
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestListDoctors(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/doctors")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var doctors map[string]directory.DoctorRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doctors))
	assert.Equal(t, "Dermatologist", doctors["Dr. Khan"].Specialty)
	assert.Equal(t, "10:00 AM - 2:00 PM", doctors["Dr. Khan"].Availability["Monday to Friday"]["Morning"])
}

func TestStreamedMessageAndTranscript(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t)

	resp := postMessage(t, srv.URL+"/sessions/"+id+"/messages", "My name is Ali. Dr. Khan on Wednesday at 11:00 AM", "")
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, string(body), "is booked")
	assert.Equal(t, "booked", resp.Trailer.Get("X-Reply-Kind"))
	assert.Equal(t, int32(1), srv.booker.calls.Load())

	resp, err = http.Get(srv.URL + "/sessions/" + id + "/transcript")
	require.NoError(t, err)
	defer resp.Body.Close()

	var tr TranscriptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	require.Len(t, tr.Pairs, 1)
	assert.Equal(t, string(body), tr.Pairs[0].Output)
	assert.Equal(t, "Ali", tr.Fields.PatientName)
	assert.Equal(t, "terminal", tr.Stage)
}

func TestJSONMessage(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t)

	resp := postMessage(t, srv.URL+"/sessions/"+id+"/messages", "My name is Ali. Dr. Khan on Wednesday at 3:00 PM", "application/json")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ReplyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "rejected", out.Kind)
	assert.Equal(t, "validating", out.Stage)
	assert.Empty(t, out.Sinks)
	assert.Equal(t, int32(0), srv.booker.calls.Load())
}

func TestMessageErrors(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t)

	resp := postMessage(t, srv.URL+"/sessions/missing/messages", "hi", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postMessage(t, srv.URL+"/sessions/"+id+"/messages", "   ", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(srv.URL+"/sessions/"+id+"/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t)

	del := func() int {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, del())
	assert.Equal(t, http.StatusNotFound, del())
	assert.Equal(t, 0, srv.sessions.Len())
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "message", Text: "My name is Ali. Dr. Khan on Wednesday at 11:00 AM"}))

	var tokens strings.Builder
	var done wsOutbound
	for {
		var frame wsOutbound
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "token" {
			tokens.WriteString(frame.Text)
			continue
		}
		done = frame
		break
	}

	assert.Equal(t, "done", done.Type)
	assert.Equal(t, "booked", done.Kind)
	assert.Equal(t, tokens.String(), done.Text)
	require.NotNil(t, done.Fields)
	assert.Equal(t, "Ali", done.Fields.PatientName)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "message", Text: " "}))
	var frame wsOutbound
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "invalid_argument", frame.Code)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "ping"}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "pong", frame.Type)
}

type slowTurner struct {
	delay time.Duration
}

func (s slowTurner) Handle(ctx context.Context, sess *assistant.Session, text string, emit func(string)) (assistant.Reply, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return assistant.Reply{}, ctx.Err()
	}
	emit("noted")
	return assistant.Reply{Kind: assistant.ReplyAsk, Text: "noted", Stage: assistant.StageGathering}, nil
}

func TestWebsocketOutlivesSlowTurns(t *testing.T) {
	sessions := assistant.NewSessionStore(10, time.Minute, nil, logging.Discard())
	sess := sessions.Create()
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Directory: directory.Default(),
		Sessions:  sessions,
		Assistant: slowTurner{delay: 500 * time.Millisecond},
		Logger:    logging.Discard(),
		PongWait:  200 * time.Millisecond,
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sess.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	readUntil := func(kind string) wsOutbound {
		t.Helper()
		for {
			var frame wsOutbound
			require.NoError(t, conn.ReadJSON(&frame))
			if frame.Type == kind {
				return frame
			}
			require.Equal(t, "token", frame.Type)
		}
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(wsInbound{Type: "message", Text: "hello"}))
		require.NoError(t, conn.WriteJSON(wsInbound{Type: "ping"}))

		var frame wsOutbound
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "pong", frame.Type, "ping answered while the turn runs")

		done := readUntil("done")
		assert.Equal(t, "noted", done.Text)
	}
}

func TestWebsocketUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	failingPG := DependencyCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("down") }}
	srv := newTestServer(t, RedisCheck(client), failingPG)

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	var ready ReadinessResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, map[string]string{"redis": "ok", "postgres": "down"}, ready.Dependencies)

	mr.Close()
	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.createSession(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "assistant_sessions_active 1")
}
