package assistant

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-assistant/internal/metrics"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

func TestSessionStoreLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	store := NewSessionStore(10, time.Minute, m, logging.Discard())

	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, float64(2), gaugeValue(t, reg, "assistant_sessions_active"))

	got, ok := store.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, StageGathering, got.Stage())

	assert.True(t, store.Delete(a.ID))
	assert.False(t, store.Delete(a.ID))
	_, ok = store.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, float64(1), gaugeValue(t, reg, "assistant_sessions_active"))
}

func TestSessionStoreEvictsOldest(t *testing.T) {
	store := NewSessionStore(2, time.Minute, nil, logging.Discard())
	first := store.Create()
	store.Create()
	store.Create()

	_, ok := store.Get(first.ID)
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestSessionStoreExpires(t *testing.T) {
	store := NewSessionStore(10, 50*time.Millisecond, nil, logging.Discard())
	sess := store.Create()

	time.Sleep(120 * time.Millisecond)

	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}

func TestSessionStoreGetRefreshesIdleTimer(t *testing.T) {
	store := NewSessionStore(10, 150*time.Millisecond, nil, logging.Discard())
	sess := store.Create()

	for range 4 {
		time.Sleep(60 * time.Millisecond)
		_, ok := store.Get(sess.ID)
		require.True(t, ok)
	}
}

func TestTranscript(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceLast("a", "1")
	tr.Append("b", "thinking...")
	tr.ReplaceLast("b", "2")

	pairs := tr.Pairs()
	assert.Equal(t, []Pair{{Input: "a", Output: "1"}, {Input: "b", Output: "2"}}, pairs)

	pairs[0].Output = "mutated"
	assert.Equal(t, "1", tr.Pairs()[0].Output)
	assert.Equal(t, 2, tr.Len())
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
