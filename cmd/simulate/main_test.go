package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-assistant/internal/directory"
)

func TestCandidateSlots(t *testing.T) {
	// Thursday
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	slots := candidateSlots(directory.Default(), now, 2)

	// Friday: Khan morning+evening, Ahmed evening. Saturday: Ahmed morning+evening.
	require.Len(t, slots, 5)
	assert.Contains(t, slots, slot{Doctor: "Dr. Khan", Date: "2026-10-16", Time: "10:00 AM"})
	assert.Contains(t, slots, slot{Doctor: "Dr. Ahmed", Date: "2026-10-17", Time: "7:00 PM"})
	for _, s := range slots {
		assert.False(t, s.Doctor == "Dr. Khan" && s.Date == "2026-10-17")
	}
}

func TestOperationMetricsStats(t *testing.T) {
	var om OperationMetrics
	for i := 1; i <= 10; i++ {
		om.Record(time.Duration(i)*time.Millisecond, "booked")
	}
	avg, min, max, p50, p95 := om.Stats()
	assert.Equal(t, 5500*time.Microsecond, avg)
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 10*time.Millisecond, max)
	assert.Equal(t, 6*time.Millisecond, p50)
	assert.Equal(t, 10*time.Millisecond, p95)
	assert.Equal(t, int64(10), om.byKind["booked"])
}
