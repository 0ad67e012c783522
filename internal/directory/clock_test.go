package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"11:00 AM", "11:00 AM"},
		{"11am", "11:00 AM"},
		{"3 p.m.", "3:00 PM"},
		{" 7:30pm ", "7:30 PM"},
		{"14:45", "2:45 PM"},
		{"noon", "12:00 PM"},
		{"12:00 AM", "12:00 AM"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseClock(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "soon", "25:00", "13 PM"} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrInvalidTime, in)
	}
}

func TestWindowContains(t *testing.T) {
	morning, err := ParseWindow("10:00 AM - 2:00 PM")
	require.NoError(t, err)

	assert.True(t, morning.Contains(10*60))
	assert.True(t, morning.Contains(11*60))
	assert.False(t, morning.Contains(14*60), "end is exclusive")
	assert.False(t, morning.Contains(15*60))
	assert.False(t, morning.Contains(9*60+59))

	late, err := ParseWindow("10:00 PM to 1:00 AM")
	require.NoError(t, err)
	assert.True(t, late.Contains(23*60))
	assert.True(t, late.Contains(30))
	assert.False(t, late.Contains(2*60))
	assert.Equal(t, "10:00 PM - 1:00 AM", late.String())
}

func TestParseWindowErrors(t *testing.T) {
	for _, in := range []string{"10:00 AM", "ten - two", "10:00 AM - later"} {
		_, err := ParseWindow(in)
		assert.ErrorIs(t, err, ErrInvalidWindow, in)
	}
}
