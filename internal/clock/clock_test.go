package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed_Today(t *testing.T) {
	c := &Fixed{At: time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)}
	assert.Equal(t, "2026-03-09", c.Today())

	c.Advance(2 * time.Minute)
	assert.Equal(t, "2026-03-10", c.Today())
}

func TestNewSystem(t *testing.T) {
	s, err := NewSystem("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Location)

	_, err = NewSystem("Not/AZone")
	assert.Error(t, err)
}

func TestLastDays(t *testing.T) {
	at := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	got := LastDays(at, 3)
	assert.Equal(t, []string{"2025-12-31", "2026-01-01", "2026-01-02"}, got)
}

func TestParseDayKey(t *testing.T) {
	_, err := ParseDayKey("2026-02-30")
	assert.Error(t, err)

	d, err := ParseDayKey("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())
}
