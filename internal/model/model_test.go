package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Fitness ")
	require.NoError(t, err)
	assert.Equal(t, CategoryFitness, c)

	_, err = ParseCategory("cooking")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHabit_Normalize(t *testing.T) {
	h := Habit{
		ID:            "h1",
		Name:          "Read",
		CompletedDays: []string{"2026-01-01", "2026-01-02", "2026-01-01"},
		Streak:        -3,
	}
	h.Normalize()

	assert.Equal(t, []string{"2026-01-01", "2026-01-02"}, h.CompletedDays)
	assert.Equal(t, 0, h.Streak)
	assert.Equal(t, FrequencyDaily, h.Frequency)
}

func TestHabit_CloneIsDeep(t *testing.T) {
	h := Habit{ID: "h1", CompletedDays: []string{"2026-01-01"}}
	c := h.Clone()
	c.CompletedDays[0] = "changed"

	assert.Equal(t, "2026-01-01", h.CompletedDays[0])
	assert.NotNil(t, Habit{}.Clone().CompletedDays)
}

func TestUserStats_Normalize(t *testing.T) {
	s := UserStats{XP: 1600, Level: 1, Rank: "Recruit"}

	assert.True(t, s.Normalize())
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, "Warrior", s.Rank)

	// A second pass is a no-op.
	assert.False(t, s.Normalize())
}

func TestNewUserStats(t *testing.T) {
	s := NewUserStats()
	assert.Equal(t, UserStats{Level: 1, Rank: "Recruit"}, s)
}

func TestSyncError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSyncError("upsert", "habit", "h1", cause)

	assert.ErrorIs(t, err, ErrSync)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert habit h1")

	var se *SyncError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &se))
	assert.Equal(t, "habit", se.Entity)

	assert.NoError(t, NewSyncError("upsert", "habit", "h1", nil))
}
