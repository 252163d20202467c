package stats

import (
	"fmt"

	"titan/internal/model"
)

// XP awarded per completed habit.
const HabitCompletionXP = 50

// XP awarded per focused minute.
const FocusXPPerMinute = 2

// Change describes the effect of one XP award.
type Change struct {
	Before model.UserStats
	After  model.UserStats
}

func (c Change) LeveledUp() bool { return c.After.Level > c.Before.Level }

func (c Change) RankChanged() bool { return c.After.Rank != c.Before.Rank }

// Accumulator owns UserStats. Not safe for concurrent use.
type Accumulator struct {
	stats model.UserStats
}

func NewAccumulator(s model.UserStats) *Accumulator {
	a := &Accumulator{}
	a.Replace(s)
	return a
}

// AwardXP adds amount and recomputes level and rank.
func (a *Accumulator) AwardXP(amount int64) (Change, error) {
	if amount < 0 {
		return Change{}, fmt.Errorf("%w: xp amount must be non-negative, got %d", model.ErrValidation, amount)
	}
	before := a.stats
	a.stats.XP += amount
	a.stats.Normalize()
	return Change{Before: before, After: a.stats}, nil
}

// CompleteFocusSession records one finished focus interval of minutes.
func (a *Accumulator) CompleteFocusSession(minutes int) (Change, error) {
	if minutes <= 0 {
		return Change{}, fmt.Errorf("%w: focus minutes must be positive, got %d", model.ErrValidation, minutes)
	}
	before := a.stats
	a.stats.XP += int64(FocusXPPerMinute * minutes)
	a.stats.TotalPomodoros++
	a.stats.TotalFocusMinutes += minutes
	a.stats.Normalize()
	return Change{Before: before, After: a.stats}, nil
}

// Replace swaps the stats wholesale, recomputing derived fields.
func (a *Accumulator) Replace(s model.UserStats) {
	if s.TotalPomodoros < 0 {
		s.TotalPomodoros = 0
	}
	if s.TotalFocusMinutes < 0 {
		s.TotalFocusMinutes = 0
	}
	s.Normalize()
	a.stats = s
}

func (a *Accumulator) Stats() model.UserStats {
	return a.stats
}
