package tracker

import (
	"titan/internal/clock"
	"titan/internal/model"
	"titan/internal/progression"
)

// DayCount is the number of habits completed on one day.
type DayCount struct {
	Day     string `json:"day"`
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// Achievement is a milestone derived from stats and habits.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// Dashboard is the read model behind the status screen.
type Dashboard struct {
	Today          string          `json:"today"`
	CompletedToday int             `json:"completedToday"`
	TotalHabits    int             `json:"totalHabits"`
	Week           []DayCount      `json:"week"`
	Progress       int             `json:"progress"`
	NextRank       string          `json:"nextRank,omitempty"`
	XPToNextRank   int64           `json:"xpToNextRank,omitempty"`
	Stats          model.UserStats `json:"stats"`
	Habits         []model.Habit   `json:"habits"`
	Achievements   []Achievement   `json:"achievements"`
}

const weekDays = 7

// Dashboard summarizes the current state for today.
func (t *Tracker) Dashboard() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	today := clock.DayKey(now)
	s := t.acc.Stats()

	week := make([]DayCount, 0, weekDays)
	for _, day := range clock.LastDays(now, weekDays) {
		d, _ := clock.ParseDayKey(day)
		week = append(week, DayCount{
			Day:     day,
			Weekday: d.Weekday().String()[:3],
			Count:   t.ledger.CompletedCount(day),
		})
	}

	dash := Dashboard{
		Today:          today,
		CompletedToday: t.ledger.CompletedCount(today),
		TotalHabits:    t.ledger.Len(),
		Week:           week,
		Progress:       progression.Progress(s.XP),
		Stats:          s,
		Habits:         t.ledger.List(),
		Achievements:   achievements(s, t.ledger.MaxStreak()),
	}
	if next, ok := progression.NextRank(s.XP); ok {
		dash.NextRank = next.Title
		dash.XPToNextRank = next.MinXP - s.XP
	}
	return dash
}

const (
	focusMasterPomodoros = 10
	ironWillStreak       = 7
	eliteTitanLevel      = 10
)

func achievements(s model.UserStats, maxStreak int) []Achievement {
	return []Achievement{
		{ID: "pioneer", Title: "Pioneer", Description: "Started the journey", Unlocked: true},
		{ID: "focus_master", Title: "Focus master", Description: "10+ pomodoros", Unlocked: s.TotalPomodoros >= focusMasterPomodoros},
		{ID: "iron_will", Title: "Iron will", Description: "7-day streak", Unlocked: maxStreak >= ironWillStreak},
		{ID: "elite_titan", Title: "Elite titan", Description: "Reached level 10", Unlocked: s.Level >= eliteTitanLevel},
	}
}
