package repository

import (
	"time"

	"titan/internal/model"
)

// profileRow mirrors the profiles table.
type profileRow struct {
	ID                string
	XP                int64
	Level             int
	Rank              string
	TotalPomodoros    int
	TotalFocusMinutes int
	UpdatedAt         time.Time
}

func (r profileRow) toModel() model.UserStats {
	s := model.UserStats{
		XP:                r.XP,
		Level:             r.Level,
		Rank:              r.Rank,
		TotalPomodoros:    r.TotalPomodoros,
		TotalFocusMinutes: r.TotalFocusMinutes,
	}
	// level/rank columns are informational; XP is authoritative
	s.Normalize()
	return s
}

func profileRowFromModel(userID string, s model.UserStats) profileRow {
	return profileRow{
		ID:                userID,
		XP:                s.XP,
		Level:             s.Level,
		Rank:              s.Rank,
		TotalPomodoros:    s.TotalPomodoros,
		TotalFocusMinutes: s.TotalFocusMinutes,
		UpdatedAt:         time.Now().UTC(),
	}
}

// habitRow mirrors the habits table.
type habitRow struct {
	ID            string
	UserID        string
	Name          string
	Category      string
	CompletedDays []string
	Streak        int
	UpdatedAt     time.Time
}

func (r habitRow) toModel() model.Habit {
	h := model.Habit{
		ID:            r.ID,
		Name:          r.Name,
		Category:      model.Category(r.Category),
		Frequency:     model.FrequencyDaily,
		CompletedDays: r.CompletedDays,
		Streak:        r.Streak,
	}
	h.Normalize()
	return h
}

func habitRowFromModel(userID string, h model.Habit) habitRow {
	days := h.CompletedDays
	if days == nil {
		days = []string{}
	}
	return habitRow{
		ID:            h.ID,
		UserID:        userID,
		Name:          h.Name,
		Category:      string(h.Category),
		CompletedDays: days,
		Streak:        h.Streak,
		UpdatedAt:     time.Now().UTC(),
	}
}
