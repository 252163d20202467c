package model

import "titan/internal/progression"

type UserStats struct {
	XP                int64  `json:"xp"`
	Level             int    `json:"level"`
	Rank              string `json:"rank"`
	TotalPomodoros    int    `json:"totalPomodoros"`
	TotalFocusMinutes int    `json:"totalFocusMinutes"`
}

// NewUserStats returns first-run stats: zero XP, level 1, lowest rank.
func NewUserStats() UserStats {
	s := UserStats{}
	s.Normalize()
	return s
}

// Normalize recomputes Level and Rank from XP. It is idempotent and returns
// true when the derived fields changed.
func (s *UserStats) Normalize() bool {
	if s.XP < 0 {
		s.XP = 0
	}
	level, rank := progression.Compute(s.XP)
	changed := s.Level != level || s.Rank != rank
	s.Level = level
	s.Rank = rank
	return changed
}
