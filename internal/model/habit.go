package model

import (
	"fmt"
	"slices"
	"strings"
)

type Category string

const (
	CategoryFitness    Category = "fitness"
	CategoryMindset    Category = "mindset"
	CategoryWork       Category = "work"
	CategoryDiscipline Category = "discipline"
)

// Categories lists the closed set of habit categories.
var Categories = []Category{CategoryFitness, CategoryMindset, CategoryWork, CategoryDiscipline}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// ParseCategory normalises user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
	}
	return c, nil
}

// FrequencyDaily is the only frequency the tracker schedules.
const FrequencyDaily = "daily"

type Habit struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	Frequency     string   `json:"frequency"`
	CompletedDays []string `json:"completedDays"`
	Streak        int      `json:"streak"`
}

// CompletedOn reports whether day is in CompletedDays.
func (h Habit) CompletedOn(day string) bool {
	return slices.Contains(h.CompletedDays, day)
}

// Clone returns a copy that shares no slice storage with h.
func (h Habit) Clone() Habit {
	c := h
	c.CompletedDays = slices.Clone(h.CompletedDays)
	if c.CompletedDays == nil {
		c.CompletedDays = []string{}
	}
	return c
}

// Normalize drops duplicate day-keys, keeping first occurrence order, and
// clamps a negative streak to zero. Applied to every habit that enters the
// ledger from storage.
func (h *Habit) Normalize() {
	seen := make(map[string]struct{}, len(h.CompletedDays))
	days := make([]string, 0, len(h.CompletedDays))
	for _, d := range h.CompletedDays {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	h.CompletedDays = days
	if h.Streak < 0 {
		h.Streak = 0
	}
	if h.Frequency == "" {
		h.Frequency = FrequencyDaily
	}
}

// CloneHabits deep-copies a habit slice.
func CloneHabits(habits []Habit) []Habit {
	out := make([]Habit, len(habits))
	for i, h := range habits {
		out[i] = h.Clone()
	}
	return out
}
