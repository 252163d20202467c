package events

import (
	"context"
	"time"
)

// Routing keys on the titan.events exchange.
const (
	HabitCompleted   = "habit.completed"
	HabitUncompleted = "habit.uncompleted"
	HabitCreated     = "habit.created"
	HabitDeleted     = "habit.deleted"
	FocusCompleted   = "focus.completed"
	LevelUp          = "progress.level_up"
	RankUp           = "progress.rank_up"
)

// Event is the JSON payload of a progress event.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	HabitID    string    `json:"habitId,omitempty"`
	HabitName  string    `json:"habitName,omitempty"`
	Day        string    `json:"day,omitempty"`
	Minutes    int       `json:"minutes,omitempty"`
	XP         int64     `json:"xp"`
	Level      int       `json:"level"`
	Rank       string    `json:"rank"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers events without blocking the caller. Failures are
// logged, never returned.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close(ctx context.Context) error
}

// Noop discards events. Used when mq.url is empty.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

func (Noop) Close(context.Context) error { return nil }
