package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.uber.org/zap"

	"titan/internal/model"
	"titan/pkg/circuitbreaker"
	"titan/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the remote tables when missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RemoteStore is the remote half of the persistence layer: profile and habit
// repositories behind one circuit breaker, with latency metrics per call.
type RemoteStore struct {
	profiles *ProfileRepository
	habits   *HabitRepository
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewRemoteStore wires the repositories. breaker may be nil to disable
// fault isolation.
func NewRemoteStore(db DBTX, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *RemoteStore {
	return &RemoteStore{
		profiles: NewProfileRepository(db, logger),
		habits:   NewHabitRepository(db, logger),
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *RemoteStore) call(op, entity string, fn func() error) error {
	start := time.Now()
	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(fn)
	} else {
		err = fn()
	}
	metrics.RecordRemoteSync(op, entity, err, time.Since(start))
	return err
}

func (s *RemoteStore) FetchProfile(ctx context.Context, userID string) (*model.UserStats, error) {
	var stats *model.UserStats
	err := s.call("load", "profile", func() error {
		var err error
		stats, err = s.profiles.Get(ctx, userID)
		return err
	})
	return stats, err
}

func (s *RemoteStore) FetchHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	var habits []model.Habit
	err := s.call("load", "habit", func() error {
		var err error
		habits, err = s.habits.ListByUser(ctx, userID)
		return err
	})
	return habits, err
}

func (s *RemoteStore) UpsertProfile(ctx context.Context, userID string, stats model.UserStats) error {
	return s.call("upsert", "profile", func() error {
		return s.profiles.Upsert(ctx, userID, stats)
	})
}

func (s *RemoteStore) UpsertHabit(ctx context.Context, userID string, habit model.Habit) error {
	return s.call("upsert", "habit", func() error {
		return s.habits.Upsert(ctx, userID, habit)
	})
}

func (s *RemoteStore) DeleteHabit(ctx context.Context, userID, habitID string) error {
	return s.call("delete", "habit", func() error {
		return s.habits.Delete(ctx, userID, habitID)
	})
}
