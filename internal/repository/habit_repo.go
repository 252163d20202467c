package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"titan/internal/model"
	"titan/pkg/otel"
)

// ErrHabitOwned rejects an upsert whose habit id already belongs to another user.
var ErrHabitOwned = errors.New("habit id belongs to another user")

type HabitRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewHabitRepository(db DBTX, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{db: db, logger: logger}
}

// ListByUser returns all habits owned by userID in creation order.
func (r *HabitRepository) ListByUser(ctx context.Context, userID string) ([]model.Habit, error) {
	query := `
        SELECT id, user_id, name, category, completed_days, streak, updated_at
        FROM habits
        WHERE user_id = $1
        ORDER BY created_at, id
    `
	var habits []model.Habit
	err := otel.Traced(ctx, "select", "habits", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		rowsData, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (habitRow, error) {
			var h habitRow
			err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Category, &h.CompletedDays, &h.Streak, &h.UpdatedAt)
			return h, err
		})
		if err != nil {
			return err
		}
		habits = make([]model.Habit, 0, len(rowsData))
		for _, h := range rowsData {
			habits = append(habits, h.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	return habits, nil
}

// Upsert writes one habit row keyed by its id. A row owned by another user is
// left untouched and ErrHabitOwned is returned.
func (r *HabitRepository) Upsert(ctx context.Context, userID string, habit model.Habit) error {
	query := `
        INSERT INTO habits (id, user_id, name, category, completed_days, streak, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            category = EXCLUDED.category,
            completed_days = EXCLUDED.completed_days,
            streak = EXCLUDED.streak,
            updated_at = EXCLUDED.updated_at
        WHERE habits.user_id = EXCLUDED.user_id
    `
	row := habitRowFromModel(userID, habit)
	var affected int64
	err := otel.Traced(ctx, "upsert", "habits", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query,
			row.ID, row.UserID, row.Name, row.Category, row.CompletedDays, row.Streak, row.UpdatedAt,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert habit: %w", err)
	}
	if affected == 0 {
		r.logger.Warn("Habit upsert rejected", zap.String("habit_id", habit.ID), zap.String("user_id", userID))
		return fmt.Errorf("habit %s: %w", habit.ID, ErrHabitOwned)
	}
	return nil
}

// Delete removes the habit row. Deleting an absent row is not an error.
func (r *HabitRepository) Delete(ctx context.Context, userID, habitID string) error {
	query := `DELETE FROM habits WHERE id = $1 AND user_id = $2`
	var affected int64
	err := otel.Traced(ctx, "delete", "habits", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, habitID, userID)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if affected == 0 {
		r.logger.Debug("Habit already absent remotely", zap.String("habit_id", habitID))
	}
	return nil
}
