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

type ProfileRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewProfileRepository(db DBTX, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, logger: logger}
}

// Get returns the profile stats of userID, or nil when no row exists.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*model.UserStats, error) {
	query := `
        SELECT id, xp, level, rank, total_pomodoros, total_focus_minutes, updated_at
        FROM profiles
        WHERE id = $1
    `
	var row profileRow
	err := otel.Traced(ctx, "select", "profiles", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, userID).Scan(
			&row.ID,
			&row.XP,
			&row.Level,
			&row.Rank,
			&row.TotalPomodoros,
			&row.TotalFocusMinutes,
			&row.UpdatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	stats := row.toModel()
	return &stats, nil
}

// Upsert writes the whole profile row.
func (r *ProfileRepository) Upsert(ctx context.Context, userID string, stats model.UserStats) error {
	query := `
        INSERT INTO profiles (id, xp, level, rank, total_pomodoros, total_focus_minutes, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            xp = EXCLUDED.xp,
            level = EXCLUDED.level,
            rank = EXCLUDED.rank,
            total_pomodoros = EXCLUDED.total_pomodoros,
            total_focus_minutes = EXCLUDED.total_focus_minutes,
            updated_at = EXCLUDED.updated_at
    `
	row := profileRowFromModel(userID, stats)
	err := otel.Traced(ctx, "upsert", "profiles", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query,
			row.ID, row.XP, row.Level, row.Rank, row.TotalPomodoros, row.TotalFocusMinutes, row.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	r.logger.Debug("Profile upserted", zap.String("user_id", userID), zap.Int64("xp", stats.XP))
	return nil
}
