package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"titan/internal/model"
	"titan/pkg/metrics"
)

// Keys of the local key/value snapshot.
const (
	KeyHabits  = "titan_habits"
	KeyStats   = "titan_stats"
	KeySession = "titan_session"
)

// LocalStore keeps the device-local snapshot as JSON blobs in a SQLite kv table.
type LocalStore struct {
	db     *sql.DB
	logger *zap.Logger
	path   string
}

// NewLocalStore opens (or creates) the SQLite database at path.
func NewLocalStore(path string, logger *zap.Logger) (*LocalStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	s := &LocalStore{db: db, logger: logger, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *LocalStore) Path() string {
	return s.path
}

// Get returns the raw value for key. ok is false when the key is absent.
func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	metrics.IncrementLocalWrite(key, err)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Put stores value under key, replacing any previous value.
func (s *LocalStore) Put(ctx context.Context, key, value string) error {
	return put(ctx, s.db, key, value)
}

// Delete removes keys. Missing keys are ignored.
func (s *LocalStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// LoadHabits returns the stored habit list. ok is false on first run, and
// also when the blob cannot be decoded (treated as absent).
func (s *LocalStore) LoadHabits(ctx context.Context) ([]model.Habit, bool, error) {
	raw, ok, err := s.Get(ctx, KeyHabits)
	if err != nil || !ok {
		return nil, false, err
	}
	var habits []model.Habit
	if err := json.Unmarshal([]byte(raw), &habits); err != nil {
		s.logger.Warn("Discarding unreadable local habits", zap.Error(err))
		return nil, false, nil
	}
	for i := range habits {
		habits[i].Normalize()
	}
	return habits, true, nil
}

// LoadStats returns the stored stats, with level and rank recomputed.
func (s *LocalStore) LoadStats(ctx context.Context) (model.UserStats, bool, error) {
	raw, ok, err := s.Get(ctx, KeyStats)
	if err != nil || !ok {
		return model.UserStats{}, false, err
	}
	var stats model.UserStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("Discarding unreadable local stats", zap.Error(err))
		return model.UserStats{}, false, nil
	}
	stats.Normalize()
	return stats, true, nil
}

func encodeHabits(habits []model.Habit) (string, error) {
	if habits == nil {
		habits = []model.Habit{}
	}
	data, err := json.Marshal(habits)
	if err != nil {
		return "", fmt.Errorf("failed to encode habits: %w", err)
	}
	return string(data), nil
}

func encodeStats(stats model.UserStats) (string, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("failed to encode stats: %w", err)
	}
	return string(data), nil
}

func (s *LocalStore) SaveHabits(ctx context.Context, habits []model.Habit) error {
	data, err := encodeHabits(habits)
	if err != nil {
		return err
	}
	return s.Put(ctx, KeyHabits, data)
}

func (s *LocalStore) SaveStats(ctx context.Context, stats model.UserStats) error {
	data, err := encodeStats(stats)
	if err != nil {
		return err
	}
	return s.Put(ctx, KeyStats, data)
}

// SaveSnapshot writes habits and stats in one transaction.
func (s *LocalStore) SaveSnapshot(ctx context.Context, habits []model.Habit, stats model.UserStats) error {
	habitsData, err := encodeHabits(habits)
	if err != nil {
		return err
	}
	statsData, err := encodeStats(stats)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot write: %w", err)
	}
	defer tx.Rollback()

	if err := put(ctx, tx, KeyHabits, habitsData); err != nil {
		return err
	}
	if err := put(ctx, tx, KeyStats, statsData); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ClearSnapshot removes habits and stats. The session is kept.
func (s *LocalStore) ClearSnapshot(ctx context.Context) error {
	return s.Delete(ctx, KeyHabits, KeyStats)
}
