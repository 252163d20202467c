package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"titan/internal/model"
	"titan/pkg/logger"
	"titan/pkg/metrics"
	"titan/pkg/trace"
	"titan/pkg/util"
)

// Local is the device snapshot. repository.LocalStore implements it.
type Local interface {
	LoadHabits(ctx context.Context) ([]model.Habit, bool, error)
	LoadStats(ctx context.Context) (model.UserStats, bool, error)
	SaveHabits(ctx context.Context, habits []model.Habit) error
	SaveStats(ctx context.Context, stats model.UserStats) error
	// SaveSnapshot writes habits and stats atomically.
	SaveSnapshot(ctx context.Context, habits []model.Habit, stats model.UserStats) error
	ClearSnapshot(ctx context.Context) error
}

// Remote is the per-identity remote copy. repository.RemoteStore implements it.
type Remote interface {
	FetchProfile(ctx context.Context, userID string) (*model.UserStats, error)
	FetchHabits(ctx context.Context, userID string) ([]model.Habit, error)
	UpsertProfile(ctx context.Context, userID string, stats model.UserStats) error
	UpsertHabit(ctx context.Context, userID string, habit model.Habit) error
	DeleteHabit(ctx context.Context, userID, habitID string) error
}

// Identity reports the signed-in principal. identity.Gate implements it.
type Identity interface {
	Identity(ctx context.Context) (string, bool)
}

// Mediator writes every change to the local snapshot synchronously and, when
// an identity is present, mirrors it to the remote store in the background.
type Mediator struct {
	local    Local
	remote   Remote
	identity Identity
	logger   *zap.Logger

	pending sync.WaitGroup
	// dirty is set by stats mutations and cleared by loads; only a dirty
	// profile is pushed, so loading never echoes stats back to the remote.
	dirty atomic.Bool
}

// NewMediator wires the stores. remote and identity may be nil for a
// local-only device.
func NewMediator(local Local, remote Remote, identity Identity, logger *zap.Logger) *Mediator {
	return &Mediator{
		local:    local,
		remote:   remote,
		identity: identity,
		logger:   logger,
	}
}

// Identity returns the active remote identity, if any.
func (m *Mediator) Identity(ctx context.Context) (string, bool) {
	if m.remote == nil || m.identity == nil {
		return "", false
	}
	return m.identity.Identity(ctx)
}

// LoadLocal reads the local snapshot. found is false on first run (no stored
// habits); stats default to first-run values when absent.
func (m *Mediator) LoadLocal(ctx context.Context) (snap model.Snapshot, found bool, err error) {
	habits, found, err := m.local.LoadHabits(ctx)
	if err != nil {
		m.logger.Error("Failed to load local habits", zap.Error(err))
		return model.Snapshot{}, false, err
	}
	stats, ok, err := m.local.LoadStats(ctx)
	if err != nil {
		m.logger.Error("Failed to load local stats", zap.Error(err))
		return model.Snapshot{}, false, err
	}
	if !ok {
		stats = model.NewUserStats()
	}
	if habits == nil {
		habits = []model.Habit{}
	}
	m.dirty.Store(false)
	return model.Snapshot{Habits: habits, Stats: stats}, found, nil
}

// RemoteState is what one remote load returned. Profile is nil when the
// identity has no profile row yet.
type RemoteState struct {
	UserID  string
	Profile *model.UserStats
	Habits  []model.Habit
}

// FetchRemote loads the remote profile and habits concurrently. ok is false
// when no identity is active. Failures come back as *model.SyncError after
// being logged and counted; they are never fatal.
func (m *Mediator) FetchRemote(ctx context.Context) (state RemoteState, ok bool, err error) {
	userID, ok := m.Identity(ctx)
	if !ok {
		return RemoteState{}, false, nil
	}

	ctx = trace.WithContext(ctx, trace.NewOpID())
	log := logger.WithTrace(ctx, m.logger).With(zap.String("user_id", userID))

	state.UserID = userID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := m.remote.FetchProfile(gctx, userID)
		if err != nil {
			return model.NewSyncError("load", "profile", userID, err)
		}
		state.Profile = p
		return nil
	})
	g.Go(func() error {
		h, err := m.remote.FetchHabits(gctx, userID)
		if err != nil {
			return model.NewSyncError("load", "habit", userID, err)
		}
		state.Habits = h
		return nil
	})
	if err := g.Wait(); err != nil {
		m.reportSync(log, err)
		return RemoteState{}, true, err
	}

	log.Debug("Remote state fetched",
		zap.Bool("profile_found", state.Profile != nil),
		zap.Int("remote_habits", len(state.Habits)),
	)
	return state, true, nil
}

// Adopt reconciles remote over current and writes the result to the local
// snapshot. current must not contain mutations made after the fetch started;
// the tracker holds mutations until its load is done.
func (m *Mediator) Adopt(ctx context.Context, current model.Snapshot, remote RemoteState) (model.Snapshot, bool) {
	next, changed := Reconcile(current, remote.Profile, remote.Habits)
	if err := m.StoreSnapshot(ctx, next); err != nil {
		// the in-memory result is still authoritative for this run
		m.logger.Error("Failed to store reconciled snapshot", zap.Error(err))
	}
	m.logger.Info("Remote state adopted",
		zap.String("user_id", remote.UserID),
		zap.Bool("changed", changed),
		zap.Int("habits", len(next.Habits)),
		zap.Int64("xp", next.Stats.XP),
	)
	return next, changed
}

// Reconcile applies remote precedence: a present profile replaces local
// stats; a non-empty remote habit list replaces local habits.
func Reconcile(local model.Snapshot, profile *model.UserStats, habits []model.Habit) (model.Snapshot, bool) {
	next := local.Clone()
	changed := false
	if profile != nil {
		stats := *profile
		stats.Normalize()
		changed = changed || stats != next.Stats
		next.Stats = stats
	}
	if len(habits) > 0 {
		next.Habits = model.CloneHabits(habits)
		for i := range next.Habits {
			next.Habits[i].Normalize()
		}
		changed = true
	}
	return next, changed
}

// StoreSnapshot writes both blobs locally without scheduling remote writes
// and clears the dirty flag.
func (m *Mediator) StoreSnapshot(ctx context.Context, snap model.Snapshot) error {
	m.dirty.Store(false)
	return m.local.SaveSnapshot(ctx, snap.Habits, snap.Stats)
}

// SaveStats persists stats locally and pushes the profile remotely.
func (m *Mediator) SaveStats(ctx context.Context, stats model.UserStats) error {
	m.dirty.Store(true)
	if err := m.local.SaveStats(ctx, stats); err != nil {
		m.logger.Error("Failed to save local stats", zap.Error(err))
		return err
	}
	m.pushProfile(ctx, stats)
	return nil
}

// SaveHabit persists the habit list locally and upserts changed remotely.
func (m *Mediator) SaveHabit(ctx context.Context, habits []model.Habit, changed model.Habit) error {
	if err := m.local.SaveHabits(ctx, habits); err != nil {
		m.logger.Error("Failed to save local habits", zap.Error(err))
		return err
	}
	m.async(ctx, "upsert", "habit", changed.ID, func(ctx context.Context, userID string) error {
		return m.remote.UpsertHabit(ctx, userID, changed)
	})
	return nil
}

// SaveProgress persists a habit change and the stats it produced in one
// local write, then mirrors both remotely. Either both are stored locally or
// neither is.
func (m *Mediator) SaveProgress(ctx context.Context, habits []model.Habit, changed model.Habit, stats model.UserStats) error {
	m.dirty.Store(true)
	if err := m.local.SaveSnapshot(ctx, habits, stats); err != nil {
		m.logger.Error("Failed to save local snapshot", zap.Error(err))
		return err
	}
	m.async(ctx, "upsert", "habit", changed.ID, func(ctx context.Context, userID string) error {
		return m.remote.UpsertHabit(ctx, userID, changed)
	})
	m.pushProfile(ctx, stats)
	return nil
}

// DeleteHabit persists the habit list locally and deletes habitID remotely.
// The remote outcome never affects the local removal.
func (m *Mediator) DeleteHabit(ctx context.Context, habits []model.Habit, habitID string) error {
	if err := m.local.SaveHabits(ctx, habits); err != nil {
		m.logger.Error("Failed to save local habits", zap.Error(err))
		return err
	}
	m.async(ctx, "delete", "habit", habitID, func(ctx context.Context, userID string) error {
		return m.remote.DeleteHabit(ctx, userID, habitID)
	})
	return nil
}

// Reset purges the local snapshot. The remote copy is untouched.
func (m *Mediator) Reset(ctx context.Context) error {
	m.dirty.Store(false)
	return m.local.ClearSnapshot(ctx)
}

// Drain waits for pending remote writes or until ctx is done.
func (m *Mediator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mediator) pushProfile(ctx context.Context, stats model.UserStats) {
	if !m.dirty.Load() {
		return
	}
	m.async(ctx, "upsert", "profile", "", func(ctx context.Context, userID string) error {
		return m.remote.UpsertProfile(ctx, userID, stats)
	})
}

// async runs fn in the background for the current identity. The goroutine's
// context is detached from ctx so request cancellation never aborts a write.
func (m *Mediator) async(ctx context.Context, op, entity, id string, fn func(ctx context.Context, userID string) error) {
	userID, ok := m.Identity(ctx)
	if !ok {
		return
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		bg := trace.WithContext(context.WithoutCancel(ctx), trace.NewOpID())
		log := logger.WithTrace(bg, m.logger).With(
			zap.String("op", op),
			zap.String("entity", entity),
			zap.String("user_id", userID),
		)
		if err := fn(bg, userID); err != nil {
			m.reportSync(log, model.NewSyncError(op, entity, id, err))
			return
		}
		log.Debug("Remote write applied", zap.String("id", id))
	}()
}

func (m *Mediator) reportSync(log *zap.Logger, err error) {
	entity := "unknown"
	var syncErr *model.SyncError
	if errors.As(err, &syncErr) {
		entity = syncErr.Entity
	}
	kind := util.ClassifyError(err)
	metrics.IncrementSyncFailure(entity, kind)
	log.Warn("Remote sync failed", zap.String("kind", kind), zap.Error(err))
}
