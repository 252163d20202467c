package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"titan/internal/clock"
	"titan/internal/events"
	"titan/internal/model"
	"titan/internal/persistence"
	"titan/internal/service/habit"
	"titan/internal/service/stats"
	"titan/pkg/metrics"
)

// Status of the startup load.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

type Options struct {
	// SeedDefaults fills an empty first-run ledger with the default habits.
	SeedDefaults bool
	// LoadTimeout bounds the background remote load. Zero means no bound.
	LoadTimeout time.Duration
}

// Tracker is the application state: the only place habits and stats are
// mutated. Mutations are serialized; readers get copies.
type Tracker struct {
	mu      sync.Mutex
	ledger  *habit.Ledger
	acc     *stats.Accumulator
	store   *persistence.Mediator
	clock   clock.Provider
	events  events.Publisher
	logger  *zap.Logger
	opts    Options
	userID  string
	status  atomic.Value
	ready   chan struct{}
	started atomic.Bool
}

func New(store *persistence.Mediator, clk clock.Provider, pub events.Publisher, logger *zap.Logger, opts Options) *Tracker {
	if pub == nil {
		pub = events.Noop{}
	}
	t := &Tracker{
		ledger: habit.NewLedger(nil),
		acc:    stats.NewAccumulator(model.NewUserStats()),
		store:  store,
		clock:  clk,
		events: pub,
		logger: logger,
		opts:   opts,
		ready:  make(chan struct{}),
	}
	t.status.Store(StatusIdle)
	return t
}

// Start loads the local snapshot synchronously and, when an identity is
// active, reconciles with the remote copy in the background. Ready is
// closed once the state is final for this run; mutations wait for it.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return nil
	}
	t.status.Store(StatusLoading)

	snap, found, err := t.store.LoadLocal(ctx)
	if err != nil {
		t.finishLoad()
		return err
	}

	t.mu.Lock()
	if !found && t.opts.SeedDefaults {
		snap.Habits = habit.DefaultHabits()
		if err := t.store.StoreSnapshot(ctx, snap); err != nil {
			t.logger.Error("Failed to store seeded snapshot", zap.Error(err))
		}
		t.logger.Info("Seeded default habits", zap.Int("count", len(snap.Habits)))
	}
	t.apply(snap)
	t.mu.Unlock()

	userID, ok := t.store.Identity(ctx)
	if !ok {
		t.logger.Debug("Local-only mode")
		t.finishLoad()
		return nil
	}
	t.userID = userID

	go t.reconcile(ctx)
	return nil
}

func (t *Tracker) reconcile(ctx context.Context) {
	defer t.finishLoad()

	if t.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.LoadTimeout)
		defer cancel()
	}

	remote, ok, err := t.store.FetchRemote(ctx)
	if !ok || err != nil {
		// already logged; local state stays authoritative
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	next, _ := t.store.Adopt(context.WithoutCancel(ctx), t.snapshot(), remote)
	t.apply(next)
}

func (t *Tracker) finishLoad() {
	t.status.Store(StatusReady)
	close(t.ready)
}

// Ready is closed when the startup load has finished, successfully or not.
func (t *Tracker) Ready() <-chan struct{} {
	return t.ready
}

// WaitReady blocks until Ready or ctx is done.
func (t *Tracker) WaitReady(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) Status() Status {
	return t.status.Load().(Status)
}

// UserID is the identity remote writes are attributed to, empty in
// local-only mode.
func (t *Tracker) UserID() string {
	return t.userID
}

func (t *Tracker) apply(snap model.Snapshot) {
	t.ledger.Replace(snap.Habits)
	t.acc.Replace(snap.Stats)
}

func (t *Tracker) snapshot() model.Snapshot {
	return model.Snapshot{Habits: t.ledger.List(), Stats: t.acc.Stats()}
}

// awaitLoad holds a mutation until the startup load has settled, so a remote
// fetch that started earlier never replaces it.
func (t *Tracker) awaitLoad(ctx context.Context) error {
	if !t.started.Load() {
		return nil
	}
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rollback restores prev after a failed local write. Caller holds mu.
func (t *Tracker) rollback(prev model.Snapshot, err error) {
	t.apply(prev)
	t.logger.Warn("Mutation rolled back, local write failed", zap.Error(err))
}

// AddHabit creates a habit and persists it.
func (t *Tracker) AddHabit(ctx context.Context, name string, category model.Category) (model.Habit, error) {
	if err := t.awaitLoad(ctx); err != nil {
		return model.Habit{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snapshot()
	h, err := t.ledger.Add(name, category)
	if err != nil {
		return model.Habit{}, err
	}
	if err := t.store.SaveHabit(ctx, t.ledger.List(), h); err != nil {
		t.rollback(prev, err)
		return model.Habit{}, err
	}
	t.publish(ctx, events.Event{Type: events.HabitCreated, HabitID: h.ID, HabitName: h.Name})
	t.logger.Info("Habit added", zap.String("habit_id", h.ID), zap.String("name", h.Name))
	return h, nil
}

// ToggleResult is the outcome of ToggleHabit.
type ToggleResult struct {
	Habit     model.Habit     `json:"habit"`
	Completed bool            `json:"completed"`
	Day       string          `json:"day"`
	Stats     model.UserStats `json:"stats"`
}

// ToggleHabit flips today's completion of habit id. Completing awards
// stats.HabitCompletionXP; the habit and the new stats are saved together.
func (t *Tracker) ToggleHabit(ctx context.Context, id string) (ToggleResult, error) {
	if err := t.awaitLoad(ctx); err != nil {
		return ToggleResult{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snapshot()
	today := t.clock.Today()
	h, completed, err := t.ledger.Toggle(id, today)
	if err != nil {
		return ToggleResult{}, err
	}
	res := ToggleResult{Habit: h, Completed: completed, Day: today}

	if !completed {
		if err := t.store.SaveHabit(ctx, t.ledger.List(), h); err != nil {
			t.rollback(prev, err)
			return ToggleResult{}, err
		}
		metrics.IncrementHabitToggle(false)
		res.Stats = t.acc.Stats()
		t.publish(ctx, events.Event{Type: events.HabitUncompleted, HabitID: h.ID, HabitName: h.Name, Day: today})
		return res, nil
	}

	change, err := t.acc.AwardXP(stats.HabitCompletionXP)
	if err != nil {
		t.apply(prev)
		return ToggleResult{}, err
	}
	if err := t.store.SaveProgress(ctx, t.ledger.List(), h, change.After); err != nil {
		t.rollback(prev, err)
		return ToggleResult{}, err
	}
	metrics.IncrementHabitToggle(true)
	metrics.AddXP("habit", stats.HabitCompletionXP)
	res.Stats = change.After
	t.publish(ctx, events.Event{Type: events.HabitCompleted, HabitID: h.ID, HabitName: h.Name, Day: today})
	t.announce(ctx, change)
	return res, nil
}

// RemoveHabit deletes habit id locally and, when signed in, remotely.
func (t *Tracker) RemoveHabit(ctx context.Context, id string) error {
	if err := t.awaitLoad(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snapshot()
	h, err := t.ledger.Remove(id)
	if err != nil {
		return err
	}
	if err := t.store.DeleteHabit(ctx, t.ledger.List(), id); err != nil {
		t.rollback(prev, err)
		return err
	}
	t.publish(ctx, events.Event{Type: events.HabitDeleted, HabitID: h.ID, HabitName: h.Name})
	t.logger.Info("Habit removed", zap.String("habit_id", id))
	return nil
}

// AwardXP adds amount to the stats.
func (t *Tracker) AwardXP(ctx context.Context, amount int64) (model.UserStats, error) {
	if err := t.awaitLoad(ctx); err != nil {
		return model.UserStats{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	change, err := t.acc.AwardXP(amount)
	if err != nil {
		return t.acc.Stats(), err
	}
	if err := t.commitStats(ctx, change); err != nil {
		return t.acc.Stats(), err
	}
	metrics.AddXP("manual", amount)
	t.announce(ctx, change)
	return change.After, nil
}

// CompleteFocusSession records one finished focus interval.
func (t *Tracker) CompleteFocusSession(ctx context.Context, minutes int) (model.UserStats, error) {
	if err := t.awaitLoad(ctx); err != nil {
		return model.UserStats{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	change, err := t.acc.CompleteFocusSession(minutes)
	if err != nil {
		return t.acc.Stats(), err
	}
	if err := t.commitStats(ctx, change); err != nil {
		return t.acc.Stats(), err
	}
	metrics.AddXP("focus", int64(stats.FocusXPPerMinute*minutes))
	t.publish(ctx, events.Event{Type: events.FocusCompleted, Minutes: minutes})
	t.announce(ctx, change)
	return change.After, nil
}

// commitStats persists the new stats, restoring the previous ones when the
// local write fails. Caller holds mu.
func (t *Tracker) commitStats(ctx context.Context, change stats.Change) error {
	if err := t.store.SaveStats(ctx, change.After); err != nil {
		t.acc.Replace(change.Before)
		t.logger.Warn("Mutation rolled back, local write failed", zap.Error(err))
		return err
	}
	return nil
}

// announce publishes level and rank changes.
func (t *Tracker) announce(ctx context.Context, change stats.Change) {
	if change.LeveledUp() {
		t.publish(ctx, events.Event{Type: events.LevelUp})
		t.logger.Info("Level up", zap.Int("level", change.After.Level))
	}
	if change.RankChanged() {
		t.publish(ctx, events.Event{Type: events.RankUp})
		t.logger.Info("Rank up", zap.String("rank", change.After.Rank))
	}
}

// publish stamps e with the current stats and identity. Caller holds mu.
func (t *Tracker) publish(ctx context.Context, e events.Event) {
	s := t.acc.Stats()
	e.UserID = t.userID
	e.XP = s.XP
	e.Level = s.Level
	e.Rank = s.Rank
	e.OccurredAt = t.clock.Now().UTC()
	t.events.Publish(ctx, e)
}

func (t *Tracker) Stats() model.UserStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acc.Stats()
}

func (t *Tracker) Habits() []model.Habit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.List()
}

func (t *Tracker) Habit(id string) (model.Habit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Get(id)
}

// Snapshot returns a deep copy of the whole state.
func (t *Tracker) Snapshot() model.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Reset purges the local snapshot and restores first-run state. The remote
// copy is left as is.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.awaitLoad(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Reset(ctx); err != nil {
		return err
	}
	snap := model.Snapshot{Habits: []model.Habit{}, Stats: model.NewUserStats()}
	if t.opts.SeedDefaults {
		snap.Habits = habit.DefaultHabits()
	}
	t.apply(snap)
	t.logger.Info("Local state reset")
	return t.store.StoreSnapshot(ctx, snap)
}

// Drain waits for background remote writes.
func (t *Tracker) Drain(ctx context.Context) error {
	return t.store.Drain(ctx)
}
