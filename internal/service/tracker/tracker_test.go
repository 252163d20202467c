package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"titan/internal/clock"
	"titan/internal/events"
	"titan/internal/model"
	"titan/internal/persistence"
	"titan/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type fakeRemote struct {
	mu       sync.Mutex
	profile  *model.UserStats
	habits   []model.Habit
	fetchErr error
	writeErr error
	upserts  []string
	deletes  []string
	profiles int
	xp       []int64
	// gate, when set, holds FetchHabits until closed
	gate chan struct{}
}

func (f *fakeRemote) FetchProfile(context.Context, string) (*model.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, f.fetchErr
}

func (f *fakeRemote) FetchHabits(context.Context, string) ([]model.Habit, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.CloneHabits(f.habits), f.fetchErr
}

func (f *fakeRemote) UpsertProfile(_ context.Context, _ string, s model.UserStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles++
	f.xp = append(f.xp, s.XP)
	return f.writeErr
}

func (f *fakeRemote) UpsertHabit(_ context.Context, _ string, h model.Habit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, h.ID)
	return f.writeErr
}

func (f *fakeRemote) DeleteHabit(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.writeErr
}

type signedIn string

func (s signedIn) Identity(context.Context) (string, bool) { return string(s), s != "" }

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
}

func (r *recorder) Close(context.Context) error { return nil }

func (r *recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

// failingLocal is a LocalStore whose writes fail while err is set.
type failingLocal struct {
	*repository.LocalStore
	mu  sync.Mutex
	err error
}

func (f *failingLocal) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *failingLocal) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *failingLocal) SaveHabits(ctx context.Context, habits []model.Habit) error {
	if err := f.failure(); err != nil {
		return err
	}
	return f.LocalStore.SaveHabits(ctx, habits)
}

func (f *failingLocal) SaveStats(ctx context.Context, s model.UserStats) error {
	if err := f.failure(); err != nil {
		return err
	}
	return f.LocalStore.SaveStats(ctx, s)
}

func (f *failingLocal) SaveSnapshot(ctx context.Context, habits []model.Habit, s model.UserStats) error {
	if err := f.failure(); err != nil {
		return err
	}
	return f.LocalStore.SaveSnapshot(ctx, habits, s)
}

type env struct {
	local   persistence.Local
	remote  *fakeRemote
	clock   *clock.Fixed
	events  *recorder
	tracker *Tracker
}

func newEnv(t *testing.T, remote *fakeRemote, userID string, opts Options) *env {
	t.Helper()
	local, err := repository.NewLocalStore(filepath.Join(t.TempDir(), "titan.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	return newEnvWithLocal(t, local, remote, userID, opts)
}

func newEnvWithLocal(t *testing.T, local persistence.Local, remote *fakeRemote, userID string, opts Options) *env {
	t.Helper()
	var r persistence.Remote
	if remote != nil {
		r = remote
	}
	med := persistence.NewMediator(local, r, signedIn(userID), zap.NewNop())
	clk := &clock.Fixed{At: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	e := &env{local: local, remote: remote, clock: clk, events: rec, tracker: New(med, clk, rec, zap.NewNop(), opts)}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = e.tracker.Drain(ctx)
	})
	return e
}

func (e *env) start(t *testing.T) {
	t.Helper()
	require.NoError(t, e.tracker.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.tracker.WaitReady(ctx))
}

func (e *env) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.tracker.Drain(ctx))
}

func TestStart_FirstRunSeedsDefaults(t *testing.T) {
	e := newEnv(t, nil, "", Options{SeedDefaults: true})
	e.start(t)

	assert.Equal(t, StatusReady, e.tracker.Status())
	assert.Len(t, e.tracker.Habits(), 4)
	assert.Equal(t, model.NewUserStats(), e.tracker.Stats())

	stored, ok, err := e.local.LoadHabits(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, stored, 4)
}

func TestStart_NoSeed(t *testing.T) {
	e := newEnv(t, nil, "", Options{})
	e.start(t)
	assert.Empty(t, e.tracker.Habits())
}

func TestToggleScenario_FourCompletions(t *testing.T) {
	e := newEnv(t, nil, "", Options{SeedDefaults: true})
	e.start(t)
	ctx := context.Background()

	for _, h := range e.tracker.Habits() {
		res, err := e.tracker.ToggleHabit(ctx, h.ID)
		require.NoError(t, err)
		assert.True(t, res.Completed)
		assert.Equal(t, "2024-03-10", res.Day)
	}
	s := e.tracker.Stats()
	assert.Equal(t, int64(200), s.XP)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, "Recruit", s.Rank)

	stored, ok, err := e.local.LoadStats(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s, stored)
}

func TestToggleScenario_TenCompletionsReachGuardian(t *testing.T) {
	e := newEnv(t, nil, "", Options{})
	e.start(t)
	ctx := context.Background()

	h, err := e.tracker.AddHabit(ctx, "Run", model.CategoryFitness)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := e.tracker.ToggleHabit(ctx, h.ID)
		require.NoError(t, err)
		e.clock.Advance(24 * time.Hour)
	}
	s := e.tracker.Stats()
	assert.Equal(t, int64(500), s.XP)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, "Guardian", s.Rank)
	assert.Contains(t, e.events.Types(), events.RankUp)

	got, err := e.tracker.Habit(h.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Streak)
	assert.Len(t, got.CompletedDays, 10)
}

func TestToggleOff_KeepsStreakAndXP(t *testing.T) {
	e := newEnv(t, nil, "", Options{})
	e.start(t)
	ctx := context.Background()

	h, _ := e.tracker.AddHabit(ctx, "Read", model.CategoryMindset)
	_, err := e.tracker.ToggleHabit(ctx, h.ID)
	require.NoError(t, err)
	res, err := e.tracker.ToggleHabit(ctx, h.ID)
	require.NoError(t, err)

	assert.False(t, res.Completed)
	assert.Empty(t, res.Habit.CompletedDays)
	assert.Equal(t, 1, res.Habit.Streak)
	assert.Equal(t, int64(50), res.Stats.XP)
	assert.Equal(t, []string{events.HabitCreated, events.HabitCompleted, events.HabitUncompleted}, e.events.Types())
}

func TestFocusSession(t *testing.T) {
	e := newEnv(t, nil, "", Options{})
	e.start(t)

	s, err := e.tracker.CompleteFocusSession(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, int64(50), s.XP)
	assert.Equal(t, 1, s.TotalPomodoros)
	assert.Equal(t, 25, s.TotalFocusMinutes)

	_, err = e.tracker.CompleteFocusSession(context.Background(), 0)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAwardXP_LevelUpEvent(t *testing.T) {
	e := newEnv(t, nil, "", Options{})
	e.start(t)

	s, err := e.tracker.AwardXP(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, []string{events.LevelUp, events.RankUp}, e.events.Types())

	_, err = e.tracker.AwardXP(context.Background(), -5)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRemoveHabit(t *testing.T) {
	remote := &fakeRemote{writeErr: errors.New("unreachable")}
	e := newEnv(t, remote, "u1", Options{})
	e.start(t)
	ctx := context.Background()

	err := e.tracker.RemoveHabit(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	h, err := e.tracker.AddHabit(ctx, "Run", model.CategoryFitness)
	require.NoError(t, err)
	require.NoError(t, e.tracker.RemoveHabit(ctx, h.ID))
	e.drain(t)

	assert.Empty(t, e.tracker.Habits())
	stored, _, _ := e.local.LoadHabits(ctx)
	assert.Empty(t, stored)
	assert.Equal(t, []string{h.ID}, remote.deletes)
}

func TestStart_RemoteReplacesLocal(t *testing.T) {
	remoteStats := model.UserStats{XP: 3600, TotalPomodoros: 12}
	remote := &fakeRemote{
		profile: &remoteStats,
		habits:  []model.Habit{{ID: "r1", Name: "Swim", Category: model.CategoryFitness, CompletedDays: []string{"2024-03-09"}, Streak: 8}},
	}
	e := newEnv(t, remote, "u1", Options{SeedDefaults: true})
	e.start(t)

	habits := e.tracker.Habits()
	require.Len(t, habits, 1)
	assert.Equal(t, "r1", habits[0].ID)
	s := e.tracker.Stats()
	assert.Equal(t, int64(3600), s.XP)
	assert.Equal(t, "Sentinel", s.Rank)
	assert.Equal(t, "u1", e.tracker.UserID())

	e.drain(t)
	assert.Equal(t, 0, remote.profiles, "remote load never writes stats back")
	assert.Empty(t, remote.upserts)

	stored, _, _ := e.local.LoadStats(context.Background())
	assert.Equal(t, int64(3600), stored.XP)
}

func TestStart_EmptyRemoteHabitsKeepLocal(t *testing.T) {
	remote := &fakeRemote{}
	e := newEnv(t, remote, "u1", Options{SeedDefaults: true})
	e.start(t)

	assert.Len(t, e.tracker.Habits(), 4)
	assert.Equal(t, model.NewUserStats(), e.tracker.Stats())
}

func TestStart_RemoteFailureKeepsLocal(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("timeout")}
	e := newEnv(t, remote, "u1", Options{})
	e.start(t)

	ctx := context.Background()
	h, err := e.tracker.AddHabit(ctx, "Run", model.CategoryFitness)
	require.NoError(t, err)
	_, err = e.tracker.ToggleHabit(ctx, h.ID)
	require.NoError(t, err)
	e.drain(t)

	assert.Equal(t, int64(50), e.tracker.Stats().XP)
	assert.Equal(t, []string{h.ID, h.ID}, remote.upserts)
	assert.Equal(t, 1, remote.profiles)
}

func TestRestartLoadsLocalSnapshot(t *testing.T) {
	local, err := repository.NewLocalStore(filepath.Join(t.TempDir(), "titan.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	first := newEnvWithLocal(t, local, nil, "", Options{SeedDefaults: true})
	first.start(t)
	h := first.tracker.Habits()[0]
	_, err = first.tracker.ToggleHabit(context.Background(), h.ID)
	require.NoError(t, err)

	second := newEnvWithLocal(t, local, nil, "", Options{SeedDefaults: true})
	second.start(t)
	assert.Equal(t, first.tracker.Snapshot(), second.tracker.Snapshot())
}

func TestReset(t *testing.T) {
	e := newEnv(t, nil, "", Options{SeedDefaults: true})
	e.start(t)
	ctx := context.Background()

	_, err := e.tracker.CompleteFocusSession(ctx, 30)
	require.NoError(t, err)
	_, err = e.tracker.AddHabit(ctx, "Extra", model.CategoryWork)
	require.NoError(t, err)

	require.NoError(t, e.tracker.Reset(ctx))
	assert.Equal(t, model.NewUserStats(), e.tracker.Stats())
	assert.Len(t, e.tracker.Habits(), 4)

	stored, ok, err := e.local.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.NewUserStats(), stored)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	e := newEnv(t, nil, "", Options{})
	e.start(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.tracker.CompleteFocusSession(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s := e.tracker.Stats()
	assert.Equal(t, int64(40), s.XP)
	assert.Equal(t, 20, s.TotalPomodoros)
	stored, _, _ := e.local.LoadStats(ctx)
	assert.Equal(t, s, stored)
}

func TestDashboard(t *testing.T) {
	e := newEnv(t, nil, "", Options{SeedDefaults: true})
	e.start(t)
	ctx := context.Background()
	habits := e.tracker.Habits()

	_, _ = e.tracker.ToggleHabit(ctx, habits[0].ID)
	e.clock.Advance(24 * time.Hour)
	_, _ = e.tracker.ToggleHabit(ctx, habits[0].ID)
	_, _ = e.tracker.ToggleHabit(ctx, habits[1].ID)

	d := e.tracker.Dashboard()
	assert.Equal(t, "2024-03-11", d.Today)
	assert.Equal(t, 2, d.CompletedToday)
	assert.Equal(t, 4, d.TotalHabits)
	require.Len(t, d.Week, 7)
	assert.Equal(t, "2024-03-05", d.Week[0].Day)
	assert.Equal(t, DayCount{Day: "2024-03-10", Weekday: "Sun", Count: 1}, d.Week[5])
	assert.Equal(t, DayCount{Day: "2024-03-11", Weekday: "Mon", Count: 2}, d.Week[6])
	assert.Equal(t, 15, d.Progress)
	assert.Equal(t, "Guardian", d.NextRank)
	assert.Equal(t, int64(350), d.XPToNextRank)

	require.Len(t, d.Achievements, 4)
	assert.True(t, d.Achievements[0].Unlocked)
	assert.False(t, d.Achievements[1].Unlocked)
}

func TestAchievements(t *testing.T) {
	s := model.UserStats{XP: 8999, TotalPomodoros: 10}
	s.Normalize()
	got := achievements(s, 7)
	for _, a := range got[:3] {
		assert.True(t, a.Unlocked, a.ID)
	}
	assert.False(t, got[3].Unlocked, "level 9")

	s = model.UserStats{XP: 9000}
	s.Normalize()
	assert.Equal(t, 10, s.Level)
	assert.True(t, achievements(s, 0)[3].Unlocked)
}

func TestToggle_LocalWriteFailureRollsBack(t *testing.T) {
	store, err := repository.NewLocalStore(filepath.Join(t.TempDir(), "titan.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	local := &failingLocal{LocalStore: store}

	remote := &fakeRemote{}
	e := newEnvWithLocal(t, local, remote, "u1", Options{SeedDefaults: true})
	e.start(t)
	ctx := context.Background()
	h := e.tracker.Habits()[0]

	errDisk := errors.New("disk full")
	local.setErr(errDisk)

	_, err = e.tracker.ToggleHabit(ctx, h.ID)
	assert.ErrorIs(t, err, errDisk)
	got, err := e.tracker.Habit(h.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CompletedDays)
	assert.Zero(t, got.Streak)
	assert.Zero(t, e.tracker.Stats().XP)

	_, err = e.tracker.CompleteFocusSession(ctx, 25)
	assert.ErrorIs(t, err, errDisk)
	assert.Zero(t, e.tracker.Stats().XP)
	assert.Zero(t, e.tracker.Stats().TotalPomodoros)

	_, err = e.tracker.AddHabit(ctx, "Swim", model.CategoryFitness)
	assert.ErrorIs(t, err, errDisk)
	assert.Len(t, e.tracker.Habits(), 4)

	assert.ErrorIs(t, e.tracker.RemoveHabit(ctx, h.ID), errDisk)
	assert.Len(t, e.tracker.Habits(), 4)

	e.drain(t)
	assert.Empty(t, remote.upserts, "nothing mirrored for a rolled back change")
	assert.Zero(t, remote.profiles)
	assert.Empty(t, remote.deletes)
	assert.Empty(t, e.events.Types())

	local.setErr(nil)
	res, err := e.tracker.ToggleHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Habit.Streak)
	assert.Equal(t, int64(50), res.Stats.XP)

	storedHabits, _, _ := store.LoadHabits(ctx)
	assert.Equal(t, []string{"2024-03-10"}, storedHabits[0].CompletedDays)
	storedStats, _, _ := store.LoadStats(ctx)
	assert.Equal(t, int64(50), storedStats.XP)
}

func TestMutationsWaitForRemoteLoad(t *testing.T) {
	remoteStats := model.UserStats{XP: 100}
	remote := &fakeRemote{
		profile: &remoteStats,
		habits:  []model.Habit{{ID: "r1", Name: "Swim", Category: model.CategoryFitness, CompletedDays: []string{}}},
		gate:    make(chan struct{}),
	}
	e := newEnv(t, remote, "u1", Options{})
	require.NoError(t, e.tracker.Start(context.Background()))
	assert.Equal(t, StatusLoading, e.tracker.Status())

	type result struct {
		res ToggleResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		ctx := context.Background()
		h, err := e.tracker.AddHabit(ctx, "Read", model.CategoryMindset)
		if err != nil {
			done <- result{err: err}
			return
		}
		res, err := e.tracker.ToggleHabit(ctx, h.ID)
		done <- result{res: res, err: err}
	}()

	select {
	case <-done:
		t.Fatal("mutation applied while the remote load was pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(remote.gate)
	var r result
	select {
	case r = <-done:
	case <-time.After(time.Second):
		t.Fatal("mutation still blocked after the load finished")
	}
	require.NoError(t, r.err)
	assert.Equal(t, int64(150), r.res.Stats.XP)

	habits := e.tracker.Habits()
	require.Len(t, habits, 2)
	assert.Equal(t, "r1", habits[0].ID)
	assert.Equal(t, "Read", habits[1].Name)

	e.drain(t)
	assert.Equal(t, []int64{150}, remote.xp)
}

func TestMutationWaitIsBoundedByContext(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{})}
	e := newEnv(t, remote, "u1", Options{})
	require.NoError(t, e.tracker.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.tracker.CompleteFocusSession(ctx, 25)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, e.tracker.Stats().XP)

	close(remote.gate)
	e.start(t)
}
