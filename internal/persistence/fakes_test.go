package persistence

import (
	"context"
	"errors"
	"sync"

	"titan/internal/model"
)

type memLocal struct {
	mu       sync.Mutex
	habits   []model.Habit
	stats    *model.UserStats
	hasHabit bool
	failSave error
}

func (m *memLocal) LoadHabits(context.Context) ([]model.Habit, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasHabit {
		return nil, false, nil
	}
	return model.CloneHabits(m.habits), true, nil
}

func (m *memLocal) LoadStats(context.Context) (model.UserStats, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		return model.UserStats{}, false, nil
	}
	return *m.stats, true, nil
}

func (m *memLocal) SaveHabits(_ context.Context, habits []model.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.habits = model.CloneHabits(habits)
	m.hasHabit = true
	return nil
}

func (m *memLocal) SaveStats(_ context.Context, stats model.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.stats = &stats
	return nil
}

func (m *memLocal) SaveSnapshot(_ context.Context, habits []model.Habit, stats model.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.habits = model.CloneHabits(habits)
	m.hasHabit = true
	m.stats = &stats
	return nil
}

func (m *memLocal) ClearSnapshot(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.habits, m.stats, m.hasHabit = nil, nil, false
	return nil
}

func (m *memLocal) savedStats() *model.UserStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *memLocal) savedHabits() []model.Habit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.CloneHabits(m.habits)
}

type call struct {
	op     string
	userID string
	id     string
}

type fakeRemote struct {
	mu       sync.Mutex
	profile  *model.UserStats
	habits   []model.Habit
	fetchErr error
	writeErr error
	block    chan struct{}
	calls    []call
}

func (f *fakeRemote) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeRemote) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRemote) wait() {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeRemote) FetchProfile(_ context.Context, userID string) (*model.UserStats, error) {
	f.record(call{op: "fetch_profile", userID: userID})
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.profile, nil
}

func (f *fakeRemote) FetchHabits(_ context.Context, userID string) ([]model.Habit, error) {
	f.record(call{op: "fetch_habits", userID: userID})
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return model.CloneHabits(f.habits), nil
}

func (f *fakeRemote) UpsertProfile(_ context.Context, userID string, _ model.UserStats) error {
	f.wait()
	f.record(call{op: "upsert_profile", userID: userID})
	return f.writeErr
}

func (f *fakeRemote) UpsertHabit(_ context.Context, userID string, h model.Habit) error {
	f.wait()
	f.record(call{op: "upsert_habit", userID: userID, id: h.ID})
	return f.writeErr
}

func (f *fakeRemote) DeleteHabit(_ context.Context, userID, habitID string) error {
	f.wait()
	f.record(call{op: "delete_habit", userID: userID, id: habitID})
	return f.writeErr
}

type staticIdentity string

func (s staticIdentity) Identity(context.Context) (string, bool) {
	return string(s), s != ""
}

var errBoom = errors.New("connection refused")
