package habit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"titan/internal/clock"
	"titan/internal/model"
)

// Ledger holds the habit collection in insertion order. It is not safe for
// concurrent use; the tracker serializes access.
type Ledger struct {
	habits []model.Habit
	newID  func() string
}

// NewLedger returns a ledger seeded with a copy of habits.
func NewLedger(habits []model.Habit) *Ledger {
	l := &Ledger{newID: uuid.NewString}
	l.Replace(habits)
	return l
}

// DefaultHabits is the first-run seed.
func DefaultHabits() []model.Habit {
	seed := []struct {
		name     string
		category model.Category
	}{
		{"Cold shower", model.CategoryDiscipline},
		{"Deep work", model.CategoryWork},
		{"Weight training", model.CategoryFitness},
		{"Reading / learning", model.CategoryMindset},
	}
	habits := make([]model.Habit, 0, len(seed))
	for _, s := range seed {
		habits = append(habits, newHabit(uuid.NewString(), s.name, s.category))
	}
	return habits
}

func newHabit(id, name string, category model.Category) model.Habit {
	return model.Habit{
		ID:            id,
		Name:          name,
		Category:      category,
		Frequency:     model.FrequencyDaily,
		CompletedDays: []string{},
	}
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.habits, func(h model.Habit) bool { return h.ID == id })
}

// Add appends a new habit with a fresh id.
func (l *Ledger) Add(name string, category model.Category) (model.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Habit{}, fmt.Errorf("%w: habit name is required", model.ErrValidation)
	}
	if !category.Valid() {
		return model.Habit{}, fmt.Errorf("%w: unknown category %q", model.ErrValidation, category)
	}
	h := newHabit(l.newID(), name, category)
	l.habits = append(l.habits, h)
	return h.Clone(), nil
}

// Toggle flips completion of habit id for day. Completing increments the
// streak; un-completing leaves it as is. completed reports the new state.
func (l *Ledger) Toggle(id, day string) (h model.Habit, completed bool, err error) {
	if _, err := clock.ParseDayKey(day); err != nil {
		return model.Habit{}, false, fmt.Errorf("%w: bad day-key %q", model.ErrValidation, day)
	}
	i := l.index(id)
	if i < 0 {
		return model.Habit{}, false, fmt.Errorf("habit %s: %w", id, model.ErrNotFound)
	}

	cur := &l.habits[i]
	if j := slices.Index(cur.CompletedDays, day); j >= 0 {
		cur.CompletedDays = slices.Delete(cur.CompletedDays, j, j+1)
	} else {
		cur.CompletedDays = append(cur.CompletedDays, day)
		cur.Streak++
		completed = true
	}
	return cur.Clone(), completed, nil
}

// Remove deletes habit id and returns it.
func (l *Ledger) Remove(id string) (model.Habit, error) {
	i := l.index(id)
	if i < 0 {
		return model.Habit{}, fmt.Errorf("habit %s: %w", id, model.ErrNotFound)
	}
	h := l.habits[i]
	l.habits = slices.Delete(l.habits, i, i+1)
	return h, nil
}

// Replace swaps the whole collection, normalizing every record.
func (l *Ledger) Replace(habits []model.Habit) {
	l.habits = model.CloneHabits(habits)
	for i := range l.habits {
		l.habits[i].Normalize()
	}
}

// Get returns a copy of habit id.
func (l *Ledger) Get(id string) (model.Habit, error) {
	i := l.index(id)
	if i < 0 {
		return model.Habit{}, fmt.Errorf("habit %s: %w", id, model.ErrNotFound)
	}
	return l.habits[i].Clone(), nil
}

// List returns deep copies in insertion order.
func (l *Ledger) List() []model.Habit {
	return model.CloneHabits(l.habits)
}

func (l *Ledger) Len() int {
	return len(l.habits)
}

// CompletedCount counts habits completed on day.
func (l *Ledger) CompletedCount(day string) int {
	n := 0
	for _, h := range l.habits {
		if h.CompletedOn(day) {
			n++
		}
	}
	return n
}

// MaxStreak returns the highest streak in the ledger.
func (l *Ledger) MaxStreak() int {
	best := 0
	for _, h := range l.habits {
		best = max(best, h.Streak)
	}
	return best
}
