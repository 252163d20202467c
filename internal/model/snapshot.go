package model

// Snapshot is the unit loaded and saved per identity.
type Snapshot struct {
	Habits []Habit   `json:"habits"`
	Stats  UserStats `json:"stats"`
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{Habits: CloneHabits(s.Habits), Stats: s.Stats}
}
