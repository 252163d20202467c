package clock

import "time"

// DayKeyLayout is the canonical YYYY-MM-DD day-key format.
const DayKeyLayout = "2006-01-02"

// Provider supplies the current day-key used for completion tracking.
type Provider interface {
	Now() time.Time
	Today() string
}

// System reads the wall clock in a fixed location. The zero value uses UTC.
type System struct {
	Location *time.Location
}

// NewSystem returns a provider for the named IANA zone; empty means UTC.
func NewSystem(zone string) (System, error) {
	if zone == "" || zone == "UTC" {
		return System{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return System{}, err
	}
	return System{Location: loc}, nil
}

func (s System) Now() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

func (s System) Today() string {
	return DayKey(s.Now())
}

// Fixed always reports the same instant. Used by tests and replays.
type Fixed struct {
	At time.Time
}

func (f *Fixed) Now() time.Time { return f.At }

func (f *Fixed) Today() string { return DayKey(f.At) }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.At = f.At.Add(d) }

// DayKey formats t as a day-key in t's own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey validates and parses a day-key.
func ParseDayKey(key string) (time.Time, error) {
	return time.Parse(DayKeyLayout, key)
}

// LastDays returns the n day-keys ending at (and including) the day of t,
// oldest first.
func LastDays(t time.Time, n int) []string {
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, DayKey(t.AddDate(0, 0, -i)))
	}
	return keys
}
