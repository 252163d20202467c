package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"titan/internal/model"
	"titan/internal/service/tracker"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderStats(w io.Writer, s model.UserStats) {
	fmt.Fprintf(w, "Level %d  %s  %d XP\n", s.Level, s.Rank, s.XP)
	fmt.Fprintf(w, "Focus: %d pomodoros, %d minutes\n", s.TotalPomodoros, s.TotalFocusMinutes)
}

func renderHabits(w io.Writer, habits []model.Habit, today string) {
	if len(habits) == 0 {
		fmt.Fprintln(w, "No habits. Add one with: titan habit add NAME -c CATEGORY")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tDONE\tNAME\tCATEGORY\tSTREAK")
	for i, h := range habits {
		done := " "
		if h.CompletedOn(today) {
			done = "x"
		}
		fmt.Fprintf(tw, "%d\t%s\t[%s]\t%s\t%s\t%d\n", i+1, shortID(h.ID), done, h.Name, h.Category, h.Streak)
	}
	tw.Flush()
}

func renderDashboard(w io.Writer, d tracker.Dashboard) {
	renderStats(w, d.Stats)
	bar := strings.Repeat("#", d.Progress/5) + strings.Repeat(".", 20-d.Progress/5)
	fmt.Fprintf(w, "Level progress [%s] %d%%\n", bar, d.Progress)
	if d.NextRank != "" {
		fmt.Fprintf(w, "Next rank: %s in %d XP\n", d.NextRank, d.XPToNextRank)
	}
	fmt.Fprintf(w, "\nToday %s: %d/%d habits\n", d.Today, d.CompletedToday, d.TotalHabits)
	renderHabits(w, d.Habits, d.Today)

	fmt.Fprintln(w, "\nLast 7 days:")
	for _, day := range d.Week {
		fmt.Fprintf(w, "  %s %s %s\n", day.Weekday, day.Day, strings.Repeat("■", day.Count))
	}

	fmt.Fprintln(w, "\nAchievements:")
	for _, a := range d.Achievements {
		mark := " "
		if a.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s - %s\n", mark, a.Title, a.Description)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
