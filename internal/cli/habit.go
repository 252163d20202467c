package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"titan/internal/model"
	"titan/internal/service/stats"
	"titan/internal/service/tracker"
)

func newHabitCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Manage daily habits",
	}
	cmd.AddCommand(
		newHabitAddCmd(opts),
		newHabitListCmd(opts),
		newHabitToggleCmd(opts),
		newHabitRemoveCmd(opts),
	)
	return cmd
}

func newHabitAddCmd(opts *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a daily habit",
		Long:  "Add a daily habit. Categories: fitness, mindset, work, discipline.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := model.ParseCategory(category)
			if err != nil {
				return err
			}
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				h, err := a.tracker.AddHabit(ctx, strings.Join(args, " "), c)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), h)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) [%s]\n", h.Name, h.Category, shortID(h.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(model.CategoryDiscipline), "Habit category")
	return cmd
}

func newHabitListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List habits and today's completion",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				habits := a.tracker.Habits()
				if opts.json {
					return printJSON(cmd.OutOrStdout(), habits)
				}
				renderHabits(cmd.OutOrStdout(), habits, a.clock.Today())
				return nil
			})
		},
	}
}

func newHabitToggleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle HABIT",
		Short: "Mark or unmark a habit done today",
		Long:  "Mark or unmark a habit done today. HABIT is a list number, an id or an id prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveHabit(a.tracker.Habits(), args[0])
				if err != nil {
					return err
				}
				res, err := a.tracker.ToggleHabit(ctx, id)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), res)
				}
				printToggle(cmd, res)
				return nil
			})
		},
	}
}

func printToggle(cmd *cobra.Command, res tracker.ToggleResult) {
	w := cmd.OutOrStdout()
	if res.Completed {
		fmt.Fprintf(w, "✔ %s done for %s (+%d XP, streak %d)\n", res.Habit.Name, res.Day, stats.HabitCompletionXP, res.Habit.Streak)
	} else {
		fmt.Fprintf(w, "✘ %s unmarked for %s\n", res.Habit.Name, res.Day)
	}
	renderStats(w, res.Stats)
}

func newHabitRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove HABIT",
		Aliases: []string{"rm"},
		Short:   "Delete a habit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveHabit(a.tracker.Habits(), args[0])
				if err != nil {
					return err
				}
				if err := a.tracker.RemoveHabit(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", shortID(id))
				return nil
			})
		},
	}
}

// resolveHabit accepts a 1-based list number, a full id or a unique id prefix.
func resolveHabit(habits []model.Habit, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(habits) {
		return habits[n-1].ID, nil
	}

	var match string
	for _, h := range habits {
		if h.ID == ref {
			return h.ID, nil
		}
		if strings.HasPrefix(h.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("%w: habit reference %q is ambiguous", model.ErrValidation, ref)
			}
			match = h.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("habit %s: %w", ref, model.ErrNotFound)
	}
	return match, nil
}
