package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"titan/internal/clock"
	"titan/internal/coach"
	"titan/internal/model"
	"titan/internal/repository"
)

const defaultFocusMinutes = 25

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show level, rank, today's habits and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				dash := a.tracker.Dashboard()
				if opts.json {
					return printJSON(cmd.OutOrStdout(), dash)
				}
				renderDashboard(cmd.OutOrStdout(), dash)
				fmt.Fprintf(cmd.OutOrStdout(), "\nStore: %s\n", a.local.Path())
				fmt.Fprintf(cmd.OutOrStdout(), "Sync: %s\n", a.syncStatus())
				return nil
			})
		},
	}
}

func newFocusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "focus [MINUTES]",
		Short: "Record a completed focus session",
		Long:  "Record a completed focus session. Each minute is worth 2 XP. MINUTES defaults to 25.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes := defaultFocusMinutes
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("%w: minutes must be a number", model.ErrValidation)
				}
				minutes = n
			}
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				s, err := a.tracker.CompleteFocusSession(ctx, minutes)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), s)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Focus session complete: %d minutes\n", minutes)
				renderStats(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
}

func newCoachCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "coach",
		Short: "Get a short insight from the AI coach",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.tracker.Snapshot()
				insight := a.advisor.Insight(ctx, a.tracker.UserID(), snap.Stats, snap.Habits)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), map[string]string{"insight": insight})
				}
				fmt.Fprintln(cmd.OutOrStdout(), insight)
				return nil
			})
		},
	}
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Get a weekly review of the last 7 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				history := coach.History(a.tracker.Habits(), clock.LastDays(a.clock.Now(), 7))
				review := a.advisor.WeeklyReview(ctx, history)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), map[string]any{"history": history, "review": review})
				}
				fmt.Fprintln(cmd.OutOrStdout(), review)
				return nil
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear local progress and restore the default habits",
		Long:  "Clear local progress and restore the default habits. The session and remote data are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("%w: reset discards local progress, pass --yes to confirm", model.ErrValidation)
			}
			return withTracker(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.tracker.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Local progress cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

var (
	errNoRemote          = errors.New("remote sync is not configured")
	errRemoteUnreachable = errors.New("remote store is unreachable")
)

// remoteUnavailable explains why no remote backend was wired.
func (a *app) remoteUnavailable() error {
	if a.gate.Configured() {
		return errRemoteUnreachable
	}
	return errNoRemote
}

func (a *app) syncStatus() string {
	switch {
	case !a.gate.Configured():
		return "local only"
	case a.tracker.UserID() != "":
		return "signed in as " + a.tracker.UserID()
	case a.pool == nil:
		return "remote unreachable"
	default:
		return "signed out"
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the remote tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if a.pool == nil {
					return a.remoteUnavailable()
				}
				if err := repository.EnsureSchema(ctx, a.pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Remote schema is up to date")
				return nil
			})
		},
	}
}
