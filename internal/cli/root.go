package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"titan/pkg/config"
)

var version = "dev"

type rootOptions struct {
	configDir string
	env       string
	verbose   bool
	quiet     bool
	json      bool
}

// NewRootCmd builds the titan command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "titan",
		Short: "TITAN - habit and focus tracker with XP progression",
		Long: `TITAN turns completed habits and focus sessions into XP, levels and ranks.

State is stored locally and mirrored to a remote store when signed in.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", config.GetEnv("TITAN_CONFIG_DIR", "config"), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", config.GetConfigEnv(), "Configuration environment")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON output")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newHabitCmd(opts),
		newFocusCmd(opts),
		newCoachCmd(opts),
		newReviewCmd(opts),
		newLoginCmd(opts),
		newSignupCmd(opts),
		newLogoutCmd(opts),
		newResetCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}

// withApp wires the application for one command, runs fn and always
// releases resources, draining pending remote writes first.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	// one-shot commands keep stderr quiet unless -v
	o := *opts
	o.quiet = cmd.Name() != "serve"

	a, err := newApp(ctx, &o)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}

// withTracker is withApp plus a loaded tracker.
func withTracker(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		if err := a.start(ctx); err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

// Execute runs the root command.
func Execute(v string) error {
	version = v
	rootCmd := NewRootCmd()
	rootCmd.Version = v
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
