package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"titan/internal/model"
	"titan/internal/service/auth"
)

type credentials struct {
	email    string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "Account email")
	cmd.Flags().StringVar(&c.password, "password", "", "Account password (or TITAN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
}

func (c *credentials) resolve() error {
	if c.password == "" {
		c.password = os.Getenv("TITAN_PASSWORD")
	}
	if c.password == "" {
		return fmt.Errorf("%w: password is required", model.ErrValidation)
	}
	return nil
}

type authFunc func(ctx context.Context, email, password string) (*model.User, error)

// runAuth signs in through fn and then loads the account's remote state.
func runAuth(cmd *cobra.Command, opts *rootOptions, creds *credentials, pick func(*auth.Service) authFunc, verb string) error {
	if err := creds.resolve(); err != nil {
		return err
	}
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		if a.auth == nil {
			return a.remoteUnavailable()
		}
		u, err := pick(a.auth)(ctx, creds.email, creds.password)
		if err != nil {
			return err
		}
		if err := a.start(ctx); err != nil {
			return err
		}
		if opts.json {
			return printJSON(cmd.OutOrStdout(), map[string]any{"userId": u.ID, "email": u.Email, "stats": a.tracker.Stats()})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", verb, u.Email)
		renderStats(cmd.OutOrStdout(), a.tracker.Stats())
		return nil
	})
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and sync progress with the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runAuth(cmd, opts, creds, func(s *auth.Service) authFunc { return s.SignIn }, "Signed in")
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return fmt.Errorf("login failed: %w", err)
			}
			return err
		},
	}
	creds.bind(cmd)
	return cmd
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and start syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, opts, creds, func(s *auth.Service) authFunc { return s.SignUp }, "Signed up")
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session; local progress is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.gate.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}
