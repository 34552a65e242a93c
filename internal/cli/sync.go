package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCommand signs in and reconciles local state with the remote collection.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sign in and sync with the remote collection (remote wins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			if app.Syncer == nil {
				return WrapExitError(ExitCommandError, "no remote configured (set remote.driver in config)", nil)
			}
			user, err := app.Identity.SignIn(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "sign in", err)
			}
			if err := app.Syncer.SignIn(cmd.Context(), user); err != nil {
				return err
			}
			app.Service.SetSession(user.ID, user.Email, app.Syncer)
			return formatter(opts, cmd).Successf("synced as %s (%d babies)", user.Email, len(app.Store.ListBabies()))
		},
	}
}

// NewShareCommand manages sharing grants on a baby.
func NewShareCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share a baby with another account",
	}

	grant := &cobra.Command{
		Use:   "grant <baby-id> <email>",
		Short: "Grant an account read access (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := signedInApp(opts, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			if _, _, err := app.Service.ShareBaby(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("shared baby %s with %s", args[0], args[1])
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <baby-id> <email>",
		Short: "Revoke an account's access (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := signedInApp(opts, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			if _, _, err := app.Service.UnshareBaby(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("revoked %s's access to baby %s", args[1], args[0])
		},
	}

	list := &cobra.Command{
		Use:   "list <baby-id>",
		Short: "List accounts a baby is shared with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			baby, ok := app.Store.GetBaby(args[0])
			if !ok {
				return fmt.Errorf("baby %s not found", args[0])
			}
			if opts.Format == "json" {
				return formatter(opts, cmd).Success(baby.SharedWith)
			}
			if len(baby.SharedWith) == 0 {
				return formatter(opts, cmd).Success("not shared")
			}
			for _, email := range baby.SharedWith {
				fmt.Fprintln(cmd.OutOrStdout(), email)
			}
			return nil
		},
	}

	cmd.AddCommand(grant, revoke, list)
	return cmd
}

// signedInApp loads the app and establishes the session so share mutations
// carry the actor and reach the remote when one is configured.
func signedInApp(opts *RootOptions, cmd *cobra.Command) (*App, error) {
	app, err := loadApp(opts)
	if err != nil {
		return nil, err
	}
	user, err := app.Identity.SignIn(cmd.Context())
	if err != nil {
		_ = app.Close()
		return nil, WrapExitError(ExitCommandError, "sign in", err)
	}
	app.Service.SetSession(user.ID, user.Email, app.Syncer)
	return app, nil
}

// NewStatusCommand summarizes the tracked state and configuration.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			babies := app.Store.ListBabies()
			active, hasActive := app.Store.ActiveBaby()
			if opts.Format == "json" {
				status := map[string]any{
					"babies":         len(babies),
					"remote_enabled": app.Syncer != nil,
				}
				if hasActive {
					status["active_baby"] = active.ID
				}
				return formatter(opts, cmd).Success(status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "babies tracked: %d\n", len(babies))
			if hasActive {
				fmt.Fprintf(out, "active baby: %s (%s)\n", active.Name, active.ID)
			} else {
				fmt.Fprintln(out, "active baby: none")
			}
			if app.Syncer != nil {
				fmt.Fprintln(out, "remote sync: configured")
			} else {
				fmt.Fprintln(out, "remote sync: local-only")
			}
			return nil
		},
	}
}
