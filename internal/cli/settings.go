package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cradlecore/pkg/domain"
)

// NewSettingsCommand creates the settings command tree.
func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			s := app.Store.Settings()
			if opts.Format == "json" {
				return formatter(opts, cmd).Success(s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dark mode: %v\nmetric units: %v\n", s.DarkMode, s.MetricUnits)
			return nil
		},
	}

	cmd.AddCommand(show)
	cmd.AddCommand(newToggleCommand(opts, "darkmode", "Toggle dark mode", func(s *domain.Settings) {
		s.DarkMode = !s.DarkMode
	}))
	cmd.AddCommand(newToggleCommand(opts, "units", "Toggle metric vs imperial units", func(s *domain.Settings) {
		s.MetricUnits = !s.MetricUnits
	}))
	return cmd
}

func newToggleCommand(opts *RootOptions, use, short string, toggle func(*domain.Settings)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			updated, _, err := app.Service.UpdateSettings(cmd.Context(), toggle)
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Success(updated)
		},
	}
}
