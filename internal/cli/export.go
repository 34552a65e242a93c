package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewExportCommand writes the full state as a JSON archive.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all data as a JSON archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return WrapExitError(ExitCommandError, "create export file", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := app.Service.Export(w); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write archive to file instead of stdout")
	return cmd
}

// NewImportCommand merges a JSON archive into local state.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive.json>",
		Short: "Import a JSON archive, merging babies by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "open archive", err)
			}
			defer func() { _ = f.Close() }()
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			if _, err := app.Service.Import(cmd.Context(), f); err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("imported %s (%d babies now tracked)", args[0], len(app.Store.ListBabies()))
		},
	}
}
