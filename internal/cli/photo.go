package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewPhotoCommand creates the profile photo command tree.
func NewPhotoCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage profile photos",
	}

	attach := &cobra.Command{
		Use:   "attach <baby-id> <image-file>",
		Short: "Attach a profile photo (images up to 2 MiB)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "open image", err)
			}
			defer func() { _ = f.Close() }()
			stat, err := f.Stat()
			if err != nil {
				return WrapExitError(ExitCommandError, "stat image", err)
			}
			contentType := mime.TypeByExtension(filepath.Ext(args[1]))
			if contentType == "" {
				return fmt.Errorf("cannot determine image type of %s", args[1])
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			info, err := app.Service.AttachPhoto(cmd.Context(), args[0], contentType, f, stat.Size())
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("attached photo %s (%d bytes)", info.Key, info.Size)
		},
	}

	url := &cobra.Command{
		Use:   "url <baby-id>",
		Short: "Print a URL for the baby's profile photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			u, err := app.Service.PhotoURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Success(u)
		},
	}

	cmd.AddCommand(attach, url)
	return cmd
}
