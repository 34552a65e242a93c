package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cradlecore/pkg/domain"
)

const dateLayout = "2006-01-02"

// NewBabyCommand creates the baby management command tree.
func NewBabyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baby",
		Short: "Manage babies",
	}
	cmd.AddCommand(newBabyAddCommand(opts))
	cmd.AddCommand(newBabyListCommand(opts))
	cmd.AddCommand(newBabyUseCommand(opts))
	cmd.AddCommand(newBabyShowCommand(opts))
	cmd.AddCommand(newBabyEditCommand(opts))
	cmd.AddCommand(newBabyDeleteCommand(opts))
	return cmd
}

func newBabyAddCommand(opts *RootOptions) *cobra.Command {
	var name, dob, gender string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a baby (the first baby becomes active)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			baby := domain.Baby{Name: strings.TrimSpace(name), Gender: domain.Gender(gender)}
			if dob != "" {
				t, err := time.Parse(dateLayout, dob)
				if err != nil {
					return fmt.Errorf("invalid --dob %q: expected YYYY-MM-DD", dob)
				}
				baby.DateOfBirth = t
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, _, err := app.Service.CreateBaby(cmd.Context(), baby)
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("added baby %s (%s)", created.Name, created.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "baby name (required)")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&gender, "gender", "", "gender")
	return cmd
}

func newBabyListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List babies",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			babies := app.Store.ListBabies()
			active := app.Store.ActiveBabyID()
			if opts.Format == "json" {
				return formatter(opts, cmd).Success(babies)
			}
			if len(babies) == 0 {
				return formatter(opts, cmd).Success("no babies yet")
			}
			out := cmd.OutOrStdout()
			for _, b := range babies {
				marker := " "
				if b.ID == active {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s  %s  born %s\n", marker, b.ID, b.Name, b.DateOfBirth.Format(dateLayout))
			}
			return nil
		},
	}
}

func newBabyUseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "use <baby-id>",
		Short: "Select the active baby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			if _, err := app.Service.SetActiveBaby(cmd.Context(), args[0]); err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("active baby set to %s", args[0])
		},
	}
}

func newBabyShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [baby-id]",
		Short: "Show a baby (defaults to the active baby)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			var (
				baby domain.Baby
				ok   bool
			)
			if len(args) == 1 {
				baby, ok = app.Store.GetBaby(args[0])
			} else {
				baby, ok = app.Store.ActiveBaby()
			}
			if !ok {
				return fmt.Errorf("baby not found")
			}
			if opts.Format == "json" {
				return formatter(opts, cmd).Success(baby)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", baby.ID, baby.Name)
			fmt.Fprintf(out, "  born: %s  gender: %s\n", baby.DateOfBirth.Format(dateLayout), baby.Gender)
			fmt.Fprintf(out, "  weight: %.2f kg  height: %.1f cm\n", baby.CurrentWeight, baby.CurrentHeight)
			fmt.Fprintf(out, "  records: %d feedings, %d diapers, %d temperatures, %d growth, %d appointments, %d vaccines\n",
				len(baby.FeedingRecords), len(baby.DiaperRecords), len(baby.TemperatureRecords),
				len(baby.GrowthMeasurements), len(baby.Appointments), len(baby.VaccineRecords))
			if len(baby.SharedWith) > 0 {
				fmt.Fprintf(out, "  shared with: %s\n", strings.Join(baby.SharedWith, ", "))
			}
			return nil
		},
	}
}

func newBabyEditCommand(opts *RootOptions) *cobra.Command {
	var name, dob, gender string
	cmd := &cobra.Command{
		Use:   "edit <baby-id>",
		Short: "Edit a baby's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var birth time.Time
			if dob != "" {
				t, err := time.Parse(dateLayout, dob)
				if err != nil {
					return fmt.Errorf("invalid --dob %q: expected YYYY-MM-DD", dob)
				}
				birth = t
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			updated, found, _, err := app.Service.UpdateBabyProfile(cmd.Context(), args[0], func(b *domain.Baby) error {
				if strings.TrimSpace(name) != "" {
					b.Name = strings.TrimSpace(name)
				}
				if !birth.IsZero() {
					b.DateOfBirth = birth
				}
				if gender != "" {
					b.Gender = domain.Gender(gender)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("baby %s not found", args[0])
			}
			return formatter(opts, cmd).Successf("updated baby %s", updated.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&dob, "dob", "", "new date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&gender, "gender", "", "new gender")
	return cmd
}

func newBabyDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <baby-id>",
		Short: "Delete a baby and all of its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			deleted, _, err := app.Service.DeleteBaby(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return formatter(opts, cmd).Successf("no baby with id %s", args[0])
			}
			return formatter(opts, cmd).Successf("deleted baby %s", args[0])
		},
	}
}
