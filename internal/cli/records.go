package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cradlecore/pkg/domain"
)

const timestampLayout = "2006-01-02 15:04"

// parseTimestamp accepts a date or date-time string; empty means now.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: expected YYYY-MM-DD or YYYY-MM-DD HH:MM", s)
}

func parsePositiveFloat(flag, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected a number", flag, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", flag, s)
	}
	return v, nil
}

// NewRecordCommands creates the per-kind record command trees.
func NewRecordCommands(opts *RootOptions) []*cobra.Command {
	return []*cobra.Command{
		newFeedCommand(opts),
		newDiaperCommand(opts),
		newTempCommand(opts),
		newGrowthCommand(opts),
		newApptCommand(opts),
		newVaccineCommand(opts),
	}
}

func newFeedCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Track feedings for the active baby",
	}

	var volume, feedType, at, notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a feeding record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if volume == "" {
				return fmt.Errorf("--volume is required")
			}
			vol, err := parsePositiveFloat("--volume", volume)
			if err != nil {
				return err
			}
			ts, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, _, err := app.Service.AddFeeding(cmd.Context(), domain.FeedingRecord{
				Timestamp: ts,
				Volume:    vol,
				Type:      domain.FeedingType(feedType),
				Notes:     notes,
			})
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("added feeding %s (%.0f ml)", created.ID, created.Volume)
		},
	}
	add.Flags().StringVar(&volume, "volume", "", "volume in ml (required)")
	add.Flags().StringVar(&feedType, "type", "formula", "feeding type (breast|formula|solid)")
	add.Flags().StringVar(&at, "at", "", "time of feeding (default now)")
	add.Flags().StringVar(&notes, "notes", "", "notes")

	cmd.AddCommand(add)
	cmd.AddCommand(newRecordListCommand(opts, "feedings", func(b domain.Baby) []domain.Record {
		return b.Records(domain.KindFeeding)
	}))
	cmd.AddCommand(newRecordDeleteCommand(opts, domain.KindFeeding))
	return cmd
}

func newDiaperCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diaper",
		Short: "Track diaper changes for the active baby",
	}

	var color, at, notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a diaper record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(color) == "" {
				return fmt.Errorf("--color is required")
			}
			ts, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, _, err := app.Service.AddDiaper(cmd.Context(), domain.DiaperRecord{
				Timestamp: ts,
				Color:     color,
				Notes:     notes,
			})
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("added diaper record %s", created.ID)
		},
	}
	add.Flags().StringVar(&color, "color", "", "stool color (required)")
	add.Flags().StringVar(&at, "at", "", "time of change (default now)")
	add.Flags().StringVar(&notes, "notes", "", "notes")

	cmd.AddCommand(add)
	cmd.AddCommand(newRecordListCommand(opts, "diaper changes", func(b domain.Baby) []domain.Record {
		return b.Records(domain.KindDiaper)
	}))
	cmd.AddCommand(newRecordDeleteCommand(opts, domain.KindDiaper))
	return cmd
}

func newTempCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temp",
		Short: "Track temperature readings for the active baby",
	}

	var reading, at, notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a temperature reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reading == "" {
				return fmt.Errorf("--reading is required")
			}
			val, err := parsePositiveFloat("--reading", reading)
			if err != nil {
				return err
			}
			ts, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, res, err := app.Service.AddTemperature(cmd.Context(), domain.TemperatureRecord{
				Timestamp: ts,
				Reading:   val,
				Notes:     notes,
			})
			if err != nil {
				return err
			}
			for _, v := range res.Warnings() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", v.Message)
			}
			return formatter(opts, cmd).Successf("added temperature %s (%.1f)", created.ID, created.Reading)
		},
	}
	add.Flags().StringVar(&reading, "reading", "", "temperature reading (required)")
	add.Flags().StringVar(&at, "at", "", "time of reading (default now)")
	add.Flags().StringVar(&notes, "notes", "", "notes")

	cmd.AddCommand(add)
	cmd.AddCommand(newRecordListCommand(opts, "temperature readings", func(b domain.Baby) []domain.Record {
		return b.Records(domain.KindTemperature)
	}))
	cmd.AddCommand(newRecordDeleteCommand(opts, domain.KindTemperature))
	return cmd
}

func newGrowthCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Track growth measurements for the active baby",
	}

	var weight, height, at string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a growth measurement (updates current weight/height)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weight == "" && height == "" {
				return fmt.Errorf("at least one of --weight or --height is required")
			}
			var w, h float64
			var err error
			if weight != "" {
				if w, err = parsePositiveFloat("--weight", weight); err != nil {
					return err
				}
			}
			if height != "" {
				if h, err = parsePositiveFloat("--height", height); err != nil {
					return err
				}
			}
			ts, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, _, err := app.Service.AddGrowth(cmd.Context(), domain.GrowthMeasurement{
				Date:   ts,
				Weight: w,
				Height: h,
			})
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("added growth measurement %s", created.ID)
		},
	}
	add.Flags().StringVar(&weight, "weight", "", "weight in kg")
	add.Flags().StringVar(&height, "height", "", "height in cm")
	add.Flags().StringVar(&at, "at", "", "measurement date (default now)")

	cmd.AddCommand(add)
	cmd.AddCommand(newRecordListCommand(opts, "growth measurements", func(b domain.Baby) []domain.Record {
		return b.Records(domain.KindGrowth)
	}))
	cmd.AddCommand(newRecordDeleteCommand(opts, domain.KindGrowth))
	return cmd
}

func newApptCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appt",
		Short: "Track appointments for the active baby",
	}

	var title, at, notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			if at == "" {
				return fmt.Errorf("--at is required")
			}
			ts, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, _, err := app.Service.AddAppointment(cmd.Context(), domain.Appointment{
				Title: strings.TrimSpace(title),
				Date:  ts,
				Notes: notes,
			})
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("added appointment %s (%s)", created.ID, created.Title)
		},
	}
	add.Flags().StringVar(&title, "title", "", "appointment title (required)")
	add.Flags().StringVar(&at, "at", "", "appointment date/time (required)")
	add.Flags().StringVar(&notes, "notes", "", "notes")

	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "List appointments in the next 30 days",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			baby, ok := app.Store.ActiveBaby()
			if !ok {
				return fmt.Errorf("no active baby")
			}
			appts := baby.UpcomingAppointments(time.Now().UTC(), 30)
			if opts.Format == "json" {
				return formatter(opts, cmd).Success(appts)
			}
			if len(appts) == 0 {
				return formatter(opts, cmd).Success("no upcoming appointments")
			}
			for _, a := range appts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", a.ID, a.Date.Format(timestampLayout), a.Title)
			}
			return nil
		},
	}

	cmd.AddCommand(add)
	cmd.AddCommand(upcoming)
	cmd.AddCommand(newRecordListCommand(opts, "appointments", func(b domain.Baby) []domain.Record {
		return b.Records(domain.KindAppointment)
	}))
	cmd.AddCommand(newRecordDeleteCommand(opts, domain.KindAppointment))
	return cmd
}

func newVaccineCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaccine",
		Short: "Track vaccinations for the active baby",
	}

	var title, dose, at, notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a vaccine record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			ts, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			created, _, err := app.Service.AddVaccine(cmd.Context(), domain.VaccineRecord{
				Title:            strings.TrimSpace(title),
				Dose:             dose,
				DateAdministered: ts,
				Notes:            notes,
			})
			if err != nil {
				return err
			}
			return formatter(opts, cmd).Successf("added vaccine record %s (%s)", created.ID, created.Title)
		},
	}
	add.Flags().StringVar(&title, "title", "", "vaccine name (required)")
	add.Flags().StringVar(&dose, "dose", "", "dose label")
	add.Flags().StringVar(&at, "at", "", "administration date (default now)")
	add.Flags().StringVar(&notes, "notes", "", "notes")

	cmd.AddCommand(add)
	cmd.AddCommand(newRecordListCommand(opts, "vaccine records", func(b domain.Baby) []domain.Record {
		return b.Records(domain.KindVaccine)
	}))
	cmd.AddCommand(newRecordDeleteCommand(opts, domain.KindVaccine))
	return cmd
}

func newRecordListCommand(opts *RootOptions, what string, records func(domain.Baby) []domain.Record) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List " + what + " for the active baby",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			baby, ok := app.Store.ActiveBaby()
			if !ok {
				return fmt.Errorf("no active baby")
			}
			recs := records(baby)
			if opts.Format == "json" {
				return formatter(opts, cmd).Success(recs)
			}
			if len(recs) == 0 {
				return formatter(opts, cmd).Success("no " + what)
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", r.RecordID(), r.At().Format(timestampLayout))
			}
			return nil
		},
	}
}

func newRecordDeleteCommand(opts *RootOptions, kind domain.RecordKind) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record by id (absent ids are a no-op)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			deleted, _, err := app.Service.DeleteRecord(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return formatter(opts, cmd).Successf("no record with id %s", args[0])
			}
			return formatter(opts, cmd).Successf("deleted record %s", args[0])
		},
	}
}
