package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/repository"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export attendance records as CSV",
		Long: `Write attendance records, newest first, as CSV with the columns
Name, Department, Date and Time (UTC).

Examples:
  # Everything to stdout
  attendctl export

  # One day for employees matching "ana" into a file
  attendctl export --date 2024-03-01 --employee ana -o attendance_records.csv`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	cmd.Flags().String("date", "", "UTC date to export (YYYY-MM-DD)")
	cmd.Flags().String("employee", "", "Case insensitive employee name substring")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	date, _ := cmd.Flags().GetString("date")
	name, _ := cmd.Flags().GetString("employee")
	output, _ := cmd.Flags().GetString("output")

	filter, err := exportFilter(date, name)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output) //nolint:gosec // operator supplied path
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	svc := service.NewExportService(repository.NewAttendanceRepository(e.pool))
	if err := svc.WriteCSV(ctx, w, filter); err != nil {
		return fmt.Errorf("export attendance: %w", err)
	}

	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
	}
	return nil
}

func exportFilter(date, name string) (domain.AttendanceFilter, error) {
	filter := domain.AttendanceFilter{EmployeeName: strings.TrimSpace(name)}
	if date = strings.TrimSpace(date); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return filter, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
		}
		filter.Date = &day
	}
	return filter, nil
}
