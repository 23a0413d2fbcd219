package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

var csvHeader = []string{"Name", "Department", "Date", "Time"}

// ExportService lists attendance and renders it as CSV.
type ExportService struct {
	records AttendanceRepositoryInterface
}

func NewExportService(records AttendanceRepositoryInterface) *ExportService {
	return &ExportService{records: records}
}

// List returns matching attendance, newest first.
func (s *ExportService) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	return s.records.List(ctx, filter)
}

// WriteCSV writes the header and one row per record, newest first, with
// dates and times in UTC.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, filter domain.AttendanceFilter) error {
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		ts := r.Timestamp.UTC()
		if err := cw.Write([]string{
			r.Name,
			r.Department,
			ts.Format("2006-01-02"),
			ts.Format("15:04:05"),
		}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
