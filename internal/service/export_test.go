package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

func TestExportService_WriteCSV(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	filter := domain.AttendanceFilter{Date: &day, EmployeeName: "a"}

	repo := new(MockAttendanceRepository)
	repo.On("List", context.Background(), filter).Return([]domain.AttendanceRecord{
		{Name: "Bruno", Department: "IT", Timestamp: time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{Name: "Ana, Jr.", Department: "Finance", Timestamp: time.Date(2024, 3, 1, 8, 0, 5, 0, time.UTC)},
	}, nil)

	var buf bytes.Buffer
	err := NewExportService(repo).WriteCSV(context.Background(), &buf, filter)

	require.NoError(t, err)
	assert.Equal(t,
		"Name,Department,Date,Time\n"+
			"Bruno,IT,2024-03-01,10:15:30\n"+
			"\"Ana, Jr.\",Finance,2024-03-01,08:00:05\n",
		buf.String())
}

func TestExportService_WriteCSV_Empty(t *testing.T) {
	repo := new(MockAttendanceRepository)
	repo.On("List", context.Background(), domain.AttendanceFilter{}).Return([]domain.AttendanceRecord{}, nil)

	var buf bytes.Buffer
	require.NoError(t, NewExportService(repo).WriteCSV(context.Background(), &buf, domain.AttendanceFilter{}))

	assert.Equal(t, "Name,Department,Date,Time\n", buf.String())
}

func TestExportService_WriteCSV_RepositoryError(t *testing.T) {
	repo := new(MockAttendanceRepository)
	repo.On("List", context.Background(), domain.AttendanceFilter{}).Return(nil, errors.New("db down"))

	var buf bytes.Buffer
	err := NewExportService(repo).WriteCSV(context.Background(), &buf, domain.AttendanceFilter{})

	assert.EqualError(t, err, "db down")
	assert.Empty(t, buf.String())
}

func TestExportService_List(t *testing.T) {
	repo := new(MockAttendanceRepository)
	repo.On("List", context.Background(), domain.AttendanceFilter{EmployeeName: "ana"}).
		Return([]domain.AttendanceRecord{{Name: "Ana"}}, nil)

	got, err := NewExportService(repo).List(context.Background(), domain.AttendanceFilter{EmployeeName: "ana"})

	require.NoError(t, err)
	assert.Len(t, got, 1)
}
