package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

func TestAttendanceHandler_Mark(t *testing.T) {
	markedAt := time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)

	t.Run("marked", func(t *testing.T) {
		rec := new(MockRecognitionService)
		rec.On("MarkAttendance", mock.Anything).Return(&service.MarkResult{
			Employee:   domain.Employee{ID: 7, Name: "Ana"},
			Attendance: domain.Attendance{ID: 31, EmployeeID: 7, Timestamp: markedAt},
			Distance:   0.31,
		}, nil)

		app := newTestApp()
		app.Post("/v1/attendance/mark", NewAttendanceHandler(rec, nil, testLogger()).Mark)

		resp, err := app.Test(videoRequest("POST", "/v1/attendance/mark", "video", []byte("clip")))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body MarkResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Attendance marked successfully", body.Message)
		assert.Equal(t, "Ana", body.Employee.Name)
		assert.Equal(t, int64(31), body.AttendanceID)
		assert.True(t, markedAt.Equal(body.Timestamp))
		assert.Equal(t, []byte("clip"), rec.received)
	})

	tests := []struct {
		name       string
		field      string
		serviceErr error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "no video", field: "", wantStatus: 400, wantCode: "NO_VIDEO", wantMsg: "No video"},
		{
			name: "no face", field: "video", serviceErr: domain.ErrNoFaceDetected,
			wantStatus: 400, wantCode: "NO_FACE_DETECTED", wantMsg: "No face detected",
		},
		{
			name: "unknown face", field: "video", serviceErr: domain.ErrFaceNotRecognized,
			wantStatus: 400, wantCode: "FACE_NOT_RECOGNIZED", wantMsg: "Invalid Face - Attendance Not Marked",
		},
		{
			name: "already marked", field: "video",
			serviceErr: domain.ErrAlreadyMarkedToday.WithMessage("Attendance already marked today at 08:05"),
			wantStatus: 409, wantCode: "ALREADY_MARKED", wantMsg: "Attendance already marked today at 08:05",
		},
		{
			name: "too large", field: "video", serviceErr: domain.ErrUploadTooLarge,
			wantStatus: 413, wantCode: "UPLOAD_TOO_LARGE", wantMsg: "Uploaded video exceeds the size limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockRecognitionService)
			if tt.serviceErr != nil {
				rec.On("MarkAttendance", mock.Anything).Return(nil, tt.serviceErr)
			}

			app := newTestApp()
			app.Post("/v1/attendance/mark", NewAttendanceHandler(rec, nil, testLogger()).Mark)

			resp, err := app.Test(videoRequest("POST", "/v1/attendance/mark", tt.field, []byte("clip")))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body middleware.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestAttendanceHandler_List(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	records := new(MockAttendanceExporter)
	records.On("List", mock.Anything, domain.AttendanceFilter{Date: &day, EmployeeName: "ana"}).
		Return([]domain.AttendanceRecord{{AttendanceID: 1, Name: "Ana"}}, nil)
	records.On("List", mock.Anything, domain.AttendanceFilter{}).
		Return([]domain.AttendanceRecord{}, nil)

	app := newTestApp()
	app.Get("/v1/attendance", NewAttendanceHandler(nil, records, testLogger()).List)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/attendance?date=2024-03-01&employee=%20ana%20", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var got []domain.AttendanceRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].Name)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/attendance", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[]`, string(body))

	// malformed date falls back to the unfiltered listing
	resp, err = app.Test(httptest.NewRequest("GET", "/v1/attendance?date=01/03/2024", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `[]`, string(body))

	records.AssertExpectations(t)
}

func TestAttendanceHandler_Export(t *testing.T) {
	t.Run("csv attachment", func(t *testing.T) {
		records := new(MockAttendanceExporter)
		records.On("WriteCSV", mock.Anything, domain.AttendanceFilter{EmployeeName: "ana"}).
			Return(nil, "Name,Department,Date,Time\nAna,Finance,2024-03-01,08:05:00\n")

		app := newTestApp()
		app.Get("/v1/attendance/export.csv", NewAttendanceHandler(nil, records, testLogger()).Export)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/attendance/export.csv?employee=ana&date=yesterday", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="attendance_records.csv"`)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "Name,Department,Date,Time\nAna,Finance,2024-03-01,08:05:00\n", string(body))
	})

	t.Run("query failure is a json error", func(t *testing.T) {
		records := new(MockAttendanceExporter)
		records.On("WriteCSV", mock.Anything, domain.AttendanceFilter{}).
			Return(errors.New("db down"), "")

		app := newTestApp()
		app.Get("/v1/attendance/export.csv", NewAttendanceHandler(nil, records, testLogger()).Export)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/attendance/export.csv", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)

		var body middleware.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "INTERNAL_ERROR", body.Code)
	})
}
