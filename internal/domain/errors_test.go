package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrEmployeeNotFound,
			expected: "Employee not found",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	// Test with nil error
	appErrNoWrap := ErrEmployeeNotFound
	if got := appErrNoWrap.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("db connection failed")
	newErr := ErrInternal.WithError(underlying)

	if newErr.Code != ErrInternal.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrInternal.Code)
	}

	if newErr.StatusCode != ErrInternal.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrInternal.StatusCode)
	}

	if newErr.Err != underlying {
		t.Errorf("Err = %v, want %v", newErr.Err, underlying)
	}

	// Check errors.Is still works
	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("mark attendance: %w", ErrAlreadyMarkedToday.WithMessage("Attendance already marked today at 09:15"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("errors.As should match AppError")
	}
	if appErr.Code != "ALREADY_MARKED" {
		t.Errorf("Code = %v, want ALREADY_MARKED", appErr.Code)
	}
	if appErr.Message != "Attendance already marked today at 09:15" {
		t.Errorf("Message = %v", appErr.Message)
	}

	if !errors.Is(err, ErrAlreadyMarkedToday) {
		t.Errorf("errors.Is should match copies by code")
	}
	if errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("errors.Is should not match a different code")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrBadRequest, "BAD_REQUEST", 400},
		{ErrNotFound, "NOT_FOUND", 404},
		{ErrValidationFailed, "VALIDATION_FAILED", 422},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{ErrUploadTooLarge, "UPLOAD_TOO_LARGE", 413},
		{ErrEmployeeNotFound, "EMPLOYEE_NOT_FOUND", 404},
		{ErrNoVideoSupplied, "NO_VIDEO", 400},
		{ErrNoFrameDecodable, "NO_FRAME", 400},
		{ErrNoFaceDetected, "NO_FACE_DETECTED", 400},
		{ErrNoBlinkDetected, "NO_BLINK_DETECTED", 400},
		{ErrFaceNotRecognized, "FACE_NOT_RECOGNIZED", 400},
		{ErrAlreadyMarkedToday, "ALREADY_MARKED", 409},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.statusCode)
			}
		})
	}
}
