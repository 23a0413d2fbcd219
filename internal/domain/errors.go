package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same Code, so errors.Is works for
// copies produced by WithError and WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithMessage returns a copy carrying a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrUploadTooLarge = &AppError{
		Code:       "UPLOAD_TOO_LARGE",
		Message:    "Uploaded video exceeds the size limit",
		StatusCode: 413,
	}

	// Employee errors
	ErrEmployeeNotFound = &AppError{
		Code:       "EMPLOYEE_NOT_FOUND",
		Message:    "Employee not found",
		StatusCode: 404,
	}

	// Capture and recognition errors
	ErrNoVideoSupplied = &AppError{
		Code:       "NO_VIDEO",
		Message:    "No video",
		StatusCode: 400,
	}

	ErrNoFrameDecodable = &AppError{
		Code:       "NO_FRAME",
		Message:    "No frame could be decoded from the video",
		StatusCode: 400,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected",
		StatusCode: 400,
	}

	ErrNoBlinkDetected = &AppError{
		Code:       "NO_BLINK_DETECTED",
		Message:    "No blink detected - face data not captured",
		StatusCode: 400,
	}

	ErrFaceNotRecognized = &AppError{
		Code:       "FACE_NOT_RECOGNIZED",
		Message:    "Invalid Face - Attendance Not Marked",
		StatusCode: 400,
	}

	ErrAlreadyMarkedToday = &AppError{
		Code:       "ALREADY_MARKED",
		Message:    "Attendance already marked today",
		StatusCode: 409,
	}
)
