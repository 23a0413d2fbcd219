package domain

import "time"

// Attendance is one check-in. At most one exists per employee and UTC day.
type Attendance struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	Timestamp  time.Time `json:"timestamp"`
	Date       time.Time `json:"date"`
}

// AttendanceRecord is an attendance row joined with its employee.
type AttendanceRecord struct {
	AttendanceID int64     `json:"attendance_id"`
	EmployeeID   int64     `json:"employee_id"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	Timestamp    time.Time `json:"timestamp"`
}

// AttendanceFilter narrows listings. Zero values mean no filter.
type AttendanceFilter struct {
	Date         *time.Time
	EmployeeName string
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
