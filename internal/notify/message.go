package notify

import (
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// Message is the machine readable form of a recorded attendance, shared
// by the broker and websocket channels.
type Message struct {
	AttendanceID int64     `json:"attendance_id"`
	EmployeeID   int64     `json:"employee_id"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewMessage(employee domain.Employee, record domain.Attendance) Message {
	return Message{
		AttendanceID: record.ID,
		EmployeeID:   employee.ID,
		Name:         employee.Name,
		Department:   employee.Department,
		Timestamp:    record.Timestamp.UTC(),
	}
}
