package ws

import "time"

type EventType string

const (
	EventAttendanceMarked EventType = "attendance.marked"
)

type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
