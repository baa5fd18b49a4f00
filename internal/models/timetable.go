package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Timetable is one posted weekly schedule, keyed by (class, stream).
// Exactly one slot exists per key; a new post replaces the payload in place.
type Timetable struct {
	ID         uuid.UUID       `json:"id"`
	ClassLevel string          `json:"class"`
	Stream     string          `json:"stream"`
	Timetable  json.RawMessage `json:"timetable"`
	TeacherID  string          `json:"teacherId"`
	PostedAt   time.Time       `json:"postedAt"`
}
