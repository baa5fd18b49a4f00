package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultStream is used when a class/stream grouping key omits the stream.
const DefaultStream = "general"

// LiveClassStatus values persisted on a live class. Set by teachers, never
// auto-transitioned; the read-time temporal state is a separate axis.
const (
	LiveClassScheduled = "scheduled"
	LiveClassLive      = "live"
	LiveClassCompleted = "completed"
	LiveClassCancelled = "cancelled"
)

// ValidLiveClassStatus reports whether s is a known persisted status.
func ValidLiveClassStatus(s string) bool {
	switch s {
	case LiveClassScheduled, LiveClassLive, LiveClassCompleted, LiveClassCancelled:
		return true
	}
	return false
}

// LiveClass is a scheduled live class session.
type LiveClass struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Subject         string             `json:"subject"`
	TeacherID       string             `json:"teacherId"`
	TeacherName     string             `json:"teacherName"`
	ClassLevel      string             `json:"class"`
	Stream          string             `json:"stream"`
	ScheduledAt     time.Time          `json:"scheduledDate"`
	DurationMinutes int                `json:"duration"`
	MeetingLink     string             `json:"meetingLink,omitempty"`
	MeetingID       string             `json:"meetingId"`
	Status          string             `json:"status"`
	RecordingURL    string             `json:"recordingUrl,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Attendees       []AttendanceRecord `json:"attendees,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AttendanceRecord is the current engagement state of one student in a live
// class. At most one record per (class, student); a rejoin overwrites it.
type AttendanceRecord struct {
	StudentID   string     `json:"studentId"`
	StudentName string     `json:"studentName"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt,omitempty"`
}
