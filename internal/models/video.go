package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordedVideo is an uploaded or linked lecture recording.
type RecordedVideo struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Subject         string        `json:"subject"`
	TeacherID       string        `json:"teacherId"`
	TeacherName     string        `json:"teacherName"`
	ClassLevel      string        `json:"class"`
	Stream          string        `json:"stream"`
	VideoURL        string        `json:"videoUrl"`
	ThumbnailURL    string        `json:"thumbnailUrl,omitempty"`
	DurationSeconds int           `json:"duration,omitempty"`
	FileSize        int64         `json:"fileSize,omitempty"`
	Views           int           `json:"views"`
	Tags            []string      `json:"tags,omitempty"`
	IsPublic        bool          `json:"isPublic"`
	S3Key           string        `json:"-"` // set only for blobs this service uploaded
	WatchedBy       []WatchRecord `json:"watchedBy,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// WatchRecord is the current watch state of one student for one video.
// At most one record per (video, student); progress is last-write-wins.
type WatchRecord struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	WatchedAt   time.Time `json:"watchedAt"`
	Progress    float64   `json:"progress"`
}
