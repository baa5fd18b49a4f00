package models

import (
	"time"

	"github.com/google/uuid"
)

// Material is an uploaded study material (notes, worksheets, slides).
type Material struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CourseID    string    `json:"courseId"`
	TeacherID   string    `json:"teacherId"`
	ClassLevel  string    `json:"class"`
	Subject     string    `json:"subject"`
	FileURL     string    `json:"fileUrl,omitempty"`
	FileSize    int64     `json:"fileSize,omitempty"`
	S3Key       string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
