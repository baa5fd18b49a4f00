package liveclasses

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidya-portal/backend/internal/middleware"
	"github.com/vidya-portal/backend/internal/models"
	"github.com/vidya-portal/backend/pkg/response"
)

// CreateRequest is the body for POST /live-classes.
type CreateRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Subject       string `json:"subject" binding:"required"`
	ClassLevel    string `json:"class" binding:"required"`
	Stream        string `json:"stream"`
	ScheduledDate string `json:"scheduledDate" binding:"required"`
	Duration      int    `json:"duration" binding:"required,gt=0"`
	MeetingLink   string `json:"meetingLink"`
	TeacherID     string `json:"teacherId"`
	TeacherName   string `json:"teacherName"`
}

// UpdateStatusRequest is the body for PUT /live-classes/:id/status.
// Omitted optional fields leave the stored values unchanged.
type UpdateStatusRequest struct {
	Status       string  `json:"status" binding:"required"`
	RecordingURL *string `json:"recordingUrl"`
	Notes        *string `json:"notes"`
}

// AttendeeRequest is the body for the attendance endpoints.
type AttendeeRequest struct {
	StudentID   string `json:"studentId" binding:"required"`
	StudentName string `json:"studentName"`
}

// liveClassView is a live class plus its derived temporal state. The state
// is recomputed against the clock on every read, never persisted.
type liveClassView struct {
	models.LiveClass
	TemporalState TemporalState `json:"temporalState"`
	CanJoin       bool          `json:"canJoin"`
}

func newView(lc models.LiveClass, now time.Time) liveClassView {
	return liveClassView{
		LiveClass:     lc,
		TemporalState: Resolve(lc.ScheduledAt, lc.DurationMinutes, now),
		CanJoin:       CanJoin(&lc, now),
	}
}

func newViews(list []models.LiveClass, now time.Time) []liveClassView {
	views := make([]liveClassView, 0, len(list))
	for _, lc := range list {
		views = append(views, newView(lc, now))
	}
	return views
}

// Handler handles live class HTTP endpoints.
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

// NewHandler creates a live class handler.
func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /live-classes (teacher only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledDate)
	if err != nil {
		response.BadRequest(c, "invalid scheduledDate")
		return
	}

	teacherID := c.GetString(middleware.ContextUserID)
	teacherName := c.GetString(middleware.ContextUserName)
	if teacherID == "" {
		teacherID = req.TeacherID
		teacherName = req.TeacherName
	}
	if teacherID == "" {
		response.BadRequest(c, "teacher identity required")
		return
	}

	stream := req.Stream
	if stream == "" {
		stream = models.DefaultStream
	}
	lc := &models.LiveClass{
		Title:           req.Title,
		Description:     req.Description,
		Subject:         req.Subject,
		TeacherID:       teacherID,
		TeacherName:     teacherName,
		ClassLevel:      req.ClassLevel,
		Stream:          stream,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.Duration,
		MeetingLink:     req.MeetingLink,
		MeetingID:       uuid.NewString(),
		Status:          models.LiveClassScheduled,
	}
	if err := h.repo.Create(c.Request.Context(), lc); err != nil {
		h.logger.Error("create live class failed", zap.Error(err))
		response.Internal(c, "failed to schedule live class")
		return
	}
	response.CreatedMessage(c, "live class scheduled successfully", gin.H{"liveClass": newView(*lc, time.Now())})
}

// GetByID handles GET /live-classes/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	lc, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "live class not found")
			return
		}
		h.logger.Error("get live class failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to fetch live class")
		return
	}
	response.OK(c, gin.H{"liveClass": newView(*lc, time.Now())})
}

// ListByTeacher handles GET /live-classes/teacher/:teacherId (scheduled date desc).
func (h *Handler) ListByTeacher(c *gin.Context) {
	list, err := h.repo.ListByTeacher(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.logger.Error("list teacher live classes failed", zap.Error(err))
		response.Internal(c, "failed to fetch live classes")
		return
	}
	response.OK(c, gin.H{"liveClasses": newViews(list, time.Now())})
}

// ListForStudents handles GET /live-classes/student/:class and
// /live-classes/student/:class/:stream. Only scheduled/live classes are
// visible to students, soonest first.
func (h *Handler) ListForStudents(c *gin.Context) {
	stream := c.Param("stream")
	if stream == "" {
		stream = models.DefaultStream
	}
	list, err := h.repo.ListForStudents(c.Request.Context(), c.Param("class"), stream)
	if err != nil {
		h.logger.Error("list student live classes failed", zap.Error(err))
		response.Internal(c, "failed to fetch live classes")
		return
	}
	response.OK(c, gin.H{"liveClasses": newViews(list, time.Now())})
}

// UpdateStatus handles PUT /live-classes/:id/status (teacher only).
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidLiveClassStatus(req.Status) {
		response.BadRequest(c, "invalid status: must be one of scheduled, live, completed, cancelled")
		return
	}
	lc, err := h.repo.UpdateStatus(c.Request.Context(), id, req.Status, req.RecordingURL, req.Notes)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "live class not found")
			return
		}
		h.logger.Error("update live class failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to update live class")
		return
	}
	response.OKMessage(c, "live class updated successfully", gin.H{"liveClass": newView(*lc, time.Now())})
}

// AddAttendee handles POST /live-classes/:id/attendee. A rejoin updates the
// existing record in place; the ledger keeps one row per student.
func (h *Handler) AddAttendee(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	var req AttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "live class not found")
			return
		}
		h.logger.Error("get live class failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to add attendee")
		return
	}
	if err := h.repo.RecordAttendance(c.Request.Context(), id, req.StudentID, req.StudentName); err != nil {
		h.logger.Error("record attendance failed", zap.Error(err), zap.String("id", id.String()), zap.String("student_id", req.StudentID))
		response.Internal(c, "failed to add attendee")
		return
	}
	response.OKMessage(c, "attendee added successfully", nil)
}

// RemoveAttendee handles DELETE /live-classes/:id/attendee. Unknown students
// are a no-op; departure is only recorded for students who joined.
func (h *Handler) RemoveAttendee(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	var req AttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "live class not found")
			return
		}
		h.logger.Error("get live class failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to remove attendee")
		return
	}
	if err := h.repo.RecordDeparture(c.Request.Context(), id, req.StudentID); err != nil {
		h.logger.Error("record departure failed", zap.Error(err), zap.String("id", id.String()), zap.String("student_id", req.StudentID))
		response.Internal(c, "failed to remove attendee")
		return
	}
	response.OKMessage(c, "attendee removed successfully", nil)
}

// Delete handles DELETE /live-classes/:id (teacher only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "live class not found")
			return
		}
		h.logger.Error("delete live class failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to delete live class")
		return
	}
	response.OKMessage(c, "live class deleted successfully", nil)
}
