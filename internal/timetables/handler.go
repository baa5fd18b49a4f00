package timetables

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidya-portal/backend/internal/middleware"
	"github.com/vidya-portal/backend/pkg/response"
)

// PostRequest is the body for publishing a timetable slot.
type PostRequest struct {
	ClassLevel string          `json:"class" binding:"required"`
	Stream     string          `json:"stream"`
	Timetable  json.RawMessage `json:"timetable" binding:"required"`
	TeacherID  string          `json:"teacherId"`
}

// Handler serves timetable endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Post publishes or replaces the timetable for a (class, stream) slot.
func (h *Handler) Post(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "class and timetable are required")
		return
	}

	teacherID := c.GetString(middleware.ContextUserID)
	if teacherID == "" {
		teacherID = req.TeacherID
	}
	if teacherID == "" {
		response.BadRequest(c, "teacherId is required")
		return
	}

	entry, err := h.store.Upsert(req.ClassLevel, req.Stream, req.Timetable, teacherID)
	if err != nil {
		h.logger.Error("failed to post timetable", zap.Error(err))
		response.Internal(c, "failed to post timetable")
		return
	}
	response.CreatedMessage(c, "timetable posted successfully", entry)
}

// Get returns the timetable for a class, optionally narrowed by stream.
func (h *Handler) Get(c *gin.Context) {
	classLevel := c.Param("class")
	stream := c.Param("stream")

	entry, err := h.store.Get(classLevel, stream)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "timetable not found")
			return
		}
		h.logger.Error("failed to fetch timetable", zap.Error(err))
		response.Internal(c, "failed to fetch timetable")
		return
	}
	response.OK(c, entry)
}

// ListAll returns every published timetable slot.
func (h *Handler) ListAll(c *gin.Context) {
	entries, err := h.store.List()
	if err != nil {
		h.logger.Error("failed to list timetables", zap.Error(err))
		response.Internal(c, "failed to fetch timetables")
		return
	}
	response.OK(c, entries)
}
