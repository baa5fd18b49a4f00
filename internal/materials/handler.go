package materials

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidya-portal/backend/internal/middleware"
	"github.com/vidya-portal/backend/internal/models"
	"github.com/vidya-portal/backend/pkg/queue"
	"github.com/vidya-portal/backend/pkg/response"
	"github.com/vidya-portal/backend/pkg/storage"
)

// BlobStore stores uploaded material payloads. Implemented by storage.S3.
type BlobStore interface {
	UploadMaterial(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	MaterialsBucket() string
}

// CleanupQueue schedules blob deletion after a record is removed.
type CleanupQueue interface {
	EnqueueBlobDelete(ctx context.Context, payload queue.BlobDeletePayload) error
}

// UpdateRequest is the body for PUT /materials/:id.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
}

// Handler handles material HTTP endpoints.
type Handler struct {
	repo    *Repository
	blobs   BlobStore
	cleanup CleanupQueue
	logger  *zap.Logger
}

// NewHandler creates a material handler.
func NewHandler(repo *Repository, blobs BlobStore, cleanup CleanupQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, blobs: blobs, cleanup: cleanup, logger: logger}
}

// Upload handles POST /materials/upload (teacher only). Multipart form with
// a materialFile field; the file is optional (link-only materials are
// allowed), but metadata is not.
func (h *Handler) Upload(c *gin.Context) {
	title := c.PostForm("title")
	courseID := c.PostForm("courseId")
	classLevel := c.PostForm("class")
	subject := c.PostForm("subject")
	teacherID := c.GetString(middleware.ContextUserID)
	if teacherID == "" {
		teacherID = c.PostForm("teacherId")
	}
	if title == "" || courseID == "" || teacherID == "" || classLevel == "" || subject == "" {
		response.BadRequest(c, "title, courseId, teacherId, class, and subject are required")
		return
	}

	m := &models.Material{
		Title:       title,
		Description: c.PostForm("description"),
		CourseID:    courseID,
		TeacherID:   teacherID,
		ClassLevel:  classLevel,
		Subject:     subject,
	}

	if file, err := c.FormFile("materialFile"); err == nil {
		if file.Size > storage.MaxMaterialFileSize {
			response.BadRequest(c, "file size exceeds 50MB limit")
			return
		}
		contentType := file.Header.Get("Content-Type")
		if !storage.ValidateMaterialType(contentType) {
			response.BadRequest(c, "invalid file type: only documents (pdf, doc, ppt, txt) and images allowed")
			return
		}
		if h.blobs == nil {
			response.ServiceUnavailable(c, "material storage not configured")
			return
		}
		rc, err := file.Open()
		if err != nil {
			h.logger.Error("open uploaded file failed", zap.Error(err))
			response.Internal(c, "failed to read file")
			return
		}
		defer rc.Close()

		key := storage.MaterialKey(uuid.NewString(), file.Filename)
		fileURL, err := h.blobs.UploadMaterial(c.Request.Context(), key, contentType, rc, file.Size)
		if err != nil {
			h.logger.Error("material upload to storage failed", zap.Error(err), zap.String("key", key))
			response.Internal(c, "failed to upload file to storage")
			return
		}
		m.FileURL = fileURL
		m.FileSize = file.Size
		m.S3Key = key
	}

	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		h.logger.Error("create material failed", zap.Error(err))
		response.Internal(c, "failed to upload material")
		return
	}
	response.CreatedMessage(c, "material uploaded successfully", gin.H{"material": m})
}

// ListByCourse handles GET /materials/course/:courseId.
func (h *Handler) ListByCourse(c *gin.Context) {
	list, err := h.repo.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		h.logger.Error("list course materials failed", zap.Error(err))
		response.Internal(c, "failed to fetch materials")
		return
	}
	response.OK(c, gin.H{"materials": list})
}

// ListByTeacher handles GET /materials/teacher/:teacherId.
func (h *Handler) ListByTeacher(c *gin.Context) {
	list, err := h.repo.ListByTeacher(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.logger.Error("list teacher materials failed", zap.Error(err))
		response.Internal(c, "failed to fetch materials")
		return
	}
	response.OK(c, gin.H{"materials": list})
}

// ListForStudents handles GET /materials/student/:class(/:subject).
func (h *Handler) ListForStudents(c *gin.Context) {
	list, err := h.repo.ListForStudents(c.Request.Context(), c.Param("class"), c.Param("subject"))
	if err != nil {
		h.logger.Error("list student materials failed", zap.Error(err))
		response.Internal(c, "failed to fetch materials")
		return
	}
	response.OK(c, gin.H{"materials": list})
}

// ListAll handles GET /materials (admin only).
func (h *Handler) ListAll(c *gin.Context) {
	list, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list materials failed", zap.Error(err))
		response.Internal(c, "failed to fetch materials")
		return
	}
	response.OK(c, gin.H{"materials": list})
}

// Update handles PUT /materials/:id (teacher only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid material id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "material not found")
			return
		}
		h.logger.Error("update material failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to update material")
		return
	}
	response.OKMessage(c, "material updated successfully", gin.H{"material": m})
}

// Delete handles DELETE /materials/:id (teacher only). The blob is released
// via the cleanup queue after the record is removed; the two halves are not
// transactional and a failed enqueue is logged as an inconsistency.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid material id")
		return
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "material not found")
			return
		}
		h.logger.Error("get material failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to delete material")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete material failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to delete material")
		return
	}
	if m.S3Key != "" && h.cleanup != nil && h.blobs != nil {
		err := h.cleanup.EnqueueBlobDelete(c.Request.Context(), queue.BlobDeletePayload{
			Bucket:     h.blobs.MaterialsBucket(),
			Key:        m.S3Key,
			EntityType: "material",
			EntityID:   id,
		})
		if err != nil {
			h.logger.Error("blob cleanup enqueue failed; record and blob now inconsistent",
				zap.Error(err), zap.String("key", m.S3Key), zap.String("id", id.String()))
		}
	}
	response.OKMessage(c, "material deleted successfully", nil)
}
