package videos

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidya-portal/backend/internal/middleware"
	"github.com/vidya-portal/backend/internal/models"
	"github.com/vidya-portal/backend/pkg/queue"
	"github.com/vidya-portal/backend/pkg/response"
	"github.com/vidya-portal/backend/pkg/storage"
)

// BlobStore stores uploaded video payloads and returns retrievable URLs.
// Implemented by storage.S3.
type BlobStore interface {
	UploadVideo(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	VideosBucket() string
}

// CleanupQueue schedules blob deletion after a record is removed.
// Implemented by queue.Queue.
type CleanupQueue interface {
	EnqueueBlobDelete(ctx context.Context, payload queue.BlobDeletePayload) error
}

// UploadRequest is the JSON body for POST /recorded-videos/upload when the
// video is hosted elsewhere (no file upload).
type UploadRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	Subject      string   `json:"subject" binding:"required"`
	ClassLevel   string   `json:"class" binding:"required"`
	Stream       string   `json:"stream"`
	VideoURL     string   `json:"videoUrl" binding:"required"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Duration     int      `json:"duration"`
	Tags         []string `json:"tags"`
	IsPublic     bool     `json:"isPublic"`
	TeacherID    string   `json:"teacherId"`
	TeacherName  string   `json:"teacherName"`
}

// UpdateRequest is the body for PUT /recorded-videos/:id.
type UpdateRequest struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Subject      *string   `json:"subject"`
	ClassLevel   *string   `json:"class"`
	Stream       *string   `json:"stream"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	Duration     *int      `json:"duration"`
	Tags         *[]string `json:"tags"`
	IsPublic     *bool     `json:"isPublic"`
}

// WatchRequest is the body for POST /recorded-videos/:id/watch.
type WatchRequest struct {
	StudentID   string  `json:"studentId" binding:"required"`
	StudentName string  `json:"studentName"`
	Progress    float64 `json:"progress" binding:"gte=0,lte=100"`
}

// Handler handles recorded video HTTP endpoints.
type Handler struct {
	repo    Repository
	blobs   BlobStore
	cleanup CleanupQueue
	logger  *zap.Logger
}

// NewHandler creates a recorded video handler. blobs and cleanup may be nil
// when S3/Redis are not configured; file uploads and blob cleanup are then
// disabled.
func NewHandler(repo Repository, blobs BlobStore, cleanup CleanupQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, blobs: blobs, cleanup: cleanup, logger: logger}
}

// Upload handles POST /recorded-videos/upload (teacher only). Accepts either
// multipart form data with a videoFile field, or JSON with an external
// videoUrl.
func (h *Handler) Upload(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		h.uploadMultipart(c)
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	teacherID, teacherName := callerIdentity(c, req.TeacherID, req.TeacherName)
	if teacherID == "" {
		response.BadRequest(c, "teacher identity required")
		return
	}
	v := &models.RecordedVideo{
		Title:           req.Title,
		Description:     req.Description,
		Subject:         req.Subject,
		TeacherID:       teacherID,
		TeacherName:     teacherName,
		ClassLevel:      req.ClassLevel,
		Stream:          streamOrDefault(req.Stream),
		VideoURL:        req.VideoURL,
		ThumbnailURL:    req.ThumbnailURL,
		DurationSeconds: req.Duration,
		Tags:            req.Tags,
		IsPublic:        req.IsPublic,
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		h.logger.Error("create video failed", zap.Error(err))
		response.Internal(c, "failed to upload video")
		return
	}
	response.CreatedMessage(c, "recorded video uploaded successfully", gin.H{"video": v})
}

func (h *Handler) uploadMultipart(c *gin.Context) {
	title := c.PostForm("title")
	subject := c.PostForm("subject")
	classLevel := c.PostForm("class")
	if title == "" || subject == "" || classLevel == "" {
		response.BadRequest(c, "title, subject and class are required")
		return
	}
	teacherID, teacherName := callerIdentity(c, c.PostForm("teacherId"), c.PostForm("teacherName"))
	if teacherID == "" {
		response.BadRequest(c, "teacher identity required")
		return
	}

	file, err := c.FormFile("videoFile")
	if err != nil {
		response.BadRequest(c, "missing file (form field: videoFile)")
		return
	}
	if file.Size > storage.MaxVideoFileSize {
		response.BadRequest(c, "file size exceeds 500MB limit")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateVideoType(contentType) {
		response.BadRequest(c, "only video files are allowed")
		return
	}
	if h.blobs == nil {
		response.ServiceUnavailable(c, "video storage not configured")
		return
	}

	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	key := storage.VideoKey(uuid.NewString(), file.Filename)
	videoURL, err := h.blobs.UploadVideo(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("video upload to storage failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload video to storage")
		return
	}

	duration, _ := strconv.Atoi(c.PostForm("duration"))
	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	isPublic, _ := strconv.ParseBool(c.PostForm("isPublic"))

	v := &models.RecordedVideo{
		Title:           title,
		Description:     c.PostForm("description"),
		Subject:         subject,
		TeacherID:       teacherID,
		TeacherName:     teacherName,
		ClassLevel:      classLevel,
		Stream:          streamOrDefault(c.PostForm("stream")),
		VideoURL:        videoURL,
		DurationSeconds: duration,
		FileSize:        file.Size,
		Tags:            tags,
		IsPublic:        isPublic,
		S3Key:           key,
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		h.logger.Error("create video failed after upload", zap.Error(err), zap.String("key", key))
		// The blob is already stored; leave it for the cleanup worker.
		h.enqueueBlobDelete(c.Request.Context(), key, uuid.Nil)
		response.Internal(c, "failed to upload video")
		return
	}
	response.CreatedMessage(c, "recorded video uploaded successfully", gin.H{"video": v})
}

// ListByTeacher handles GET /recorded-videos/teacher/:teacherId.
func (h *Handler) ListByTeacher(c *gin.Context) {
	list, err := h.repo.ListByTeacher(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.logger.Error("list teacher videos failed", zap.Error(err))
		response.Internal(c, "failed to fetch videos")
		return
	}
	response.OK(c, gin.H{"videos": list})
}

// ListForStudents handles GET /recorded-videos/student/:class(/:stream(/:subject)).
// Only public videos are visible.
func (h *Handler) ListForStudents(c *gin.Context) {
	list, err := h.repo.ListForStudents(c.Request.Context(),
		c.Param("class"), streamOrDefault(c.Param("stream")), c.Param("subject"))
	if err != nil {
		h.logger.Error("list student videos failed", zap.Error(err))
		response.Internal(c, "failed to fetch videos")
		return
	}
	response.OK(c, gin.H{"videos": list})
}

// Update handles PUT /recorded-videos/:id (teacher only). Merge-patch:
// omitted fields keep their stored values.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.repo.Update(c.Request.Context(), id, UpdatePatch{
		Title:           req.Title,
		Description:     req.Description,
		Subject:         req.Subject,
		ClassLevel:      req.ClassLevel,
		Stream:          req.Stream,
		ThumbnailURL:    req.ThumbnailURL,
		DurationSeconds: req.Duration,
		Tags:            req.Tags,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "video not found")
			return
		}
		h.logger.Error("update video failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to update video")
		return
	}
	response.OKMessage(c, "video updated successfully", gin.H{"video": v})
}

// Watch handles POST /recorded-videos/:id/watch. One watch record per
// student; progress is last-write-wins (a rewind may lower it), and the view
// counter moves only on a student's first report.
func (h *Handler) Watch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "video not found")
			return
		}
		h.logger.Error("get video failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to update watch status")
		return
	}
	if _, err := h.repo.RecordWatch(c.Request.Context(), id, req.StudentID, req.StudentName, req.Progress); err != nil {
		h.logger.Error("record watch failed", zap.Error(err), zap.String("id", id.String()), zap.String("student_id", req.StudentID))
		response.Internal(c, "failed to update watch status")
		return
	}
	response.OKMessage(c, "video watch status updated", nil)
}

// Stats handles GET /recorded-videos/:id/stats (teacher only).
func (h *Handler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "video not found")
			return
		}
		h.logger.Error("get video failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to fetch stats")
		return
	}
	watches, err := h.repo.ListWatches(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list watches failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to fetch stats")
		return
	}
	response.OK(c, gin.H{"stats": ComputeStats(v.Views, watches)})
}

// Delete handles DELETE /recorded-videos/:id (teacher only). Removes the
// record, then releases the stored blob via the cleanup queue. The two
// halves are not transactional; a failure in the second is logged as an
// inconsistency, never rolled back.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "video not found")
			return
		}
		h.logger.Error("get video failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to delete video")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete video failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to delete video")
		return
	}
	if v.S3Key != "" {
		h.enqueueBlobDelete(c.Request.Context(), v.S3Key, id)
	}
	response.OKMessage(c, "video deleted successfully", nil)
}

func (h *Handler) enqueueBlobDelete(ctx context.Context, key string, entityID uuid.UUID) {
	if h.cleanup == nil || h.blobs == nil {
		h.logger.Warn("blob cleanup unavailable; blob orphaned", zap.String("key", key))
		return
	}
	err := h.cleanup.EnqueueBlobDelete(ctx, queue.BlobDeletePayload{
		Bucket:     h.blobs.VideosBucket(),
		Key:        key,
		EntityType: "recorded_video",
		EntityID:   entityID,
	})
	if err != nil {
		h.logger.Error("blob cleanup enqueue failed; record and blob now inconsistent",
			zap.Error(err), zap.String("key", key), zap.String("entity_id", entityID.String()))
	}
}

func streamOrDefault(stream string) string {
	if stream == "" {
		return models.DefaultStream
	}
	return stream
}

func callerIdentity(c *gin.Context, fallbackID, fallbackName string) (string, string) {
	id := c.GetString(middleware.ContextUserID)
	name := c.GetString(middleware.ContextUserName)
	if id == "" {
		return fallbackID, fallbackName
	}
	return id, name
}
