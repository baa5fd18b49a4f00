package videos

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidya-portal/backend/internal/models"
	"github.com/vidya-portal/backend/pkg/queue"
)

// fakeRepo mirrors the Postgres upsert semantics in memory: one watch
// record per (video, student), views bumped only when a record is created.
type fakeRepo struct {
	videos  map[uuid.UUID]*models.RecordedVideo
	watches map[uuid.UUID]map[string]*models.WatchRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		videos:  make(map[uuid.UUID]*models.RecordedVideo),
		watches: make(map[uuid.UUID]map[string]*models.WatchRecord),
	}
}

func (r *fakeRepo) Create(_ context.Context, v *models.RecordedVideo) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	cp := *v
	r.videos[v.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.RecordedVideo, error) {
	v, ok := r.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.RecordedVideo, error) {
	var out []models.RecordedVideo
	for _, v := range r.videos {
		if v.TeacherID == teacherID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListForStudents(_ context.Context, classLevel, stream, subject string) ([]models.RecordedVideo, error) {
	var out []models.RecordedVideo
	for _, v := range r.videos {
		if !v.IsPublic || v.ClassLevel != classLevel || v.Stream != stream {
			continue
		}
		if subject != "" && subject != "all" && v.Subject != subject {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id uuid.UUID, patch UpdatePatch) (*models.RecordedVideo, error) {
	v, ok := r.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	if patch.Subject != nil {
		v.Subject = *patch.Subject
	}
	if patch.IsPublic != nil {
		v.IsPublic = *patch.IsPublic
	}
	cp := *v
	return &cp, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.videos[id]; !ok {
		return ErrNotFound
	}
	delete(r.videos, id)
	delete(r.watches, id)
	return nil
}

func (r *fakeRepo) RecordWatch(_ context.Context, id uuid.UUID, studentID, studentName string, progress float64) (bool, error) {
	if r.watches[id] == nil {
		r.watches[id] = make(map[string]*models.WatchRecord)
	}
	_, existed := r.watches[id][studentID]
	r.watches[id][studentID] = &models.WatchRecord{
		StudentID:   studentID,
		StudentName: studentName,
		WatchedAt:   time.Now(),
		Progress:    progress,
	}
	if !existed {
		r.videos[id].Views++
	}
	return !existed, nil
}

func (r *fakeRepo) ListWatches(_ context.Context, id uuid.UUID) ([]models.WatchRecord, error) {
	var out []models.WatchRecord
	for _, w := range r.watches[id] {
		out = append(out, *w)
	}
	return out, nil
}

type fakeBlobStore struct {
	uploads int
}

func (b *fakeBlobStore) UploadVideo(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	b.uploads++
	_, _ = io.Copy(io.Discard, body)
	return "https://blobs.example.com/" + key, nil
}

func (b *fakeBlobStore) VideosBucket() string { return "test-videos" }

type fakeCleanupQueue struct {
	jobs []queue.BlobDeletePayload
}

func (q *fakeCleanupQueue) EnqueueBlobDelete(_ context.Context, payload queue.BlobDeletePayload) error {
	q.jobs = append(q.jobs, payload)
	return nil
}

func setupRouter(repo Repository, blobs BlobStore, cleanup CleanupQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo, blobs, cleanup, nil)
	r := gin.New()
	r.POST("/recorded-videos/upload", h.Upload)
	r.PUT("/recorded-videos/:id", h.Update)
	r.POST("/recorded-videos/:id/watch", h.Watch)
	r.GET("/recorded-videos/:id/stats", h.Stats)
	r.DELETE("/recorded-videos/:id", h.Delete)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createVideo(t *testing.T, repo *fakeRepo) uuid.UUID {
	t.Helper()
	v := &models.RecordedVideo{
		Title:      "Integration by parts",
		Subject:    "math",
		TeacherID:  "t-1",
		ClassLevel: "12",
		Stream:     models.DefaultStream,
		VideoURL:   "https://videos.example.com/v1.mp4",
		IsPublic:   true,
		S3Key:      "videos/v1/lecture.mp4",
	}
	require.NoError(t, repo.Create(context.Background(), v))
	return v.ID
}

func watchBody(studentID string, progress float64) gin.H {
	return gin.H{"studentId": studentID, "studentName": "Student " + studentID, "progress": progress}
}

func TestWatchCountsFirstEngagementOnce(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, nil, nil)
	id := createVideo(t, repo)

	rec := doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody("s-1", 40))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody("s-1", 90))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/recorded-videos/"+id.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Stats Stats `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Stats.TotalViews, "repeat watch by the same student never re-counts")
	assert.Equal(t, 1, body.Data.Stats.UniqueWatchers)
	assert.InDelta(t, 90.0, body.Data.Stats.AverageProgress, 1e-9, "progress is last-write-wins")
}

func TestWatchDistinctStudentsEachCount(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, nil, nil)
	id := createVideo(t, repo)

	for i, student := range []string{"s-1", "s-2", "s-3"} {
		rec := doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody(student, float64(25*(i+1))))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 3, repo.videos[id].Views)
}

func TestWatchProgressBounds(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, nil, nil)
	id := createVideo(t, repo)

	rec := doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody("s-1", 101))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody("s-1", -1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// boundary values are valid
	rec = doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody("s-1", 0))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, r, http.MethodPost, "/recorded-videos/"+id.String()+"/watch", watchBody("s-1", 100))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWatchUnknownVideo(t *testing.T) {
	r := setupRouter(newFakeRepo(), nil, nil)
	rec := doJSON(t, r, http.MethodPost, "/recorded-videos/"+uuid.NewString()+"/watch", watchBody("s-1", 50))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadJSONReference(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/recorded-videos/upload", gin.H{
		"title":     "Wave optics",
		"subject":   "physics",
		"class":     "12",
		"videoUrl":  "https://youtu.be/abc123",
		"isPublic":  true,
		"teacherId": "t-2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.videos, 1)
	for _, v := range repo.videos {
		assert.Equal(t, "https://youtu.be/abc123", v.VideoURL)
		assert.Equal(t, models.DefaultStream, v.Stream)
		assert.Empty(t, v.S3Key, "externally hosted videos carry no blob key")
	}
}

func TestUploadMultipartRejectsNonVideo(t *testing.T) {
	blobs := &fakeBlobStore{}
	r := setupRouter(newFakeRepo(), blobs, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Wave optics"))
	require.NoError(t, mw.WriteField("subject", "physics"))
	require.NoError(t, mw.WriteField("class", "12"))
	require.NoError(t, mw.WriteField("teacherId", "t-2"))
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="videoFile"; filename="notes.pdf"`)
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/recorded-videos/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Zero(t, blobs.uploads, "rejected file never reaches storage")
}

func TestDeleteEnqueuesBlobCleanup(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobStore{}
	cleanup := &fakeCleanupQueue{}
	r := setupRouter(repo, blobs, cleanup)
	id := createVideo(t, repo)

	rec := doJSON(t, r, http.MethodDelete, "/recorded-videos/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.NotContains(t, repo.videos, id)
	require.Len(t, cleanup.jobs, 1)
	assert.Equal(t, "test-videos", cleanup.jobs[0].Bucket)
	assert.Equal(t, "videos/v1/lecture.mp4", cleanup.jobs[0].Key)
	assert.Equal(t, id, cleanup.jobs[0].EntityID)
}

func TestDeleteWithoutBlobKeySkipsCleanup(t *testing.T) {
	repo := newFakeRepo()
	cleanup := &fakeCleanupQueue{}
	r := setupRouter(repo, &fakeBlobStore{}, cleanup)

	v := &models.RecordedVideo{Title: "Linked", Subject: "math", TeacherID: "t-1", ClassLevel: "12",
		Stream: models.DefaultStream, VideoURL: "https://youtu.be/xyz"}
	require.NoError(t, repo.Create(context.Background(), v))

	rec := doJSON(t, r, http.MethodDelete, "/recorded-videos/"+v.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cleanup.jobs)
}

func TestUpdateMergePatch(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, nil, nil)
	id := createVideo(t, repo)

	rec := doJSON(t, r, http.MethodPut, "/recorded-videos/"+id.String(), gin.H{"isPublic": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := repo.videos[id]
	assert.False(t, v.IsPublic)
	assert.Equal(t, "Integration by parts", v.Title, "omitted field stays unchanged")
}
