package liveclasses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidya-portal/backend/internal/models"
)

// fakeRepo is an in-memory Repository with the same keyed-upsert semantics
// as the Postgres implementation.
type fakeRepo struct {
	classes   map[uuid.UUID]*models.LiveClass
	attendees map[uuid.UUID]map[string]*models.AttendanceRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		classes:   make(map[uuid.UUID]*models.LiveClass),
		attendees: make(map[uuid.UUID]map[string]*models.AttendanceRecord),
	}
}

func (r *fakeRepo) Create(_ context.Context, lc *models.LiveClass) error {
	lc.ID = uuid.New()
	lc.CreatedAt = time.Now()
	lc.UpdatedAt = lc.CreatedAt
	cp := *lc
	r.classes[lc.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.LiveClass, error) {
	lc, ok := r.classes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *lc
	for _, rec := range r.attendees[id] {
		cp.Attendees = append(cp.Attendees, *rec)
	}
	return &cp, nil
}

func (r *fakeRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.LiveClass, error) {
	var out []models.LiveClass
	for _, lc := range r.classes {
		if lc.TeacherID == teacherID {
			out = append(out, *lc)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListForStudents(_ context.Context, classLevel, stream string) ([]models.LiveClass, error) {
	var out []models.LiveClass
	for _, lc := range r.classes {
		if lc.ClassLevel == classLevel && lc.Stream == stream &&
			(lc.Status == models.LiveClassScheduled || lc.Status == models.LiveClassLive) {
			out = append(out, *lc)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, recordingURL, notes *string) (*models.LiveClass, error) {
	lc, ok := r.classes[id]
	if !ok {
		return nil, ErrNotFound
	}
	lc.Status = status
	if recordingURL != nil {
		lc.RecordingURL = *recordingURL
	}
	if notes != nil {
		lc.Notes = *notes
	}
	cp := *lc
	return &cp, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.classes[id]; !ok {
		return ErrNotFound
	}
	delete(r.classes, id)
	delete(r.attendees, id)
	return nil
}

func (r *fakeRepo) RecordAttendance(_ context.Context, id uuid.UUID, studentID, studentName string) error {
	if r.attendees[id] == nil {
		r.attendees[id] = make(map[string]*models.AttendanceRecord)
	}
	r.attendees[id][studentID] = &models.AttendanceRecord{
		StudentID:   studentID,
		StudentName: studentName,
		JoinedAt:    time.Now(),
	}
	return nil
}

func (r *fakeRepo) RecordDeparture(_ context.Context, id uuid.UUID, studentID string) error {
	rec, ok := r.attendees[id][studentID]
	if !ok {
		return nil
	}
	now := time.Now()
	rec.LeftAt = &now
	return nil
}

func (r *fakeRepo) ListAttendees(_ context.Context, id uuid.UUID) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range r.attendees[id] {
		out = append(out, *rec)
	}
	return out, nil
}

func setupRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo, nil)
	r := gin.New()
	r.POST("/live-classes", h.Create)
	r.GET("/live-classes/:id", h.GetByID)
	r.PUT("/live-classes/:id/status", h.UpdateStatus)
	r.POST("/live-classes/:id/attendee", h.AddAttendee)
	r.DELETE("/live-classes/:id/attendee", h.RemoveAttendee)
	r.DELETE("/live-classes/:id", h.Delete)
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

func createClass(t *testing.T, repo *fakeRepo, scheduledAt time.Time, duration int) uuid.UUID {
	t.Helper()
	lc := &models.LiveClass{
		Title:           "Thermodynamics revision",
		Subject:         "physics",
		TeacherID:       "t-1",
		TeacherName:     "Asha",
		ClassLevel:      "12",
		Stream:          models.DefaultStream,
		ScheduledAt:     scheduledAt,
		DurationMinutes: duration,
		MeetingID:       uuid.NewString(),
		Status:          models.LiveClassScheduled,
	}
	require.NoError(t, repo.Create(context.Background(), lc))
	return lc.ID
}

func TestCreateLiveClass(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)

	rec := doJSON(t, r, http.MethodPost, "/live-classes", gin.H{
		"title":         "Organic chemistry intro",
		"subject":       "chemistry",
		"class":         "11",
		"scheduledDate": "2026-04-01T09:00:00Z",
		"duration":      45,
		"teacherId":     "t-9",
		"teacherName":   "Ravi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			LiveClass struct {
				ID        uuid.UUID `json:"id"`
				Stream    string    `json:"stream"`
				Status    string    `json:"status"`
				MeetingID string    `json:"meetingId"`
			} `json:"liveClass"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, models.DefaultStream, body.Data.LiveClass.Stream)
	assert.Equal(t, models.LiveClassScheduled, body.Data.LiveClass.Status)
	assert.NotEmpty(t, body.Data.LiveClass.MeetingID)
	assert.Contains(t, repo.classes, body.Data.LiveClass.ID)
}

func TestCreateLiveClassValidation(t *testing.T) {
	r := setupRouter(newFakeRepo())

	// missing required fields
	rec := doJSON(t, r, http.MethodPost, "/live-classes", gin.H{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// zero duration
	rec = doJSON(t, r, http.MethodPost, "/live-classes", gin.H{
		"title":         "x",
		"subject":       "math",
		"class":         "10",
		"scheduledDate": "2026-04-01T09:00:00Z",
		"duration":      0,
		"teacherId":     "t-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unparseable date
	rec = doJSON(t, r, http.MethodPost, "/live-classes", gin.H{
		"title":         "x",
		"subject":       "math",
		"class":         "10",
		"scheduledDate": "next tuesday",
		"duration":      30,
		"teacherId":     "t-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLiveClassAttachesTemporalState(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)
	id := createClass(t, repo, time.Now().Add(-10*time.Minute), 60)

	rec := doJSON(t, r, http.MethodGet, "/live-classes/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			LiveClass struct {
				TemporalState string `json:"temporalState"`
				CanJoin       bool   `json:"canJoin"`
			} `json:"liveClass"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(StateLive), body.Data.LiveClass.TemporalState)
	assert.True(t, body.Data.LiveClass.CanJoin)
}

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)
	id := createClass(t, repo, time.Now(), 60)

	rec := doJSON(t, r, http.MethodPut, "/live-classes/"+id.String()+"/status", gin.H{
		"status":       "completed",
		"recordingUrl": "https://cdn.example.com/rec.mp4",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	lc := repo.classes[id]
	assert.Equal(t, models.LiveClassCompleted, lc.Status)
	assert.Equal(t, "https://cdn.example.com/rec.mp4", lc.RecordingURL)
	assert.Empty(t, lc.Notes, "omitted field stays unchanged")

	// notes only; recording url untouched
	rec = doJSON(t, r, http.MethodPut, "/live-classes/"+id.String()+"/status", gin.H{
		"status": "completed",
		"notes":  "covered chapters 4-6",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.example.com/rec.mp4", repo.classes[id].RecordingURL)
	assert.Equal(t, "covered chapters 4-6", repo.classes[id].Notes)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)
	id := createClass(t, repo, time.Now(), 60)

	rec := doJSON(t, r, http.MethodPut, "/live-classes/"+id.String()+"/status", gin.H{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	r := setupRouter(newFakeRepo())
	rec := doJSON(t, r, http.MethodPut, "/live-classes/"+uuid.NewString()+"/status", gin.H{"status": "live"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceRejoinKeepsOneRecord(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)
	id := createClass(t, repo, time.Now(), 60)

	join := gin.H{"studentId": "s-1", "studentName": "Meera"}
	rec := doJSON(t, r, http.MethodPost, "/live-classes/"+id.String()+"/attendee", join)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// leave, then rejoin
	rec = doJSON(t, r, http.MethodDelete, "/live-classes/"+id.String()+"/attendee", gin.H{"studentId": "s-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.attendees[id]["s-1"].LeftAt)

	rec = doJSON(t, r, http.MethodPost, "/live-classes/"+id.String()+"/attendee", join)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := repo.ListAttendees(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, records, 1, "rejoin must not append a second record")
	assert.Nil(t, records[0].LeftAt, "rejoin clears the departure stamp")
}

func TestDepartureForUnknownStudentIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)
	id := createClass(t, repo, time.Now(), 60)

	rec := doJSON(t, r, http.MethodDelete, "/live-classes/"+id.String()+"/attendee", gin.H{"studentId": "ghost"})
	assert.Equal(t, http.StatusOK, rec.Code)

	records, err := repo.ListAttendees(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, records, "departure never fabricates an attendance record")
}

func TestAttendanceUnknownClass(t *testing.T) {
	r := setupRouter(newFakeRepo())
	rec := doJSON(t, r, http.MethodPost, "/live-classes/"+uuid.NewString()+"/attendee", gin.H{"studentId": "s-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLiveClass(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo)
	id := createClass(t, repo, time.Now(), 60)

	rec := doJSON(t, r, http.MethodDelete, "/live-classes/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, repo.classes, id)

	rec = doJSON(t, r, http.MethodDelete, "/live-classes/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
