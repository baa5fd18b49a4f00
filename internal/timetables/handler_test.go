package timetables

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewFileStore(filepath.Join(t.TempDir(), "timetables.json"), nil)
	h := NewHandler(store, nil)
	r := gin.New()
	r.POST("/timetables", h.Post)
	r.GET("/timetables", h.ListAll)
	r.GET("/timetables/:class", h.Get)
	r.GET("/timetables/:class/:stream", h.Get)
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

func TestPostAndGetTimetable(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/timetables", gin.H{
		"class":     "12",
		"stream":    "science",
		"timetable": gin.H{"monday": []gin.H{{"subject": "math", "start": "09:00"}}},
		"teacherId": "t-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, "/timetables/12/science", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ClassLevel string `json:"class"`
			Stream     string `json:"stream"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "12", body.Data.ClassLevel)
	assert.Equal(t, "science", body.Data.Stream)
}

func TestPostTimetableValidation(t *testing.T) {
	r := setupRouter(t)

	// missing timetable payload
	rec := doJSON(t, r, http.MethodPost, "/timetables", gin.H{"class": "12", "teacherId": "t-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing teacher identity
	rec = doJSON(t, r, http.MethodPost, "/timetables", gin.H{"class": "12", "timetable": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTimetableNotFound(t *testing.T) {
	r := setupRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/timetables/8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTimetables(t *testing.T) {
	r := setupRouter(t)

	for _, class := range []string{"9", "10"} {
		rec := doJSON(t, r, http.MethodPost, "/timetables", gin.H{
			"class":     class,
			"timetable": gin.H{},
			"teacherId": "t-1",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, r, http.MethodGet, "/timetables", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}
