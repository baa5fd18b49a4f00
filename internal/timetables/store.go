package timetables

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidya-portal/backend/internal/models"
)

// ErrNotFound is returned when no timetable exists for the requested key.
var ErrNotFound = errors.New("timetable not found")

// Store is the persistence abstraction for timetable slots, keyed by
// (class, stream). Implementations hold exactly one slot per key; Upsert
// replaces the payload in place.
type Store interface {
	Get(classLevel, stream string) (*models.Timetable, error)
	Upsert(classLevel, stream string, payload json.RawMessage, teacherID string) (*models.Timetable, error)
	List() ([]models.Timetable, error)
}

// FileStore keeps all slots in one JSON file, rewritten whole on every
// Upsert. The read-modify-write spans a request and is not locked: two
// concurrent posts race and the last writer wins. Timetable posting is a
// low-frequency administrative action, so that window is accepted rather
// than hidden behind locking.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file-backed timetable store. The file is created
// on first Upsert.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

type fileDoc struct {
	Timetables []models.Timetable `json:"timetables"`
}

func (s *FileStore) load() (*fileDoc, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDoc{}, nil
		}
		return nil, fmt.Errorf("read timetable file: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse timetable file: %w", err)
	}
	return &doc, nil
}

// save serializes fully before touching the file, so a marshal failure
// leaves the previous content intact.
func (s *FileStore) save(doc *fileDoc) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timetable file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create timetable dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write timetable file: %w", err)
	}
	return nil
}

func normalizeStream(stream string) string {
	if stream == "" {
		return models.DefaultStream
	}
	return stream
}

// Get returns the slot for (class, stream), or ErrNotFound.
func (s *FileStore) Get(classLevel, stream string) (*models.Timetable, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	stream = normalizeStream(stream)
	for i := range doc.Timetables {
		t := &doc.Timetables[i]
		if t.ClassLevel == classLevel && t.Stream == stream {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

// Upsert replaces the slot for (class, stream) in place, keeping its
// identity, or creates a new one. No history is retained.
func (s *FileStore) Upsert(classLevel, stream string, payload json.RawMessage, teacherID string) (*models.Timetable, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	stream = normalizeStream(stream)

	entry := models.Timetable{
		ID:         uuid.New(),
		ClassLevel: classLevel,
		Stream:     stream,
		Timetable:  payload,
		TeacherID:  teacherID,
		PostedAt:   time.Now().UTC(),
	}
	replaced := false
	for i := range doc.Timetables {
		if doc.Timetables[i].ClassLevel == classLevel && doc.Timetables[i].Stream == stream {
			entry.ID = doc.Timetables[i].ID
			doc.Timetables[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Timetables = append(doc.Timetables, entry)
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	s.logger.Info("timetable posted",
		zap.String("class", classLevel),
		zap.String("stream", stream),
		zap.Bool("replaced", replaced))
	return &entry, nil
}

// List returns all slots in storage order.
func (s *FileStore) List() ([]models.Timetable, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Timetables, nil
}
