package liveclasses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidya-portal/backend/internal/models"
)

// ErrNotFound is returned when the referenced live class does not exist.
var ErrNotFound = errors.New("live class not found")

// Repository is the persistence contract for live classes and their
// attendance ledger. Each method maps to a single atomic update; the ledger
// methods are keyed by (class, student) so repeated calls upsert rather
// than append.
type Repository interface {
	Create(ctx context.Context, lc *models.LiveClass) error
	// GetByID returns the class with its attendance records populated.
	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClass, error)
	// ListByTeacher returns a teacher's classes, scheduled date descending.
	ListByTeacher(ctx context.Context, teacherID string) ([]models.LiveClass, error)
	// ListForStudents returns scheduled/live classes for a class+stream,
	// scheduled date ascending (soonest first).
	ListForStudents(ctx context.Context, classLevel, stream string) ([]models.LiveClass, error)
	// UpdateStatus sets the persisted status; nil recordingURL/notes leave
	// the stored values unchanged. Returns ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, recordingURL, notes *string) (*models.LiveClass, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordAttendance upserts the (class, student) attendance record:
	// joinedAt is reset to now and leftAt cleared, whether or not the
	// student joined before.
	RecordAttendance(ctx context.Context, id uuid.UUID, studentID, studentName string) error
	// RecordDeparture stamps leftAt on an existing record; unknown students
	// are a no-op, never a fabricated record.
	RecordDeparture(ctx context.Context, id uuid.UUID, studentID string) error
	ListAttendees(ctx context.Context, id uuid.UUID) ([]models.AttendanceRecord, error)
}

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a live class repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const liveClassColumns = `id, title, description, subject, teacher_id, teacher_name, class_level, stream,
	scheduled_at, duration_minutes, meeting_link, meeting_id, status, recording_url, notes, created_at, updated_at`

func scanLiveClass(row pgx.Row) (*models.LiveClass, error) {
	var lc models.LiveClass
	err := row.Scan(&lc.ID, &lc.Title, &lc.Description, &lc.Subject, &lc.TeacherID, &lc.TeacherName,
		&lc.ClassLevel, &lc.Stream, &lc.ScheduledAt, &lc.DurationMinutes, &lc.MeetingLink, &lc.MeetingID,
		&lc.Status, &lc.RecordingURL, &lc.Notes, &lc.CreatedAt, &lc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lc, nil
}

// Create inserts a new live class.
func (r *PostgresRepository) Create(ctx context.Context, lc *models.LiveClass) error {
	const q = `INSERT INTO live_classes (title, description, subject, teacher_id, teacher_name, class_level, stream,
			scheduled_at, duration_minutes, meeting_link, meeting_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, lc.Title, lc.Description, lc.Subject, lc.TeacherID, lc.TeacherName,
		lc.ClassLevel, lc.Stream, lc.ScheduledAt, lc.DurationMinutes, lc.MeetingLink, lc.MeetingID, lc.Status).
		Scan(&lc.ID, &lc.CreatedAt, &lc.UpdatedAt)
}

// GetByID returns a live class with attendees.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClass, error) {
	lc, err := scanLiveClass(r.pool.QueryRow(ctx, `SELECT `+liveClassColumns+` FROM live_classes WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	attendees, err := r.ListAttendees(ctx, id)
	if err != nil {
		return nil, err
	}
	lc.Attendees = attendees
	return lc, nil
}

// ListByTeacher returns all classes for a teacher, scheduled date descending.
func (r *PostgresRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.LiveClass, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+liveClassColumns+` FROM live_classes WHERE teacher_id = $1 ORDER BY scheduled_at DESC`,
		teacherID)
	if err != nil {
		return nil, err
	}
	return collectLiveClasses(rows)
}

// ListForStudents returns scheduled/live classes for a class+stream, soonest first.
func (r *PostgresRepository) ListForStudents(ctx context.Context, classLevel, stream string) ([]models.LiveClass, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+liveClassColumns+` FROM live_classes
		 WHERE class_level = $1 AND stream = $2 AND status IN ('scheduled', 'live')
		 ORDER BY scheduled_at ASC`,
		classLevel, stream)
	if err != nil {
		return nil, err
	}
	return collectLiveClasses(rows)
}

func collectLiveClasses(rows pgx.Rows) ([]models.LiveClass, error) {
	defer rows.Close()
	var list []models.LiveClass
	for rows.Next() {
		lc, err := scanLiveClass(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *lc)
	}
	return list, rows.Err()
}

// UpdateStatus merge-patches status, recording URL and notes.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, recordingURL, notes *string) (*models.LiveClass, error) {
	const q = `UPDATE live_classes
		SET status = $2,
			recording_url = COALESCE($3, recording_url),
			notes = COALESCE($4, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + liveClassColumns
	return scanLiveClass(r.pool.QueryRow(ctx, q, id, status, recordingURL, notes))
}

// Delete removes a live class; attendance records cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM live_classes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordAttendance upserts the attendance record for (class, student).
// The conflict target makes a rejoin an in-place update, so repeated joins
// never grow the ledger.
func (r *PostgresRepository) RecordAttendance(ctx context.Context, id uuid.UUID, studentID, studentName string) error {
	const q = `INSERT INTO live_class_attendees (live_class_id, student_id, student_name, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (live_class_id, student_id)
		DO UPDATE SET student_name = EXCLUDED.student_name, joined_at = NOW(), left_at = NULL`
	_, err := r.pool.Exec(ctx, q, id, studentID, studentName)
	return err
}

// RecordDeparture stamps left_at for an existing record; no-op if absent.
func (r *PostgresRepository) RecordDeparture(ctx context.Context, id uuid.UUID, studentID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE live_class_attendees SET left_at = NOW() WHERE live_class_id = $1 AND student_id = $2`,
		id, studentID)
	return err
}

// ListAttendees returns attendance records for a class, earliest join first.
func (r *PostgresRepository) ListAttendees(ctx context.Context, id uuid.UUID) ([]models.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, student_name, joined_at, left_at
		 FROM live_class_attendees WHERE live_class_id = $1 ORDER BY joined_at ASC`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.StudentID, &rec.StudentName, &rec.JoinedAt, &rec.LeftAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
