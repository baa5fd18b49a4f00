package videos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidya-portal/backend/internal/models"
)

// ErrNotFound is returned when the referenced video does not exist.
var ErrNotFound = errors.New("video not found")

// UpdatePatch carries optional field updates for a video; nil fields leave
// the stored values unchanged.
type UpdatePatch struct {
	Title           *string
	Description     *string
	Subject         *string
	ClassLevel      *string
	Stream          *string
	ThumbnailURL    *string
	DurationSeconds *int
	Tags            *[]string
	IsPublic        *bool
}

// Repository is the persistence contract for recorded videos and their
// watch ledger.
type Repository interface {
	Create(ctx context.Context, v *models.RecordedVideo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RecordedVideo, error)
	// ListByTeacher returns a teacher's videos, newest first.
	ListByTeacher(ctx context.Context, teacherID string) ([]models.RecordedVideo, error)
	// ListForStudents returns public videos for a class+stream, newest
	// first; subject "all" (or empty) disables the subject filter.
	ListForStudents(ctx context.Context, classLevel, stream, subject string) ([]models.RecordedVideo, error)
	Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*models.RecordedVideo, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordWatch upserts the (video, student) watch record with
	// last-write-wins progress. When the record is created (first
	// engagement) the video's view counter is incremented by exactly one
	// in the same atomic statement; updates never touch the counter.
	// Returns whether the record was created.
	RecordWatch(ctx context.Context, id uuid.UUID, studentID, studentName string, progress float64) (bool, error)
	ListWatches(ctx context.Context, id uuid.UUID) ([]models.WatchRecord, error)
}

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a recorded video repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const videoColumns = `id, title, description, subject, teacher_id, teacher_name, class_level, stream,
	video_url, thumbnail_url, duration_seconds, file_size, views, tags, is_public, s3_key, created_at, updated_at`

func scanVideo(row pgx.Row) (*models.RecordedVideo, error) {
	var v models.RecordedVideo
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Subject, &v.TeacherID, &v.TeacherName,
		&v.ClassLevel, &v.Stream, &v.VideoURL, &v.ThumbnailURL, &v.DurationSeconds, &v.FileSize,
		&v.Views, &v.Tags, &v.IsPublic, &v.S3Key, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts a new recorded video.
func (r *PostgresRepository) Create(ctx context.Context, v *models.RecordedVideo) error {
	const q = `INSERT INTO recorded_videos (title, description, subject, teacher_id, teacher_name, class_level, stream,
			video_url, thumbnail_url, duration_seconds, file_size, tags, is_public, s3_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, views, created_at, updated_at`
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.pool.QueryRow(ctx, q, v.Title, v.Description, v.Subject, v.TeacherID, v.TeacherName,
		v.ClassLevel, v.Stream, v.VideoURL, v.ThumbnailURL, v.DurationSeconds, v.FileSize, tags, v.IsPublic, v.S3Key).
		Scan(&v.ID, &v.Views, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID returns a video by ID (without the watch ledger).
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RecordedVideo, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM recorded_videos WHERE id = $1`, id))
}

// ListByTeacher returns all videos uploaded by a teacher, newest first.
func (r *PostgresRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.RecordedVideo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM recorded_videos WHERE teacher_id = $1 ORDER BY created_at DESC`,
		teacherID)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// ListForStudents returns public videos for a class+stream, newest first.
func (r *PostgresRepository) ListForStudents(ctx context.Context, classLevel, stream, subject string) ([]models.RecordedVideo, error) {
	q := `SELECT ` + videoColumns + ` FROM recorded_videos
		WHERE class_level = $1 AND stream = $2 AND is_public = TRUE`
	args := []interface{}{classLevel, stream}
	if subject != "" && subject != "all" {
		q += ` AND subject = $3`
		args = append(args, subject)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

func collectVideos(rows pgx.Rows) ([]models.RecordedVideo, error) {
	defer rows.Close()
	var list []models.RecordedVideo
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// Update merge-patches video details.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*models.RecordedVideo, error) {
	const q = `UPDATE recorded_videos
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			subject = COALESCE($4, subject),
			class_level = COALESCE($5, class_level),
			stream = COALESCE($6, stream),
			thumbnail_url = COALESCE($7, thumbnail_url),
			duration_seconds = COALESCE($8, duration_seconds),
			tags = COALESCE($9, tags),
			is_public = COALESCE($10, is_public),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + videoColumns
	return scanVideo(r.pool.QueryRow(ctx, q, id, patch.Title, patch.Description, patch.Subject,
		patch.ClassLevel, patch.Stream, patch.ThumbnailURL, patch.DurationSeconds, patch.Tags, patch.IsPublic))
}

// Delete removes a video; watch records cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recorded_videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordWatch upserts the watch record and bumps the view counter only when
// the record is new. One statement, so the counter can never drift from the
// ledger: N calls for the same student add exactly one view.
// xmax = 0 distinguishes a fresh insert from a conflict update.
func (r *PostgresRepository) RecordWatch(ctx context.Context, id uuid.UUID, studentID, studentName string, progress float64) (bool, error) {
	const q = `WITH w AS (
			INSERT INTO video_watches (video_id, student_id, student_name, watched_at, progress)
			VALUES ($1, $2, $3, NOW(), $4)
			ON CONFLICT (video_id, student_id)
			DO UPDATE SET student_name = EXCLUDED.student_name, watched_at = NOW(), progress = EXCLUDED.progress
			RETURNING (xmax = 0) AS inserted
		), bump AS (
			UPDATE recorded_videos SET views = views + 1, updated_at = NOW()
			WHERE id = $1 AND (SELECT inserted FROM w)
			RETURNING id
		)
		SELECT inserted FROM w`
	var inserted bool
	if err := r.pool.QueryRow(ctx, q, id, studentID, studentName, progress).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

// ListWatches returns the watch ledger for a video, most recent first.
func (r *PostgresRepository) ListWatches(ctx context.Context, id uuid.UUID) ([]models.WatchRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, student_name, watched_at, progress
		 FROM video_watches WHERE video_id = $1 ORDER BY watched_at DESC`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WatchRecord
	for rows.Next() {
		var w models.WatchRecord
		if err := rows.Scan(&w.StudentID, &w.StudentName, &w.WatchedAt, &w.Progress); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
