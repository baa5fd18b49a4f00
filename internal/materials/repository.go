package materials

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidya-portal/backend/internal/models"
)

// ErrNotFound is returned when the referenced material does not exist.
var ErrNotFound = errors.New("material not found")

// Repository handles material persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a material repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const materialColumns = `id, title, description, course_id, teacher_id, class_level, subject,
	file_url, file_size, s3_key, created_at, updated_at`

func scanMaterial(row pgx.Row) (*models.Material, error) {
	var m models.Material
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.CourseID, &m.TeacherID, &m.ClassLevel,
		&m.Subject, &m.FileURL, &m.FileSize, &m.S3Key, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts a new material.
func (r *Repository) Create(ctx context.Context, m *models.Material) error {
	const q = `INSERT INTO materials (title, description, course_id, teacher_id, class_level, subject, file_url, file_size, s3_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, m.Title, m.Description, m.CourseID, m.TeacherID, m.ClassLevel,
		m.Subject, m.FileURL, m.FileSize, m.S3Key).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns a material by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	return scanMaterial(r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
}

// ListByCourse returns materials for a course, newest first.
func (r *Repository) ListByCourse(ctx context.Context, courseID string) ([]models.Material, error) {
	return r.list(ctx, `SELECT `+materialColumns+` FROM materials WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
}

// ListByTeacher returns materials uploaded by a teacher, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Material, error) {
	return r.list(ctx, `SELECT `+materialColumns+` FROM materials WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID)
}

// ListForStudents returns materials for a class, optionally filtered by
// subject ("all" or empty disables the filter), newest first.
func (r *Repository) ListForStudents(ctx context.Context, classLevel, subject string) ([]models.Material, error) {
	if subject != "" && subject != "all" {
		return r.list(ctx,
			`SELECT `+materialColumns+` FROM materials WHERE class_level = $1 AND subject = $2 ORDER BY created_at DESC`,
			classLevel, subject)
	}
	return r.list(ctx, `SELECT `+materialColumns+` FROM materials WHERE class_level = $1 ORDER BY created_at DESC`, classLevel)
}

// ListAll returns every material, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Material, error) {
	return r.list(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY created_at DESC`)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Material, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Update merge-patches title, description and subject.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, subject *string) (*models.Material, error) {
	const q = `UPDATE materials
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			subject = COALESCE($4, subject),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + materialColumns
	return scanMaterial(r.pool.QueryRow(ctx, q, id, title, description, subject))
}

// Delete removes a material by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
