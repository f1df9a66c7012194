package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/roster"
)

// TeacherRepository provides PostgreSQL-backed teacher storage. Deleting a
// teacher cascades to their attendance records (FK ON DELETE CASCADE).
type TeacherRepository struct {
	pool *Pool
}

// NewTeacherRepository creates a teacher repository over the pool.
func NewTeacherRepository(pool *Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

// CreateTeacher inserts a new teacher and returns its ID.
func (r *TeacherRepository) CreateTeacher(ctx context.Context, t *roster.Teacher) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO teachers (name, username, subject)
		VALUES ($1, $2, $3)
		RETURNING id
	`, t.Name, t.Username, t.Subject).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, database.ErrDuplicateUsername
	}
	if err != nil {
		return 0, fmt.Errorf("insert teacher %s: %w", t.Username, err)
	}
	return id, nil
}

// GetTeacher retrieves a teacher by ID, nil if not found.
func (r *TeacherRepository) GetTeacher(ctx context.Context, id int64) (*roster.Teacher, error) {
	var t roster.Teacher
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, username, subject
		FROM teachers
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Username, &t.Subject)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get teacher %d: %w", id, err)
	}
	return &t, nil
}

// ListTeachers returns all teachers ordered by name.
func (r *TeacherRepository) ListTeachers(ctx context.Context) ([]roster.Teacher, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, username, subject
		FROM teachers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query teachers: %w", err)
	}
	defer rows.Close()

	var teachers []roster.Teacher
	for rows.Next() {
		var t roster.Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Username, &t.Subject); err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// DeleteTeacher removes a teacher. Attendance records owned by the teacher
// are removed by the FK cascade.
func (r *TeacherRepository) DeleteTeacher(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, "DELETE FROM teachers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete teacher %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete teacher %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("teacher %d not found", id)
	}
	return nil
}
