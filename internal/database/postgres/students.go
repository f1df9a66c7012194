package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/roster"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// RosterRepository provides PostgreSQL-backed student storage.
type RosterRepository struct {
	pool *Pool
	dim  int // configured embedding dimensionality
}

// NewRosterRepository creates a roster repository. dim is the embedding
// dimensionality the deployment's detector produces; stored encodings that
// disagree are treated as corrupt and excluded from matching.
func NewRosterRepository(pool *Pool, dim int) *RosterRepository {
	return &RosterRepository{pool: pool, dim: dim}
}

const studentColumns = "id, name, usn, semester, encoding, dim"

// scanStudent scans one student row. A corrupt stored encoding is logged
// and dropped from the result (fail-open); the student record itself is
// still returned, just unenrolled.
func (r *RosterRepository) scanStudent(scan func(...any) error) (*roster.Student, error) {
	var s roster.Student
	var raw sql.NullString
	if err := scan(&s.ID, &s.Name, &s.USN, &s.Semester, &raw, &s.Dim); err != nil {
		return nil, err
	}

	if raw.Valid {
		var vec pgvector.Vector
		if err := vec.Scan(raw.String); err != nil {
			log.Printf("student %s: unreadable encoding, excluded from matching: %v", s.USN, err)
			s.Encoding = nil
			return &s, nil
		}
		s.Encoding = vec.Slice()
	}

	if err := database.ValidateEncoding(s.USN, s.Encoding, r.dim); err != nil {
		log.Printf("student %s: %v, excluded from matching", s.USN, err)
		s.Encoding = nil
	}
	return &s, nil
}

// GetAll returns the full roster, ordered by USN for stable iteration.
func (r *RosterRepository) GetAll(ctx context.Context) ([]roster.Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students
		ORDER BY usn
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []roster.Student
	for rows.Next() {
		s, err := r.scanStudent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// Get retrieves a student by ID, nil if not found.
func (r *RosterRepository) Get(ctx context.Context, id int64) (*roster.Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE id = $1
	`, id)

	s, err := r.scanStudent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", id, err)
	}
	return s, nil
}

// GetByUSN retrieves a student by USN, nil if not found.
func (r *RosterRepository) GetByUSN(ctx context.Context, usn string) (*roster.Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE UPPER(usn) = UPPER($1)
	`, usn)

	s, err := r.scanStudent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", usn, err)
	}
	return s, nil
}

// Count returns the roster size.
func (r *RosterRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CreateStudent inserts a new student and returns its ID.
func (r *RosterRepository) CreateStudent(ctx context.Context, s *roster.Student) (int64, error) {
	var encoding any
	dim := 0
	if s.Enrolled() {
		encoding = pgvector.NewVector(s.Encoding)
		dim = len(s.Encoding)
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (name, usn, semester, encoding, dim)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.Name, s.USN, s.Semester, encoding, dim).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, database.ErrDuplicateUSN
	}
	if err != nil {
		return 0, fmt.Errorf("insert student %s: %w", s.USN, err)
	}
	return id, nil
}

// SaveEncoding stores or replaces the face encoding for a student.
// Last write wins; there is no partial update.
func (r *RosterRepository) SaveEncoding(ctx context.Context, studentID int64, encoding []float32) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE students
		SET encoding = $2, dim = $3
		WHERE id = $1
	`, studentID, pgvector.NewVector(encoding), len(encoding))
	if err != nil {
		return fmt.Errorf("save encoding for student %d: %w", studentID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save encoding for student %d: %w", studentID, err)
	}
	if affected == 0 {
		return fmt.Errorf("student %d not found", studentID)
	}
	return nil
}
