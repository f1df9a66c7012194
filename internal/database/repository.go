// Package database defines the storage interfaces for the roster and the
// attendance ledger, plus shared storage conditions. Concrete backends live
// in the postgres subpackage; an in-memory implementation for tests lives
// in mock.
package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/class-attend/internal/roster"
)

// ErrDuplicateUSN is returned when creating a student whose USN already exists.
var ErrDuplicateUSN = errors.New("a student with this USN already exists")

// ErrDuplicateUsername is returned when creating a teacher whose username
// already exists.
var ErrDuplicateUsername = errors.New("a teacher with this username already exists")

// RosterReader provides read-only access to the enrolled student roster.
type RosterReader interface {
	// GetAll returns the full roster. Students with corrupt stored
	// encodings are returned with a nil encoding (fail-open: one bad
	// record must not abort a match run); the store logs the condition.
	GetAll(ctx context.Context) ([]roster.Student, error)
	// Get retrieves a student by ID, nil if not found.
	Get(ctx context.Context, id int64) (*roster.Student, error)
	// GetByUSN retrieves a student by USN, nil if not found.
	GetByUSN(ctx context.Context, usn string) (*roster.Student, error)
	// Count returns the roster size.
	Count(ctx context.Context) (int, error)
}

// RosterWriter provides write access to the roster.
type RosterWriter interface {
	RosterReader

	// CreateStudent inserts a new student and returns its ID. USNs are
	// unique; inserting a duplicate USN fails.
	CreateStudent(ctx context.Context, s *roster.Student) (int64, error)
	// SaveEncoding stores or replaces the face encoding for a student.
	// Re-enrollment replaces the whole vector; there is no partial update.
	SaveEncoding(ctx context.Context, studentID int64, encoding []float32) error
}

// TeacherStore manages teacher records. Deleting a teacher cascades to
// their attendance records.
type TeacherStore interface {
	CreateTeacher(ctx context.Context, t *roster.Teacher) (int64, error)
	GetTeacher(ctx context.Context, id int64) (*roster.Teacher, error)
	ListTeachers(ctx context.Context) ([]roster.Teacher, error)
	DeleteTeacher(ctx context.Context, id int64) error
}
