package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/class-attend/internal/attendance"
)

// AttendanceRepository is the PostgreSQL attendance ledger. The upsert is a
// single INSERT ... ON CONFLICT statement against the composite unique
// index, so two concurrent submissions racing on the same key resolve to
// one row without an exists-then-insert window.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates an attendance ledger over the pool.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Upsert writes or overwrites the status for one student in one session.
func (r *AttendanceRepository) Upsert(ctx context.Context, studentID int64, key attendance.SessionKey, status attendance.Status) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (student_id, teacher_id, subject, date, status, marked_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (student_id, teacher_id, subject, date)
		DO UPDATE SET status = EXCLUDED.status, marked_at = NOW()
	`, studentID, key.TeacherID, key.Subject, key.Date, string(status))
	if err != nil {
		return fmt.Errorf("upsert attendance for student %d: %w", studentID, err)
	}
	return nil
}

// Query returns attendance records matching the filter, newest date first,
// then by student for determinism.
func (r *AttendanceRepository) Query(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	query := `
		SELECT id, student_id, teacher_id, subject, date, status
		FROM attendance
		WHERE ($1 = 0 OR teacher_id = $1)
		  AND ($2 = 0 OR student_id = $2)
		  AND ($3 = '' OR date = $3::date)
		ORDER BY date DESC, student_id
	`

	rows, err := r.pool.Query(ctx, query, filter.TeacherID, filter.StudentID, filter.Date)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.TeacherID, &rec.Subject, &rec.Date, &status); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		rec.Status = attendance.Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
