package mariadb

import (
	"context"
	"fmt"
	"strings"
)

// SISStudent is one student row as the legacy SIS stores it. The SIS knows
// nothing about face encodings; imported students start unenrolled.
type SISStudent struct {
	Name     string
	USN      string
	Semester int
}

const maxSemester = 12

// ListStudents reads the student master table, optionally filtered by
// semester (0 means all semesters).
func (p *Pool) ListStudents(ctx context.Context, semester int) ([]SISStudent, error) {
	if semester < 0 || semester > maxSemester {
		return nil, fmt.Errorf("invalid semester %d", semester)
	}

	query := `
		SELECT name, usn, semester
		FROM student_master
		WHERE (? = 0 OR semester = ?)
		ORDER BY usn
	`

	rows, err := p.db.QueryContext(ctx, query, semester, semester)
	if err != nil {
		return nil, fmt.Errorf("query SIS students: %w", err)
	}
	defer rows.Close()

	var students []SISStudent
	for rows.Next() {
		var s SISStudent
		if err := rows.Scan(&s.Name, &s.USN, &s.Semester); err != nil {
			return nil, fmt.Errorf("scan SIS student: %w", err)
		}
		s.Name = strings.TrimSpace(s.Name)
		s.USN = strings.ToUpper(strings.TrimSpace(s.USN))
		if s.USN == "" {
			continue
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
