// Package attendance turns presence decisions into durable, deduplicated
// attendance records. The ledger key is (student, teacher, subject, date);
// re-submitting a session overwrites statuses in place instead of creating
// duplicate rows.
package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Status is the recorded presence decision for one student in one session.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ErrMissingSessionDate is returned when a session date is absent or not a
// resolvable YYYY-MM-DD calendar date.
var ErrMissingSessionDate = errors.New("session date missing or not a valid YYYY-MM-DD date")

// ErrEmptyRoster is returned by ReconcileRequireRoster when the roster has
// no students.
var ErrEmptyRoster = errors.New("roster is empty")

// SessionKey identifies one attendance-taking event. It is not a stored
// entity; it is the uniqueness boundary for ledger rows.
type SessionKey struct {
	TeacherID int64
	Subject   string
	Date      string // YYYY-MM-DD
}

// Validate checks that the key identifies a real session. The date must be
// a resolvable calendar date in YYYY-MM-DD form.
func (k SessionKey) Validate() error {
	if k.TeacherID <= 0 {
		return fmt.Errorf("invalid teacher id %d", k.TeacherID)
	}
	if k.Subject == "" {
		return errors.New("subject is required")
	}
	if _, err := time.Parse("2006-01-02", k.Date); err != nil {
		return ErrMissingSessionDate
	}
	return nil
}

// Day returns the session date as a time.Time. Validate must have passed.
func (k SessionKey) Day() time.Time {
	t, _ := time.Parse("2006-01-02", k.Date)
	return t
}

// Record is one durable attendance row. At most one record exists per
// (student, teacher, subject, date).
type Record struct {
	ID        int64
	StudentID int64
	TeacherID int64
	Subject   string
	Date      time.Time
	Status    Status
}

// DateString formats the record date as YYYY-MM-DD.
func (r *Record) DateString() string {
	return r.Date.Format("2006-01-02")
}

// QueryFilter selects attendance records for reporting. Zero values mean
// "no filter" for that field.
type QueryFilter struct {
	TeacherID int64
	StudentID int64
	Date      string // YYYY-MM-DD, exact match
}
