// Package mock provides in-memory implementations of the storage interfaces
// for testing. The ledger honors the same atomic-upsert contract as the
// PostgreSQL backend so reconciliation tests exercise real key semantics.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/roster"
)

// RosterStore is an in-memory implementation of database.RosterWriter.
type RosterStore struct {
	mu       sync.RWMutex
	students map[int64]*roster.Student
	nextID   int64

	// Error injection
	GetAllError error
	SaveError   error
}

// NewRosterStore creates an empty in-memory roster store.
func NewRosterStore() *RosterStore {
	return &RosterStore{
		students: make(map[int64]*roster.Student),
		nextID:   1,
	}
}

// AddStudent seeds the store with a student, assigning an ID if missing.
func (m *RosterStore) AddStudent(s roster.Student) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
	}
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.students[s.ID] = &s
	return s.ID
}

// GetAll returns the full roster, ordered by ID for determinism.
func (m *RosterStore) GetAll(ctx context.Context) ([]roster.Student, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]roster.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get retrieves a student by ID, nil if not found.
func (m *RosterStore) Get(ctx context.Context, id int64) (*roster.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// GetByUSN retrieves a student by USN, nil if not found.
func (m *RosterStore) GetByUSN(ctx context.Context, usn string) (*roster.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.USN == usn {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

// Count returns the roster size.
func (m *RosterStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// CreateStudent inserts a new student.
func (m *RosterStore) CreateStudent(ctx context.Context, s *roster.Student) (int64, error) {
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *s
	copied.ID = m.nextID
	m.nextID++
	m.students[copied.ID] = &copied
	return copied.ID, nil
}

// SaveEncoding replaces the encoding for a student (last write wins).
func (m *RosterStore) SaveEncoding(ctx context.Context, studentID int64, encoding []float32) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[studentID]
	if !ok {
		return nil
	}
	s.Encoding = append([]float32(nil), encoding...)
	s.Dim = len(encoding)
	return nil
}

// ledgerKey is the composite uniqueness boundary of the attendance ledger.
type ledgerKey struct {
	StudentID int64
	TeacherID int64
	Subject   string
	Date      string
}

// Ledger is an in-memory implementation of attendance.Ledger. Upsert is
// atomic per key: the map write happens under one lock, mirroring the
// ON CONFLICT upsert of the PostgreSQL backend.
type Ledger struct {
	mu      sync.Mutex
	records map[ledgerKey]attendance.Status

	// UpsertError, when set, fails every upsert (storage outage).
	UpsertError error
	// FailFor fails upserts for specific student IDs only, for
	// partial-failure tests.
	FailFor map[int64]error

	QueryError error
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[ledgerKey]attendance.Status),
	}
}

// Upsert writes or overwrites the status for one (student, session) key.
func (m *Ledger) Upsert(ctx context.Context, studentID int64, key attendance.SessionKey, status attendance.Status) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	if err, ok := m.FailFor[studentID]; ok {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[ledgerKey{
		StudentID: studentID,
		TeacherID: key.TeacherID,
		Subject:   key.Subject,
		Date:      key.Date,
	}] = status
	return nil
}

// Query returns records matching the filter, newest date first and by
// student within a date, matching the PostgreSQL backend's ordering.
func (m *Ledger) Query(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []attendance.Record
	for k, status := range m.records {
		if filter.TeacherID != 0 && k.TeacherID != filter.TeacherID {
			continue
		}
		if filter.StudentID != 0 && k.StudentID != filter.StudentID {
			continue
		}
		if filter.Date != "" && k.Date != filter.Date {
			continue
		}
		sk := attendance.SessionKey{TeacherID: k.TeacherID, Subject: k.Subject, Date: k.Date}
		out = append(out, attendance.Record{
			StudentID: k.StudentID,
			TeacherID: k.TeacherID,
			Subject:   k.Subject,
			Date:      sk.Day(),
			Status:    status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// Len returns the total number of rows, across all sessions.
func (m *Ledger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// StatusFor returns the recorded status for one (student, session) key and
// whether a row exists at all.
func (m *Ledger) StatusFor(studentID int64, key attendance.SessionKey) (attendance.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.records[ledgerKey{
		StudentID: studentID,
		TeacherID: key.TeacherID,
		Subject:   key.Subject,
		Date:      key.Date,
	}]
	return status, ok
}
