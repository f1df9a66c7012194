package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/class-attend/internal/roster"
)

// TeacherStore is an in-memory implementation of database.TeacherStore.
type TeacherStore struct {
	mu       sync.RWMutex
	teachers map[int64]*roster.Teacher
	nextID   int64

	// Error injection
	CreateError error
	DeleteError error
}

// NewTeacherStore creates an empty in-memory teacher store.
func NewTeacherStore() *TeacherStore {
	return &TeacherStore{
		teachers: make(map[int64]*roster.Teacher),
		nextID:   1,
	}
}

// AddTeacher seeds the store with a teacher, assigning an ID if missing.
func (m *TeacherStore) AddTeacher(t roster.Teacher) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.nextID
	}
	if t.ID >= m.nextID {
		m.nextID = t.ID + 1
	}
	m.teachers[t.ID] = &t
	return t.ID
}

// CreateTeacher inserts a new teacher.
func (m *TeacherStore) CreateTeacher(ctx context.Context, t *roster.Teacher) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *t
	copied.ID = m.nextID
	m.nextID++
	m.teachers[copied.ID] = &copied
	return copied.ID, nil
}

// GetTeacher retrieves a teacher by ID, nil if not found.
func (m *TeacherStore) GetTeacher(ctx context.Context, id int64) (*roster.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teachers[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

// ListTeachers returns all teachers, ordered by ID.
func (m *TeacherStore) ListTeachers(ctx context.Context) ([]roster.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]roster.Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteTeacher removes a teacher.
func (m *TeacherStore) DeleteTeacher(ctx context.Context, id int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teachers, id)
	return nil
}
