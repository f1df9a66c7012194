//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/roster"
)

const testDim = 4

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		t.Fatalf("creating pool: %v", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func seedTeacher(t *testing.T, repo *TeacherRepository) int64 {
	t.Helper()
	id, err := repo.CreateTeacher(context.Background(), &roster.Teacher{
		Name: "R. Iyer", Username: "riyer", Subject: "Operating Systems",
	})
	if err != nil {
		t.Fatalf("seed teacher: %v", err)
	}
	return id
}

func seedStudent(t *testing.T, repo *RosterRepository, usn string, encoding []float32) int64 {
	t.Helper()
	id, err := repo.CreateStudent(context.Background(), &roster.Student{
		Name: "Student " + usn, USN: usn, Semester: 5, Encoding: encoding,
	})
	if err != nil {
		t.Fatalf("seed student %s: %v", usn, err)
	}
	return id
}

func TestRosterRoundTrip(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewRosterRepository(pool, testDim)
	id := seedStudent(t, repo, "1BA21CS001", []float32{1, 0, 0, 0})
	seedStudent(t, repo, "1BA21CS002", nil)

	s, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s == nil || s.USN != "1BA21CS001" {
		t.Fatalf("Get = %+v", s)
	}
	if !s.Enrolled() || len(s.Encoding) != testDim {
		t.Errorf("expected enrolled student with %d-dim encoding, got %+v", testDim, s.Encoding)
	}

	// Unknown student is nil, not an error.
	if s, err := repo.Get(ctx, 9999); err != nil || s != nil {
		t.Errorf("Get(9999) = %v, %v; want nil, nil", s, err)
	}

	// USN lookup is case-insensitive.
	s, err = repo.GetByUSN(ctx, "1ba21cs002")
	if err != nil || s == nil {
		t.Fatalf("GetByUSN: %v, %v", s, err)
	}
	if s.Enrolled() {
		t.Error("student without encoding reported as enrolled")
	}

	// Duplicate USN is rejected.
	if _, err := repo.CreateStudent(ctx, &roster.Student{Name: "X", USN: "1BA21CS001", Semester: 5}); err != database.ErrDuplicateUSN {
		t.Errorf("duplicate USN err = %v, want ErrDuplicateUSN", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAll len = %d, want 2", len(all))
	}
}

func TestSaveEncodingReplaces(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewRosterRepository(pool, testDim)
	id := seedStudent(t, repo, "1BA21CS001", []float32{1, 0, 0, 0})

	if err := repo.SaveEncoding(ctx, id, []float32{0, 1, 0, 0}); err != nil {
		t.Fatalf("SaveEncoding: %v", err)
	}

	s, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if s.Encoding[1] != 1 {
		t.Errorf("encoding not replaced: %v", s.Encoding)
	}

	if err := repo.SaveEncoding(ctx, 9999, []float32{0, 1, 0, 0}); err == nil {
		t.Error("SaveEncoding for missing student succeeded")
	}
}

func TestCorruptEncodingExcludedNotFatal(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewRosterRepository(pool, testDim)
	seedStudent(t, repo, "1BA21CS001", []float32{1, 0}) // wrong dimensionality
	seedStudent(t, repo, "1BA21CS002", []float32{0, 1, 0, 0})

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll must not fail on one corrupt encoding: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAll len = %d, want 2", len(all))
	}
	for _, s := range all {
		switch s.USN {
		case "1BA21CS001":
			if s.Enrolled() {
				t.Error("corrupt encoding still usable for matching")
			}
		case "1BA21CS002":
			if !s.Enrolled() {
				t.Error("valid encoding dropped")
			}
		}
	}
}

func TestAttendanceUpsertIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	students := NewRosterRepository(pool, testDim)
	teachers := NewTeacherRepository(pool)
	ledger := NewAttendanceRepository(pool)

	teacherID := seedTeacher(t, teachers)
	studentID := seedStudent(t, students, "1BA21CS001", nil)

	key := attendance.SessionKey{TeacherID: teacherID, Subject: "Operating Systems", Date: "2026-02-13"}

	if err := ledger.Upsert(ctx, studentID, key, attendance.StatusAbsent); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := ledger.Upsert(ctx, studentID, key, attendance.StatusPresent); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}

	records, err := ledger.Query(ctx, attendance.QueryFilter{TeacherID: teacherID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want exactly 1 (overwrite, not accumulate)", len(records))
	}
	if records[0].Status != attendance.StatusPresent {
		t.Errorf("status = %s, want Present (last write wins)", records[0].Status)
	}
	if records[0].DateString() != "2026-02-13" {
		t.Errorf("date = %s, want 2026-02-13", records[0].DateString())
	}
}

func TestAttendanceConcurrentUpsertSameKey(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	students := NewRosterRepository(pool, testDim)
	teachers := NewTeacherRepository(pool)
	ledger := NewAttendanceRepository(pool)

	teacherID := seedTeacher(t, teachers)
	studentID := seedStudent(t, students, "1BA21CS001", nil)
	key := attendance.SessionKey{TeacherID: teacherID, Subject: "Operating Systems", Date: "2026-02-13"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		status := attendance.StatusPresent
		if i%2 == 0 {
			status = attendance.StatusAbsent
		}
		go func() {
			defer wg.Done()
			if err := ledger.Upsert(ctx, studentID, key, status); err != nil {
				t.Errorf("concurrent Upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	records, err := ledger.Query(ctx, attendance.QueryFilter{TeacherID: teacherID})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d after concurrent upserts on one key, want 1", len(records))
	}
}

func TestAttendanceQueryFilters(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	students := NewRosterRepository(pool, testDim)
	teachers := NewTeacherRepository(pool)
	ledger := NewAttendanceRepository(pool)

	teacherID := seedTeacher(t, teachers)
	otherTeacher, err := teachers.CreateTeacher(ctx, &roster.Teacher{Name: "S. Rao", Username: "srao", Subject: "Networks"})
	if err != nil {
		t.Fatal(err)
	}
	a := seedStudent(t, students, "1BA21CS001", nil)
	b := seedStudent(t, students, "1BA21CS002", nil)

	day1 := attendance.SessionKey{TeacherID: teacherID, Subject: "Operating Systems", Date: "2026-02-13"}
	day2 := attendance.SessionKey{TeacherID: teacherID, Subject: "Operating Systems", Date: "2026-02-14"}
	other := attendance.SessionKey{TeacherID: otherTeacher, Subject: "Networks", Date: "2026-02-13"}

	for _, w := range []struct {
		student int64
		key     attendance.SessionKey
		status  attendance.Status
	}{
		{a, day1, attendance.StatusPresent},
		{b, day1, attendance.StatusAbsent},
		{a, day2, attendance.StatusAbsent},
		{a, other, attendance.StatusPresent},
	} {
		if err := ledger.Upsert(ctx, w.student, w.key, w.status); err != nil {
			t.Fatal(err)
		}
	}

	records, err := ledger.Query(ctx, attendance.QueryFilter{TeacherID: teacherID})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("teacher filter: %d records, want 3", len(records))
	}
	// Newest date first.
	if len(records) > 0 && records[0].DateString() != "2026-02-14" {
		t.Errorf("first record date = %s, want newest first", records[0].DateString())
	}

	records, err = ledger.Query(ctx, attendance.QueryFilter{TeacherID: teacherID, Date: "2026-02-13"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("teacher+date filter: %d records, want 2", len(records))
	}

	records, err = ledger.Query(ctx, attendance.QueryFilter{StudentID: a})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("student filter: %d records, want 3", len(records))
	}
}

func TestDeleteTeacherCascades(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	students := NewRosterRepository(pool, testDim)
	teachers := NewTeacherRepository(pool)
	ledger := NewAttendanceRepository(pool)

	teacherID := seedTeacher(t, teachers)
	studentID := seedStudent(t, students, "1BA21CS001", nil)
	key := attendance.SessionKey{TeacherID: teacherID, Subject: "Operating Systems", Date: "2026-02-13"}
	if err := ledger.Upsert(ctx, studentID, key, attendance.StatusPresent); err != nil {
		t.Fatal(err)
	}

	if err := teachers.DeleteTeacher(ctx, teacherID); err != nil {
		t.Fatalf("DeleteTeacher: %v", err)
	}

	records, err := ledger.Query(ctx, attendance.QueryFilter{TeacherID: teacherID})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("attendance rows survived teacher delete: %d", len(records))
	}

	if tr, err := teachers.GetTeacher(ctx, teacherID); err != nil || tr != nil {
		t.Errorf("GetTeacher after delete = %v, %v; want nil, nil", tr, err)
	}
}
