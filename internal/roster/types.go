// Package roster holds the student roster domain types and the deterministic
// USN-based ordering used by listings and attendance reports.
package roster

// Student is one enrolled (or enrollable) roster member. Encoding is nil
// until a face has been enrolled for the student.
type Student struct {
	ID       int64
	Name     string
	USN      string
	Semester int
	Encoding []float32 // face embedding, nil if not yet enrolled
	Dim      int       // dimensionality recorded at enrollment time
}

// Enrolled reports whether the student has a usable face encoding.
func (s *Student) Enrolled() bool {
	return len(s.Encoding) > 0
}

// Teacher owns attendance sessions. Deleting a teacher cascades to their
// attendance records.
type Teacher struct {
	ID       int64
	Name     string
	Username string
	Subject  string
}
