package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/class-attend/internal/roster"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph. The roster is
// small (hundreds of students) so a modest value is plenty.
const hnswMaxNeighbors = 16

// EncodingIndex is an in-memory HNSW index over enrolled student encodings.
// It backs the enrollment near-duplicate check: before storing a new
// encoding, the caller asks for the nearest already-enrolled student and
// warns when a different student is suspiciously close. Matching itself
// does NOT use this index; the matcher runs an exact nearest-neighbor scan
// so that threshold semantics stay deterministic.
type EncodingIndex struct {
	graph       *hnsw.Graph[int64]
	idToStudent map[int64]*roster.Student
	mu          sync.RWMutex
}

// NewEncodingIndex creates an empty index.
func NewEncodingIndex() *EncodingIndex {
	return &EncodingIndex{
		idToStudent: make(map[int64]*roster.Student),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// BuildFromRoster (re)builds the index from a roster snapshot. Students
// without an encoding are skipped.
func (x *EncodingIndex) BuildFromRoster(students []roster.Student) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.idToStudent = make(map[int64]*roster.Student, len(students))
	if len(students) == 0 {
		x.graph = nil
		return
	}

	g := newGraph()
	for i := range students {
		s := &students[i]
		if !s.Enrolled() {
			continue
		}
		g.Add(hnsw.MakeNode(s.ID, s.Encoding))
		x.idToStudent[s.ID] = s
	}
	x.graph = g
}

// Add inserts or replaces a single student's encoding.
func (x *EncodingIndex) Add(s *roster.Student) {
	if !s.Enrolled() {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		x.graph = newGraph()
	}
	x.graph.Add(hnsw.MakeNode(s.ID, s.Encoding))
	x.idToStudent[s.ID] = s
}

// Count returns the number of indexed encodings.
func (x *EncodingIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToStudent)
}

// NearestOther finds the enrolled student nearest to the query encoding,
// excluding excludeID (so a re-enrollment does not report the student
// themselves). Returns an error when the index is empty.
func (x *EncodingIndex) NearestOther(query []float32, excludeID int64) (*roster.Student, float64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || len(x.idToStudent) == 0 {
		return nil, 0, errors.New("index is empty")
	}

	// Ask for one extra neighbor in case the nearest is the excluded one.
	neighbors := x.graph.Search(query, 2)
	for _, n := range neighbors {
		if n.Key == excludeID {
			continue
		}
		s, ok := x.idToStudent[n.Key]
		if !ok {
			continue
		}
		return s, float64(hnsw.EuclideanDistance(query, n.Value)), nil
	}
	return nil, 0, errors.New("no other enrolled student")
}
