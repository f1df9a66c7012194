// Package recognize matches detected face embeddings against the enrolled
// roster. It is pure computation: embeddings come in as opaque fixed-length
// vectors from the detector service, student encodings come in as a roster
// snapshot from the store.
package recognize

import (
	"github.com/kozaktomas/class-attend/internal/roster"
)

// Outcome describes what happened to a single detected face during matching.
type Outcome string

const (
	// OutcomeMatched means the face was credited to a student.
	OutcomeMatched Outcome = "matched"
	// OutcomeNoMatch means no enrolled encoding was within the threshold.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeDuplicate means the nearest student was already claimed by an
	// earlier face in the same batch; the face is dropped, not reassigned.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeBadDimension means the face embedding had the wrong
	// dimensionality and was skipped.
	OutcomeBadDimension Outcome = "bad_dimension"
)

// FaceResult is the per-face outcome of a match run.
type FaceResult struct {
	FaceIndex int
	Outcome   Outcome
	StudentID int64   // set when Outcome == OutcomeMatched
	USN       string  // set when Outcome == OutcomeMatched
	Distance  float64 // nearest distance, when a nearest neighbor existed
}

// Result is the outcome of matching one capture's faces against the roster.
type Result struct {
	Faces          []FaceResult
	EnrolledCount  int // roster entries with a usable encoding
	CorruptEntries int // roster entries excluded for bad stored encodings
}

// PresentSet returns the matched student IDs as a set. The set never
// contains duplicates and its size is at most len(Faces).
func (r *Result) PresentSet() map[int64]bool {
	present := make(map[int64]bool)
	for _, f := range r.Faces {
		if f.Outcome == OutcomeMatched {
			present[f.StudentID] = true
		}
	}
	return present
}

// MatchedCount returns the number of faces credited to a student.
func (r *Result) MatchedCount() int {
	n := 0
	for _, f := range r.Faces {
		if f.Outcome == OutcomeMatched {
			n++
		}
	}
	return n
}

// Matcher resolves detected embeddings to enrolled students by exact
// nearest-neighbor search under a strict distance threshold.
type Matcher struct {
	threshold float64
	dim       int
}

// NewMatcher creates a matcher. threshold is the L2 distance below which
// (strictly) a nearest neighbor counts as a match; dim is the expected
// embedding dimensionality.
func NewMatcher(threshold float64, dim int) *Matcher {
	return &Matcher{threshold: threshold, dim: dim}
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match resolves each detected embedding independently to its nearest
// enrolled encoding. A face matches only when its nearest distance is
// strictly below the threshold and the student has not already been claimed
// by an earlier face in the same batch (one student credited at most once
// per capture). Roster entries without an encoding are skipped; entries
// whose stored encoding has the wrong length are counted as corrupt and
// skipped. Faces with the wrong dimensionality are skipped individually.
//
// An empty roster or an empty face batch yields an empty result, not an
// error.
func (m *Matcher) Match(faces [][]float32, students []roster.Student) *Result {
	result := &Result{Faces: make([]FaceResult, 0, len(faces))}

	// Snapshot the usable candidates once per batch.
	type candidate struct {
		id  int64
		usn string
		enc []float32
	}
	candidates := make([]candidate, 0, len(students))
	for i := range students {
		s := &students[i]
		if !s.Enrolled() {
			continue
		}
		if len(s.Encoding) != m.dim {
			result.CorruptEntries++
			continue
		}
		candidates = append(candidates, candidate{id: s.ID, usn: s.USN, enc: s.Encoding})
	}
	result.EnrolledCount = len(candidates)

	claimed := make(map[int64]bool)
	for faceIdx, face := range faces {
		if len(face) != m.dim {
			result.Faces = append(result.Faces, FaceResult{
				FaceIndex: faceIdx,
				Outcome:   OutcomeBadDimension,
			})
			continue
		}

		best := -1
		bestDist := 0.0
		for i := range candidates {
			d := L2Distance(face, candidates[i].enc)
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}

		if best == -1 || bestDist >= m.threshold {
			fr := FaceResult{FaceIndex: faceIdx, Outcome: OutcomeNoMatch}
			if best != -1 {
				fr.Distance = bestDist
			}
			result.Faces = append(result.Faces, fr)
			continue
		}

		winner := candidates[best]
		if claimed[winner.id] {
			result.Faces = append(result.Faces, FaceResult{
				FaceIndex: faceIdx,
				Outcome:   OutcomeDuplicate,
				Distance:  bestDist,
			})
			continue
		}

		claimed[winner.id] = true
		result.Faces = append(result.Faces, FaceResult{
			FaceIndex: faceIdx,
			Outcome:   OutcomeMatched,
			StudentID: winner.id,
			USN:       winner.usn,
			Distance:  bestDist,
		})
	}

	return result
}
