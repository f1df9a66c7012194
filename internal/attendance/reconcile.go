package attendance

import (
	"context"
	"fmt"
	"sort"
)

// Ledger is the durable attendance store. Upsert must be atomic per key:
// concurrent calls carrying the same (student, teacher, subject, date) must
// resolve to a single row, never two.
type Ledger interface {
	// Upsert writes or overwrites the status for one student in one session.
	Upsert(ctx context.Context, studentID int64, key SessionKey, status Status) error
	// Query returns records matching the filter, for reporting.
	Query(ctx context.Context, filter QueryFilter) ([]Record, error)
}

// StudentFailure reports one student whose upsert failed during a
// reconciliation. Rows written before the failure stay committed.
type StudentFailure struct {
	StudentID int64
	Err       error
}

// Summary is the outcome of one reconciliation, suitable for user-facing
// feedback ("Attendance marked. Present: N of M.").
type Summary struct {
	Present int
	Absent  int
	Total   int
	Failed  []StudentFailure
}

// Ok reports whether every student's row was written.
func (s *Summary) Ok() bool {
	return len(s.Failed) == 0
}

// Reconciler writes one Present/Absent row per roster member for a session.
// It holds no state of its own; it is a transaction script over the ledger.
type Reconciler struct {
	ledger Ledger
}

// NewReconciler creates a reconciler over the given ledger.
func NewReconciler(ledger Ledger) *Reconciler {
	return &Reconciler{ledger: ledger}
}

// Reconcile records a presence decision for every student in rosterIDs:
// Present when the student is in the present set, Absent otherwise. Absence
// is a recorded fact, not an omission. The present set may come from face
// matching or from a manual roll call; the reconciler cannot tell.
//
// Each student's upsert is its own atomic unit. A storage failure for one
// student does not roll back the others; failures are collected in the
// summary. An empty roster is a no-op success.
func (r *Reconciler) Reconcile(ctx context.Context, key SessionKey, present map[int64]bool, rosterIDs []int64) (*Summary, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	// Upserts for distinct students are commutative; sorting just makes the
	// write order reproducible in logs.
	ids := append([]int64(nil), rosterIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summary := &Summary{Total: len(ids)}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			summary.Total--
			continue
		}
		seen[id] = true

		status := StatusAbsent
		if present[id] {
			status = StatusPresent
		}

		if err := r.ledger.Upsert(ctx, id, key, status); err != nil {
			summary.Failed = append(summary.Failed, StudentFailure{
				StudentID: id,
				Err:       fmt.Errorf("upsert student %d: %w", id, err),
			})
			continue
		}

		if status == StatusPresent {
			summary.Present++
		} else {
			summary.Absent++
		}
	}

	return summary, nil
}

// ReconcileRequireRoster is Reconcile for callers that consider an empty
// roster a mistake rather than a vacuous success.
func (r *Reconciler) ReconcileRequireRoster(ctx context.Context, key SessionKey, present map[int64]bool, rosterIDs []int64) (*Summary, error) {
	if len(rosterIDs) == 0 {
		return nil, ErrEmptyRoster
	}
	return r.Reconcile(ctx, key, present, rosterIDs)
}
