package checkout

import (
	"context"
	"log"
)

// Saga collects the inverse of every committed step of a checkout attempt.
// There is no transaction coordinator here: on failure the recorded
// compensations run in reverse order, each independently, and a compensation
// that fails is logged and skipped. Operators reconcile leftovers out of band.
type Saga struct {
	steps []sagaStep
}

type sagaStep struct {
	label string
	undo  func(context.Context) error
}

// Record registers the compensation for a step that just committed.
func (s *Saga) Record(label string, undo func(context.Context) error) {
	s.steps = append(s.steps, sagaStep{label: label, undo: undo})
}

// Len reports how many committed steps would be compensated.
func (s *Saga) Len() int { return len(s.steps) }

// Compensate undoes all recorded steps, newest first. Best effort: a failed
// compensation does not stop the rest.
func (s *Saga) Compensate(ctx context.Context) {
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.undo(ctx); err != nil {
			log.Printf("[rollback] compensation %q failed: %v", st.label, err)
		}
	}
	s.steps = nil
}
