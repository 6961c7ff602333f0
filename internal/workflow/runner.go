package workflow

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/brandguardian/go-auditor/internal/audit"
	"github.com/brandguardian/go-auditor/internal/state"
)

// #region runner

// Runner executes complete audit runs and persists them. Each call owns an
// isolated WorkflowState, so concurrent callers never share mutable state.
type Runner struct {
	seq   *Sequencer
	store *state.Store // nil disables persistence
}

// NewRunner creates a runner. store may be nil for ephemeral runs.
func NewRunner(seq *Sequencer, store *state.Store) *Runner {
	return &Runner{seq: seq, store: store}
}

// #endregion runner

// #region audit

// Audit runs the full workflow for sourceRef and returns the final state
// and terminal run state. Persistence failures are logged, not fatal: the
// audit result matters more than the trail.
func (r *Runner) Audit(ctx context.Context, sourceRef string) (audit.WorkflowState, RunState) {
	st := audit.WorkflowState{
		RunID:           uuid.New().String(),
		SourceReference: sourceRef,
	}

	if r.store != nil {
		if err := r.store.CreateRun(st.RunID, sourceRef); err != nil {
			log.Printf("[RUN] %s: create run: %v", st.RunID, err)
		}
	}

	st, runState := r.seq.Run(ctx, st)

	if r.store != nil {
		for _, serr := range st.Errors {
			if err := r.store.LogEvent(st.RunID, serr.Stage, string(serr.Kind), serr.Detail); err != nil {
				log.Printf("[RUN] %s: log event: %v", st.RunID, err)
			}
		}
		if err := r.store.FinishRun(st, string(runState)); err != nil {
			log.Printf("[RUN] %s: finish run: %v", st.RunID, err)
		}
	}

	return st, runState
}

// #endregion audit
