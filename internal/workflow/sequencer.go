package workflow

import (
	"context"
	"log"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region run-state

// RunState is the sequencer's position in the two-step state machine.
type RunState string

const (
	StateIngesting RunState = "INGESTING"
	StateAuditing  RunState = "AUDITING"
	StateDone      RunState = "DONE"
	StateFailed    RunState = "FAILED"
)

// #endregion run-state

// #region stage-func

// StageFunc is one fallible workflow stage. It receives the current state
// and returns the extended state; a non-nil error halts the run.
type StageFunc func(ctx context.Context, st audit.WorkflowState) (audit.WorkflowState, error)

// #endregion stage-func

// #region sequencer

// Sequencer runs the fixed two-step pipeline: ingest, then comply. The
// topology is linear, so this is an ordered sequence of fallible calls
// with short-circuit on failure rather than a graph executor.
type Sequencer struct {
	ingest StageFunc
	comply StageFunc
}

// NewSequencer creates a sequencer over the two stage functions.
func NewSequencer(ingest, comply StageFunc) *Sequencer {
	return &Sequencer{ingest: ingest, comply: comply}
}

// Run executes the workflow. Any ingestion error transitions directly to
// FAILED without entering the compliance stage. Compliance degrades to a
// NEEDS_REVIEW report for everything except unrecoverable model-endpoint
// errors, so AUDITING normally ends in DONE. The final state is returned
// in both outcomes; DONE and FAILED differ by the presence of a report.
func (s *Sequencer) Run(ctx context.Context, st audit.WorkflowState) (audit.WorkflowState, RunState) {
	log.Printf("[FLOW] %s: %s", st.RunID, StateIngesting)
	st, err := s.ingest(ctx, st)
	if err != nil {
		log.Printf("[FLOW] %s: %s → %s", st.RunID, StateIngesting, StateFailed)
		return st, StateFailed
	}

	log.Printf("[FLOW] %s: %s → %s", st.RunID, StateIngesting, StateAuditing)
	st, err = s.comply(ctx, st)
	if err != nil {
		log.Printf("[FLOW] %s: %s → %s", st.RunID, StateAuditing, StateFailed)
		return st, StateFailed
	}

	log.Printf("[FLOW] %s: %s → %s", st.RunID, StateAuditing, StateDone)
	return st, StateDone
}

// #endregion sequencer
