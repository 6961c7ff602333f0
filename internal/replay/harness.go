package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/brandguardian/go-auditor/internal/audit"
	"github.com/brandguardian/go-auditor/internal/compliance"
)

// #region scripted-clients

// scriptedSearcher replays the recorded excerpt set for every query.
type scriptedSearcher struct {
	excerpts []audit.RuleExcerpt
}

func (s *scriptedSearcher) Search(_ context.Context, _ string, topK int) ([]audit.RuleExcerpt, error) {
	if topK < len(s.excerpts) {
		return s.excerpts[:topK], nil
	}
	return s.excerpts, nil
}

// scriptedGenerator replays recorded model outputs in call order.
type scriptedGenerator struct {
	outputs []string
	calls   int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string) (string, error) {
	if g.calls >= len(g.outputs) {
		return "", fmt.Errorf("fixture exhausted after %d model output(s)", len(g.outputs))
	}
	out := g.outputs[g.calls]
	g.calls++
	return out, nil
}

// #endregion scripted-clients

// #region result

// Result is the outcome of replaying one fixture.
type Result struct {
	State        audit.WorkflowState
	Verdict      audit.Verdict
	VerdictMatch bool // false when the fixture declares no expectation too
	HasExpected  bool
}

// #endregion result

// #region replay

// Replay re-executes the compliance stage against the fixture and reports
// whether the verdict matches the recorded expectation.
func Replay(ctx context.Context, f *Fixture) (Result, error) {
	node := compliance.NewNode(
		&scriptedSearcher{excerpts: f.Excerpts},
		&scriptedGenerator{outputs: f.ModelOutputs},
		f.TopK,
	)

	extraction := f.Extraction
	st := audit.WorkflowState{
		RunID:           "replay",
		SourceReference: f.SourceReference,
		Extraction:      &extraction,
	}

	st, err := node.Run(ctx, st)
	if err != nil {
		return Result{State: st}, fmt.Errorf("replay compliance stage: %w", err)
	}
	if st.Report == nil {
		return Result{State: st}, fmt.Errorf("replay produced no report")
	}

	res := Result{
		State:       st,
		Verdict:     st.Report.Verdict,
		HasExpected: f.ExpectedVerdict != "",
	}
	res.VerdictMatch = res.HasExpected && res.Verdict == f.ExpectedVerdict
	return res, nil
}

// #endregion replay

// #region recorders

// RecordingSearcher wraps a live Searcher and captures what it returned so
// a run can be exported as a fixture afterwards.
type RecordingSearcher struct {
	Inner interface {
		Search(ctx context.Context, query string, topK int) ([]audit.RuleExcerpt, error)
	}

	mu       sync.Mutex
	excerpts []audit.RuleExcerpt
}

// Search delegates and records the last non-empty result set.
func (r *RecordingSearcher) Search(ctx context.Context, query string, topK int) ([]audit.RuleExcerpt, error) {
	out, err := r.Inner.Search(ctx, query, topK)
	if err == nil && len(out) > 0 {
		r.mu.Lock()
		r.excerpts = out
		r.mu.Unlock()
	}
	return out, err
}

// Excerpts returns the captured excerpt set.
func (r *RecordingSearcher) Excerpts() []audit.RuleExcerpt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.excerpts
}

// RecordingGenerator wraps a live Generator and captures raw outputs in
// call order.
type RecordingGenerator struct {
	Inner interface {
		Generate(ctx context.Context, prompt string) (string, error)
	}

	mu      sync.Mutex
	outputs []string
}

// Generate delegates and records the raw output.
func (r *RecordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := r.Inner.Generate(ctx, prompt)
	if err == nil {
		r.mu.Lock()
		r.outputs = append(r.outputs, out)
		r.mu.Unlock()
	}
	return out, err
}

// Outputs returns the captured model outputs.
func (r *RecordingGenerator) Outputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputs
}

// #endregion recorders
