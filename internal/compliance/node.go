package compliance

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region collaborators

// Searcher queries the external rule knowledge store.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]audit.RuleExcerpt, error)
}

// Generator invokes the language-model endpoint.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// #endregion collaborators

// #region node

// Node is the compliance stage: retrieve rules, prompt the model, parse
// the verdict. The stage degrades to NEEDS_REVIEW on retrieval or parse
// trouble; only unrecoverable model-endpoint errors fail the run.
type Node struct {
	search Searcher
	model  Generator
	topK   int
}

// NewNode creates a compliance node. topK is the operator-configured
// retrieval depth.
func NewNode(search Searcher, model Generator, topK int) *Node {
	return &Node{search: search, model: model, topK: topK}
}

// #endregion node

// #region run

// Run executes the compliance stage against st.Extraction. A non-nil error
// is returned only for unrecoverable model-endpoint failures; every other
// outcome produces a report.
func (n *Node) Run(ctx context.Context, st audit.WorkflowState) (audit.WorkflowState, error) {
	if st.Extraction == nil {
		serr := audit.NewStageError(audit.StageCompliance, audit.ErrRetrieval, fmt.Errorf("no extraction record"))
		return st.WithError(serr), serr
	}

	excerpts, st, degraded := n.retrieve(ctx, st)
	if degraded != nil {
		st.Report = degraded
		return st, nil
	}

	if len(excerpts) == 0 {
		log.Printf("[AUDIT] %s: zero excerpts retrieved, verdict=%s without model call", st.RunID, audit.VerdictNeedsReview)
		st.Report = &audit.ComplianceReport{
			Verdict: audit.VerdictNeedsReview,
			Summary: "No applicable rules could be retrieved from the knowledge store; the content was not evaluated against any rule set.",
		}
		return st, nil
	}

	ranked := RankExcerpts(excerpts)
	st.RetrievedRules = ranked
	refs := referenceSet(ranked)
	prompt := BuildPrompt(ranked, st.Extraction)

	report, st, err := n.generateAndParse(ctx, st, prompt, refs)
	if err != nil {
		return st, err
	}
	st.Report = report

	log.Printf("[AUDIT] %s: excerpts=%d verdict=%s violations=%d",
		st.RunID, len(ranked), report.Verdict, len(report.Violations))
	return st, nil
}

// #endregion run

// #region retrieve

// retrieve runs the content query, then the fixed general-guidelines
// fallback query when the first returns nothing. A retrieval failure
// degrades the run to NEEDS_REVIEW rather than failing it.
func (n *Node) retrieve(ctx context.Context, st audit.WorkflowState) ([]audit.RuleExcerpt, audit.WorkflowState, *audit.ComplianceReport) {
	query := BuildQuery(st.Extraction)
	if strings.TrimSpace(query) == "" {
		return nil, st, nil
	}

	excerpts, err := n.search.Search(ctx, query, n.topK)
	if err != nil {
		serr := audit.NewStageError(audit.StageCompliance, audit.ErrRetrieval, err)
		log.Printf("[AUDIT] %s: %v", st.RunID, serr)
		return nil, st.WithError(serr), &audit.ComplianceReport{
			Verdict: audit.VerdictNeedsReview,
			Summary: "Rule retrieval failed; the content could not be evaluated against the rule set.",
		}
	}

	if len(excerpts) == 0 {
		log.Printf("[AUDIT] %s: content query empty, trying general guidelines", st.RunID)
		excerpts, err = n.search.Search(ctx, generalGuidelinesQuery, n.topK)
		if err != nil {
			serr := audit.NewStageError(audit.StageCompliance, audit.ErrRetrieval, err)
			log.Printf("[AUDIT] %s: %v", st.RunID, serr)
			return nil, st.WithError(serr), &audit.ComplianceReport{
				Verdict: audit.VerdictNeedsReview,
				Summary: "Rule retrieval failed; the content could not be evaluated against the rule set.",
			}
		}
	}

	return excerpts, st, nil
}

// #endregion retrieve

// #region generate-parse

// generateAndParse calls the model and parses the verdict, with exactly one
// corrective retry on parse failure before degrading to NEEDS_REVIEW.
func (n *Node) generateAndParse(ctx context.Context, st audit.WorkflowState, prompt string, refs map[string]bool) (*audit.ComplianceReport, audit.WorkflowState, error) {
	raw, err := n.model.Generate(ctx, prompt)
	if err != nil {
		serr := audit.NewStageError(audit.StageCompliance, audit.ErrModel, err)
		log.Printf("[AUDIT] %s: %v", st.RunID, serr)
		return nil, st.WithError(serr), serr
	}

	report, ungrounded, perr := ParseReport(raw, refs)
	if perr != nil {
		log.Printf("[AUDIT] %s: parse failed, one corrective retry: %v", st.RunID, perr)
		raw, err = n.model.Generate(ctx, prompt+correctiveInstruction)
		if err != nil {
			serr := audit.NewStageError(audit.StageCompliance, audit.ErrModel, err)
			log.Printf("[AUDIT] %s: %v", st.RunID, serr)
			return nil, st.WithError(serr), serr
		}
		report, ungrounded, perr = ParseReport(raw, refs)
		if perr != nil {
			serr := audit.NewStageError(audit.StageCompliance, audit.ErrParse, perr)
			log.Printf("[AUDIT] %s: corrective retry also unparseable, degrading: %v", st.RunID, serr)
			st = st.WithError(serr)
			return &audit.ComplianceReport{
				Verdict:        audit.VerdictNeedsReview,
				Summary:        "Model output could not be parsed after a corrective retry; manual review required.",
				RawModelOutput: raw,
			}, st, nil
		}
	}

	if len(ungrounded) > 0 {
		serr := audit.NewStageError(audit.StageCompliance, audit.ErrParse,
			fmt.Errorf("dropped %d violation(s) citing excerpts not in the retrieved set", len(ungrounded)))
		log.Printf("[AUDIT] %s: %v", st.RunID, serr)
		st = st.WithError(serr)
	}

	report.RawModelOutput = raw
	return &report, st, nil
}

// #endregion generate-parse
