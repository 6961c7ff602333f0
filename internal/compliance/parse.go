package compliance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region wire-types

type modelReport struct {
	Verdict    string           `json:"verdict"`
	Violations []modelViolation `json:"violations"`
	Summary    string           `json:"summary"`
}

type modelViolation struct {
	RuleReference   string `json:"rule_reference"`
	Severity        string `json:"severity"`
	Explanation     string `json:"explanation"`
	EvidenceExcerpt string `json:"evidence_excerpt"`
}

// #endregion wire-types

// #region parse

// ParseReport parses raw model output into a ComplianceReport and enforces
// the grounding-integrity check: violations citing references not present
// in refs are dropped and returned separately, never silently accepted.
// A non-nil error means the structure itself was unusable and the caller
// should apply its corrective retry.
func ParseReport(raw string, refs map[string]bool) (audit.ComplianceReport, []audit.Violation, error) {
	payload := stripCodeFence(raw)

	var wire modelReport
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return audit.ComplianceReport{}, nil, fmt.Errorf("parse model output: %w", err)
	}

	verdict, ok := audit.ParseVerdict(strings.TrimSpace(wire.Verdict))
	if !ok {
		return audit.ComplianceReport{}, nil, fmt.Errorf("parse model output: verdict %q is not one of the three known values", wire.Verdict)
	}
	if verdict == audit.VerdictCompliant && len(wire.Violations) > 0 {
		return audit.ComplianceReport{}, nil, fmt.Errorf("parse model output: COMPLIANT verdict with %d violations", len(wire.Violations))
	}

	var grounded, ungrounded []audit.Violation
	for i, v := range wire.Violations {
		if v.RuleReference == "" || v.Explanation == "" {
			return audit.ComplianceReport{}, nil, fmt.Errorf("parse model output: violation %d missing rule_reference or explanation", i)
		}
		violation := audit.Violation{
			RuleReference:   v.RuleReference,
			Severity:        v.Severity,
			Explanation:     v.Explanation,
			EvidenceExcerpt: v.EvidenceExcerpt,
		}
		if refs[v.RuleReference] {
			grounded = append(grounded, violation)
		} else {
			ungrounded = append(ungrounded, violation)
		}
	}

	report := audit.ComplianceReport{
		Verdict:    verdict,
		Violations: grounded,
		Summary:    strings.TrimSpace(wire.Summary),
	}

	// A NON_COMPLIANT verdict resting entirely on ungrounded citations has
	// no usable findings left; demote to NEEDS_REVIEW.
	if verdict == audit.VerdictNonCompliant && len(grounded) == 0 && len(ungrounded) > 0 {
		report.Verdict = audit.VerdictNeedsReview
	}

	return report, ungrounded, nil
}

// #endregion parse

// #region fence

// stripCodeFence unwraps ```json fenced blocks that models often emit
// around structured output.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	s = s[start+3:]
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		head := strings.TrimSpace(s[:nl])
		if head == "json" || head == "" {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// #endregion fence
