package audit

import "time"

// #region verdict

// Verdict is the compliance decision for an audited video.
type Verdict string

const (
	VerdictCompliant    Verdict = "COMPLIANT"
	VerdictNonCompliant Verdict = "NON_COMPLIANT"
	VerdictNeedsReview  Verdict = "NEEDS_REVIEW"
)

// ParseVerdict validates a raw verdict string against the three known values.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictCompliant, VerdictNonCompliant, VerdictNeedsReview:
		return Verdict(s), true
	}
	return "", false
}

// #endregion verdict

// #region stage

// Stage names the workflow stage an error or event originated from.
type Stage string

const (
	StageIngestion  Stage = "ingestion"
	StageCompliance Stage = "compliance"
)

// #endregion stage

// #region fragment-source

// FragmentSource tags which detection path produced an on-screen text fragment.
type FragmentSource string

const (
	SourcePrimary  FragmentSource = "primary"
	SourceFallback FragmentSource = "fallback"
)

// #endregion fragment-source

// #region extraction

// Utterance is one speaker-attributed transcript segment.
type Utterance struct {
	Speaker string        `json:"speaker"`
	Start   time.Duration `json:"start"`
	End     time.Duration `json:"end"`
	Text    string        `json:"text"`
}

// TextFragment is one detected on-screen text span.
type TextFragment struct {
	Text       string         `json:"text"`
	Start      time.Duration  `json:"start"`
	End        time.Duration  `json:"end"`
	Confidence float64        `json:"confidence"`
	Source     FragmentSource `json:"source"`
}

// ExtractionRecord is the canonical multi-modal signal set for one video.
// Time offsets are non-negative and non-decreasing within each sequence.
type ExtractionRecord struct {
	Transcript   []Utterance    `json:"transcript"`
	OnscreenText []TextFragment `json:"onscreen_text"`
	Duration     time.Duration  `json:"duration"`
	PlatformHint string         `json:"platform_hint,omitempty"`
}

// HasSpeech reports whether any transcript utterance carries text.
func (e *ExtractionRecord) HasSpeech() bool {
	for _, u := range e.Transcript {
		if u.Text != "" {
			return true
		}
	}
	return false
}

// #endregion extraction

// #region rule-excerpt

// RuleExcerpt is one retrieved fragment of rule/regulation text.
type RuleExcerpt struct {
	Text             string  `json:"text"`
	SourceDocumentID string  `json:"source_document_id"`
	RelevanceScore   float64 `json:"relevance_score"`
}

// #endregion rule-excerpt

// #region report

// Violation is one grounded compliance finding.
type Violation struct {
	RuleReference   string `json:"rule_reference"`
	Severity        string `json:"severity,omitempty"`
	Explanation     string `json:"explanation"`
	EvidenceExcerpt string `json:"evidence_excerpt,omitempty"`
}

// ComplianceReport is the final audit output.
// Invariant: VerdictCompliant implies Violations is empty.
type ComplianceReport struct {
	Verdict        Verdict     `json:"verdict"`
	Violations     []Violation `json:"violations"`
	Summary        string      `json:"summary,omitempty"`
	RawModelOutput string      `json:"raw_model_output,omitempty"`
}

// #endregion report

// #region workflow-state

// WorkflowState is the single state object threaded through the pipeline.
// Fields are append-only: once a stage populates its output, later stages
// only read it. One instance per run, owned by that run.
type WorkflowState struct {
	RunID           string             `json:"run_id"`
	SourceReference string             `json:"source_reference"`
	StorageLocator  string             `json:"storage_locator,omitempty"`
	Extraction      *ExtractionRecord  `json:"extraction,omitempty"`
	RetrievedRules  []RuleExcerpt      `json:"retrieved_rules,omitempty"`
	Report          *ComplianceReport  `json:"report,omitempty"`
	Errors          []StageError       `json:"errors,omitempty"`
}

// WithError returns a copy of the state with err appended.
func (s WorkflowState) WithError(err StageError) WorkflowState {
	s.Errors = append(s.Errors[:len(s.Errors):len(s.Errors)], err)
	return s
}

// #endregion workflow-state
