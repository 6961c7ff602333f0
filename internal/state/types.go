package state

import (
	"time"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region run-record
// RunRecord is a fully hydrated audit run row.
type RunRecord struct {
	RunID           string
	SourceReference string
	StorageLocator  string
	RunState        string
	CreatedAt       time.Time
	FinishedAt      *time.Time
	Extraction      *audit.ExtractionRecord
	RetrievedRules  []audit.RuleExcerpt
	Errors          []audit.StageError
	Report          *audit.ComplianceReport
}
// #endregion run-record

// #region run-summary
// RunSummary is the light listing row for run history.
type RunSummary struct {
	RunID           string
	SourceReference string
	RunState        string
	Verdict         string
	CreatedAt       time.Time
}
// #endregion run-summary

// #region run-event
// RunEvent is one stage-tagged entry in a run's event trail.
type RunEvent struct {
	Stage     string
	Event     string
	Detail    string
	CreatedAt time.Time
}
// #endregion run-event
