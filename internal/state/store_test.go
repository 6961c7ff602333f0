package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/brandguardian/go-auditor/internal/audit"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func finishedState() audit.WorkflowState {
	return audit.WorkflowState{
		RunID:           "run-1",
		SourceReference: "https://youtu.be/abc",
		StorageLocator:  "media/vid_abc.mp4",
		Extraction: &audit.ExtractionRecord{
			Transcript: []audit.Utterance{
				{Speaker: "1", Start: 0, End: 2 * time.Second, Text: "order today"},
			},
			Duration: 30 * time.Second,
		},
		RetrievedRules: []audit.RuleExcerpt{
			{Text: "disclaimers required", SourceDocumentID: "doc-1", RelevanceScore: 0.9},
		},
		Report: &audit.ComplianceReport{
			Verdict: audit.VerdictNonCompliant,
			Violations: []audit.Violation{
				{RuleReference: "R1", Severity: "CRITICAL", Explanation: "missing disclaimer"},
			},
			Summary:        "one violation",
			RawModelOutput: `{"verdict":"NON_COMPLIANT"}`,
		},
		Errors: []audit.StageError{
			{Stage: audit.StageCompliance, Kind: audit.ErrParse, Detail: "dropped 1 ungrounded violation"},
		},
	}
}

func TestRunRoundTrip(t *testing.T) {
	store := openTestStore(t)
	st := finishedState()

	if err := store.CreateRun(st.RunID, st.SourceReference); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.FinishRun(st, "DONE"); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	rec, err := store.GetRun(st.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.RunState != "DONE" {
		t.Errorf("run state = %q", rec.RunState)
	}
	if rec.StorageLocator != st.StorageLocator {
		t.Errorf("storage locator = %q", rec.StorageLocator)
	}
	if rec.FinishedAt == nil {
		t.Error("finished_at not set")
	}
	if rec.Extraction == nil || len(rec.Extraction.Transcript) != 1 {
		t.Fatalf("extraction not hydrated: %+v", rec.Extraction)
	}
	if rec.Extraction.Transcript[0].Text != "order today" {
		t.Errorf("transcript text = %q", rec.Extraction.Transcript[0].Text)
	}
	if len(rec.RetrievedRules) != 1 || rec.RetrievedRules[0].SourceDocumentID != "doc-1" {
		t.Errorf("rules not hydrated: %+v", rec.RetrievedRules)
	}
	if len(rec.Errors) != 1 || rec.Errors[0].Kind != audit.ErrParse {
		t.Errorf("errors not hydrated: %+v", rec.Errors)
	}
	if rec.Report == nil {
		t.Fatal("report not hydrated")
	}
	if rec.Report.Verdict != audit.VerdictNonCompliant {
		t.Errorf("verdict = %s", rec.Report.Verdict)
	}
	if len(rec.Report.Violations) != 1 || rec.Report.Violations[0].RuleReference != "R1" {
		t.Errorf("violations = %+v", rec.Report.Violations)
	}
	if rec.Report.RawModelOutput == "" {
		t.Error("raw model output dropped")
	}
}

func TestFinishRunWithoutReport(t *testing.T) {
	store := openTestStore(t)
	st := audit.WorkflowState{
		RunID:           "run-2",
		SourceReference: "https://x",
		Errors: []audit.StageError{
			{Stage: audit.StageIngestion, Kind: audit.ErrFetch, Detail: "status 403"},
		},
	}

	if err := store.CreateRun(st.RunID, st.SourceReference); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.FinishRun(st, "FAILED"); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	rec, err := store.GetRun(st.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.RunState != "FAILED" {
		t.Errorf("run state = %q", rec.RunState)
	}
	if rec.Report != nil {
		t.Errorf("unexpected report: %+v", rec.Report)
	}
	if rec.Extraction != nil {
		t.Errorf("unexpected extraction: %+v", rec.Extraction)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"run-a", "run-b"} {
		if err := store.CreateRun(id, "https://x/"+id); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		// Distinct created_at so ordering is deterministic.
		time.Sleep(2 * time.Millisecond)
	}
	st := finishedState()
	st.RunID = "run-b"
	if err := store.FinishRun(st, "DONE"); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-b" || runs[1].RunID != "run-a" {
		t.Errorf("order = %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].Verdict != string(audit.VerdictNonCompliant) {
		t.Errorf("joined verdict = %q", runs[0].Verdict)
	}
	if runs[1].Verdict != "" {
		t.Errorf("run without report should have empty verdict, got %q", runs[1].Verdict)
	}

	limited, err := store.ListRuns(1)
	if err != nil {
		t.Fatalf("list runs limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d rows", len(limited))
	}
}

func TestListEventsInOrder(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateRun("run-1", "https://x"); err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := store.LogEvent("run-1", audit.StageCompliance, "RETRIEVAL_ERROR", "status 500"); err != nil {
		t.Fatalf("log event: %v", err)
	}
	if err := store.LogEvent("run-1", audit.StageCompliance, "PARSE_ERROR", ""); err != nil {
		t.Fatalf("log event: %v", err)
	}

	events, err := store.ListEvents("run-1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != "RETRIEVAL_ERROR" || events[1].Event != "PARSE_ERROR" {
		t.Errorf("order = %s, %s", events[0].Event, events[1].Event)
	}
	if events[0].Detail != "status 500" {
		t.Errorf("detail = %q", events[0].Detail)
	}
	if events[1].Detail != "" {
		t.Errorf("empty detail round-trip = %q", events[1].Detail)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetRun("nope"); err == nil {
		t.Error("expected error for unknown run id")
	}
}
