package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brandguardian/go-auditor/internal/audit"
	"github.com/brandguardian/go-auditor/internal/workflow"
)

type fakeRunner struct {
	state    audit.WorkflowState
	runState workflow.RunState
	lastRef  string
}

func (r *fakeRunner) Audit(_ context.Context, sourceRef string) (audit.WorkflowState, workflow.RunState) {
	r.lastRef = sourceRef
	return r.state, r.runState
}

func TestAuditEndpointSuccess(t *testing.T) {
	runner := &fakeRunner{
		state: audit.WorkflowState{
			RunID: "run-1",
			Report: &audit.ComplianceReport{
				Verdict: audit.VerdictCompliant,
				Summary: "clean",
			},
		},
		runState: workflow.StateDone,
	}
	srv := httptest.NewServer(NewServer(runner).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/audit", "application/json",
		strings.NewReader(`{"source_reference":"https://youtu.be/abc"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if runner.lastRef != "https://youtu.be/abc" {
		t.Errorf("runner received %q", runner.lastRef)
	}

	var out auditResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RunID != "run-1" || out.RunState != "DONE" {
		t.Errorf("response = %+v", out)
	}
	if out.Report == nil || out.Report.Verdict != audit.VerdictCompliant {
		t.Errorf("report = %+v", out.Report)
	}
}

func TestAuditEndpointFailedRun(t *testing.T) {
	runner := &fakeRunner{
		state: audit.WorkflowState{
			RunID: "run-2",
			Errors: []audit.StageError{
				{Stage: audit.StageIngestion, Kind: audit.ErrFetch, Detail: "status 403"},
			},
		},
		runState: workflow.StateFailed,
	}
	srv := httptest.NewServer(NewServer(runner).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/audit", "application/json",
		strings.NewReader(`{"source_reference":"https://blocked"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var out auditResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RunState != "FAILED" || len(out.Errors) != 1 {
		t.Errorf("response = %+v", out)
	}
	if out.Errors[0].Kind != audit.ErrFetch {
		t.Errorf("error kind = %s", out.Errors[0].Kind)
	}
}

func TestAuditEndpointRejectsMissingSource(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeRunner{}).Handler())
	defer srv.Close()

	for _, body := range []string{`{}`, `not json`, `{"source_reference":""}`} {
		resp, err := http.Post(srv.URL+"/audit", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, resp.StatusCode)
		}
	}
}

func TestAuditEndpointMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/audit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
