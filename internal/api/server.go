package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/brandguardian/go-auditor/internal/audit"
	"github.com/brandguardian/go-auditor/internal/workflow"
)

// #region runner

// Runner executes one isolated audit run per request.
type Runner interface {
	Audit(ctx context.Context, sourceRef string) (audit.WorkflowState, workflow.RunState)
}

// #endregion runner

// #region wire-types

type auditRequest struct {
	SourceReference string `json:"source_reference"`
}

type auditResponse struct {
	RunID    string                  `json:"run_id"`
	RunState string                  `json:"run_state"`
	Report   *audit.ComplianceReport `json:"report,omitempty"`
	Errors   []audit.StageError      `json:"errors,omitempty"`
}

// #endregion wire-types

// #region server

// Server is the caller-facing HTTP surface.
type Server struct {
	runner Runner
}

// NewServer creates the API server over the given runner.
func NewServer(runner Runner) *Server {
	return &Server{runner: runner}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /audit", s.handleAudit)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// ListenAndServe serves until the listener fails or ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	log.Printf("[API] listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// #endregion server

// #region handlers

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceReference == "" {
		http.Error(w, `{"error":"source_reference is required"}`, http.StatusBadRequest)
		return
	}

	st, runState := s.runner.Audit(r.Context(), req.SourceReference)

	resp := auditResponse{
		RunID:    st.RunID,
		RunState: string(runState),
		Report:   st.Report,
		Errors:   st.Errors,
	}
	status := http.StatusOK
	if runState == workflow.StateFailed {
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}

// #endregion handlers
