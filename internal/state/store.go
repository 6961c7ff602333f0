package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS audit_runs (
	run_id           TEXT PRIMARY KEY,
	source_reference TEXT NOT NULL,
	storage_locator  TEXT,
	run_state        TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	finished_at      TEXT,
	extraction_json  TEXT,
	rules_json       TEXT,
	errors_json      TEXT
);

CREATE TABLE IF NOT EXISTS reports (
	run_id           TEXT PRIMARY KEY,
	verdict          TEXT NOT NULL,
	violations_json  TEXT NOT NULL,
	summary          TEXT,
	raw_model_output TEXT,
	created_at       TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES audit_runs(run_id)
);

CREATE TABLE IF NOT EXISTS run_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	event      TEXT NOT NULL,
	detail     TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES audit_runs(run_id)
);
`
// #endregion schema

// #region store-struct
// Store persists audit runs, reports, and their event trail in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region create-run
// CreateRun inserts a new run row in its initial state.
func (s *Store) CreateRun(runID, sourceRef string) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_runs (run_id, source_reference, run_state, created_at)
		 VALUES (?, ?, ?, ?)`,
		runID, sourceRef, "INGESTING", time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}
// #endregion create-run

// #region finish-run
// FinishRun records the terminal state of a run and, when present, its
// report, atomically.
func (s *Store) FinishRun(st audit.WorkflowState, runState string) error {
	extractionJSON, err := marshalExtraction(st.Extraction)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	rulesJSON, err := marshalNonEmpty(len(st.RetrievedRules), st.RetrievedRules)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	errorsJSON, err := marshalNonEmpty(len(st.Errors), st.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE audit_runs
		 SET run_state = ?, finished_at = ?, storage_locator = ?, extraction_json = ?, rules_json = ?, errors_json = ?
		 WHERE run_id = ?`,
		runState, now, nullIfEmpty(st.StorageLocator), nullIfEmpty(extractionJSON),
		nullIfEmpty(rulesJSON), nullIfEmpty(errorsJSON), st.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	if st.Report != nil {
		violationsJSON, err := json.Marshal(st.Report.Violations)
		if err != nil {
			return fmt.Errorf("marshal violations: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO reports (run_id, verdict, violations_json, summary, raw_model_output, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(run_id) DO UPDATE SET
			   verdict = excluded.verdict,
			   violations_json = excluded.violations_json,
			   summary = excluded.summary,
			   raw_model_output = excluded.raw_model_output`,
			st.RunID, string(st.Report.Verdict), string(violationsJSON),
			nullIfEmpty(st.Report.Summary), nullIfEmpty(st.Report.RawModelOutput), now,
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
	}

	return tx.Commit()
}
// #endregion finish-run

// #region log-event
// LogEvent appends a stage-tagged event to the run trail.
func (s *Store) LogEvent(runID string, stage audit.Stage, event, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO run_events (run_id, stage, event, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, string(stage), event, nullIfEmpty(detail),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}
// #endregion log-event

// #region get-run
// GetRun retrieves a run with its report (if any).
func (s *Store) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord
	var locator, finished, extractionJSON, rulesJSON, errorsJSON sql.NullString
	var createdStr string

	err := s.db.QueryRow(
		`SELECT run_id, source_reference, storage_locator, run_state, created_at, finished_at,
		        extraction_json, rules_json, errors_json
		 FROM audit_runs WHERE run_id = ?`, runID,
	).Scan(&rec.RunID, &rec.SourceReference, &locator, &rec.RunState, &createdStr,
		&finished, &extractionJSON, &rulesJSON, &errorsJSON)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}

	rec.StorageLocator = locator.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if finished.Valid {
		t, _ := time.Parse(time.RFC3339Nano, finished.String)
		rec.FinishedAt = &t
	}
	if extractionJSON.Valid {
		rec.Extraction = &audit.ExtractionRecord{}
		if err := json.Unmarshal([]byte(extractionJSON.String), rec.Extraction); err != nil {
			return RunRecord{}, fmt.Errorf("unmarshal extraction: %w", err)
		}
	}
	if rulesJSON.Valid {
		if err := json.Unmarshal([]byte(rulesJSON.String), &rec.RetrievedRules); err != nil {
			return RunRecord{}, fmt.Errorf("unmarshal rules: %w", err)
		}
	}
	if errorsJSON.Valid {
		if err := json.Unmarshal([]byte(errorsJSON.String), &rec.Errors); err != nil {
			return RunRecord{}, fmt.Errorf("unmarshal errors: %w", err)
		}
	}

	report, err := s.getReport(runID)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Report = report

	return rec, nil
}

func (s *Store) getReport(runID string) (*audit.ComplianceReport, error) {
	var verdict, violationsJSON string
	var summary, rawOutput sql.NullString

	err := s.db.QueryRow(
		`SELECT verdict, violations_json, summary, raw_model_output FROM reports WHERE run_id = ?`, runID,
	).Scan(&verdict, &violationsJSON, &summary, &rawOutput)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", runID, err)
	}

	report := &audit.ComplianceReport{
		Verdict:        audit.Verdict(verdict),
		Summary:        summary.String,
		RawModelOutput: rawOutput.String,
	}
	if err := json.Unmarshal([]byte(violationsJSON), &report.Violations); err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}
	return report, nil
}
// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first, without the heavy
// JSON columns.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT r.run_id, r.source_reference, r.run_state, r.created_at, COALESCE(p.verdict, '')
		 FROM audit_runs r LEFT JOIN reports p ON p.run_id = r.run_id
		 ORDER BY r.created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var sum RunSummary
		var createdStr string
		if err := rows.Scan(&sum.RunID, &sum.SourceReference, &sum.RunState, &createdStr, &sum.Verdict); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, sum)
	}
	return out, rows.Err()
}
// #endregion list-runs

// #region list-events
// ListEvents returns a run's event trail in insertion order.
func (s *Store) ListEvents(runID string) ([]RunEvent, error) {
	rows, err := s.db.Query(
		`SELECT stage, event, detail, created_at FROM run_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var ev RunEvent
		var detail sql.NullString
		var createdStr string
		if err := rows.Scan(&ev.Stage, &ev.Event, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ev.Detail = detail.String
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, ev)
	}
	return out, rows.Err()
}
// #endregion list-events

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func marshalExtraction(rec *audit.ExtractionRecord) (string, error) {
	if rec == nil {
		return "", nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalNonEmpty(n int, v interface{}) (string, error) {
	if n == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
// #endregion helpers
