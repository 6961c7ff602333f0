package audit

import "fmt"

// #region error-kind

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	ErrFetch     ErrorKind = "FETCH_ERROR"
	ErrStorage   ErrorKind = "STORAGE_ERROR"
	ErrAnalyzer  ErrorKind = "ANALYZER_ERROR"
	ErrRetrieval ErrorKind = "RETRIEVAL_ERROR"
	ErrModel     ErrorKind = "MODEL_ERROR"
	ErrParse     ErrorKind = "PARSE_ERROR"
)

// #endregion error-kind

// #region stage-error

// StageError is a stage-tagged failure descriptor appended to
// WorkflowState.Errors. Detail is kept alongside the wrapped cause so the
// descriptor survives JSON round-trips through the run store.
type StageError struct {
	Stage  Stage     `json:"stage"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
	Cause  error     `json:"-"`
}

// NewStageError wraps cause into a stage-tagged descriptor.
func NewStageError(stage Stage, kind ErrorKind, cause error) StageError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return StageError{Stage: stage, Kind: kind, Detail: detail, Cause: cause}
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Detail)
}

func (e StageError) Unwrap() error {
	return e.Cause
}

// #endregion stage-error
