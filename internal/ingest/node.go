package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/brandguardian/go-auditor/internal/analyzer"
	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region collaborators

// Fetcher acquires raw media from a source reference.
type Fetcher interface {
	Fetch(ctx context.Context, sourceRef string) ([]byte, error)
}

// MediaStore persists media durably and returns a stable locator.
type MediaStore interface {
	Put(data []byte, suggestedName string) (string, error)
}

// Analyzer invokes the external multi-modal analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, locator string, opts analyzer.Options) (analyzer.Analysis, error)
}

// #endregion collaborators

// #region config

// Config holds ingestion tuning values. OCRConfidenceThreshold has no
// sensible universal default and must come from operator configuration.
type Config struct {
	OCRConfidenceThreshold float64
	DedupeWindow           time.Duration
}

// #endregion config

// #region node

// Node is the ingestion stage: fetch, store, analyze, normalize.
type Node struct {
	fetcher  Fetcher
	store    MediaStore
	analyzer Analyzer
	config   Config
}

// NewNode creates an ingestion node.
func NewNode(fetcher Fetcher, store MediaStore, az Analyzer, config Config) *Node {
	return &Node{fetcher: fetcher, store: store, analyzer: az, config: config}
}

// #endregion node

// #region run

// Run executes the ingestion stage. On success it returns a new state with
// StorageLocator and Extraction populated; on failure it returns the state
// with a stage-tagged error appended and a non-nil error so the sequencer
// halts before the compliance stage.
func (n *Node) Run(ctx context.Context, st audit.WorkflowState) (audit.WorkflowState, error) {
	if err := ctx.Err(); err != nil {
		return fail(st, audit.ErrFetch, err)
	}

	data, err := n.fetcher.Fetch(ctx, st.SourceReference)
	if err != nil {
		return fail(st, audit.ErrFetch, err)
	}

	locator, err := n.store.Put(data, mediaName(st.SourceReference))
	if err != nil {
		return fail(st, audit.ErrStorage, err)
	}
	st.StorageLocator = locator

	if err := ctx.Err(); err != nil {
		return fail(st, audit.ErrAnalyzer, err)
	}

	analysis, err := n.analyzer.Analyze(ctx, locator, analyzer.Options{
		Transcription: true,
		OCR:           true,
	})
	if err != nil {
		return fail(st, audit.ErrAnalyzer, err)
	}

	onscreen, path := MergeOnscreenText(analysis.PrimaryText, analysis.FallbackText, n.config.OCRConfidenceThreshold, n.config.DedupeWindow)

	extraction := &audit.ExtractionRecord{
		Transcript:   analysis.Transcript,
		OnscreenText: onscreen,
		Duration:     analysis.Duration,
		PlatformHint: platformHint(analysis.PlatformHint, st.SourceReference),
	}
	st.Extraction = extraction

	log.Printf("[INGEST] %s: utterances=%d fragments=%d (ocr_path=%s) duration=%s",
		st.RunID, len(extraction.Transcript), len(extraction.OnscreenText), path, extraction.Duration)

	return st, nil
}

func fail(st audit.WorkflowState, kind audit.ErrorKind, cause error) (audit.WorkflowState, error) {
	serr := audit.NewStageError(audit.StageIngestion, kind, cause)
	log.Printf("[INGEST] %s: %v", st.RunID, serr)
	return st.WithError(serr), serr
}

// #endregion run

// #region naming

// mediaName derives a stable object name from the source reference so
// re-running ingestion for the same source overwrites the same locator.
func mediaName(sourceRef string) string {
	sum := sha256.Sum256([]byte(sourceRef))
	return "vid_" + hex.EncodeToString(sum[:])[:16] + ".mp4"
}

func platformHint(fromAnalyzer, sourceRef string) string {
	if fromAnalyzer != "" {
		return fromAnalyzer
	}
	lower := strings.ToLower(sourceRef)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return "youtube"
	case strings.Contains(lower, "tiktok.com"):
		return "tiktok"
	case strings.Contains(lower, "instagram.com"):
		return "instagram"
	}
	return ""
}

// #endregion naming
