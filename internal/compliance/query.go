package compliance

import (
	"strings"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region constants

// maxQueryRunes caps the retrieval query length. Knowledge stores truncate
// long queries anyway; capping here keeps the cut point deterministic.
const maxQueryRunes = 2000

// generalGuidelinesQuery is the fixed fallback query used when the
// content-derived query retrieves nothing.
const generalGuidelinesQuery = "general brand safety guidelines compliance rules disclosures"

// #endregion constants

// #region build-query

// BuildQuery derives the retrieval query from the extraction record:
// spoken content first, then on-screen text. Identical extraction input
// always yields the identical query, keeping audits reproducible.
func BuildQuery(rec *audit.ExtractionRecord) string {
	parts := make([]string, 0, len(rec.Transcript)+len(rec.OnscreenText))
	for _, u := range rec.Transcript {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	for _, f := range rec.OnscreenText {
		if f.Text != "" {
			parts = append(parts, f.Text)
		}
	}

	query := strings.Join(parts, " ")
	runes := []rune(query)
	if len(runes) > maxQueryRunes {
		query = string(runes[:maxQueryRunes])
	}
	return query
}

// #endregion build-query
