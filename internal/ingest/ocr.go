package ingest

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region merge

// MergeOnscreenText applies the OCR fallback policy and returns the
// sanitized fragment sequence plus the path taken ("primary" or "fallback").
//
// The primary detector wins when it produced at least one usable fragment
// (non-empty after sanitation, confidence at or above the threshold);
// otherwise the fallback detector's fragments are used. The chosen set is
// sorted by start offset, sanitized, and de-duplicated. The whole merge is
// deterministic: identical inputs always yield identical output.
func MergeOnscreenText(primary, fallback []audit.TextFragment, confidenceThreshold float64, dedupeWindow time.Duration) ([]audit.TextFragment, string) {
	usable := usablePrimary(primary, confidenceThreshold)
	if len(usable) > 0 {
		return sanitizeFragments(usable, dedupeWindow), string(audit.SourcePrimary)
	}
	return sanitizeFragments(fallback, dedupeWindow), string(audit.SourceFallback)
}

func usablePrimary(primary []audit.TextFragment, threshold float64) []audit.TextFragment {
	var kept []audit.TextFragment
	for _, f := range primary {
		if f.Confidence < threshold {
			continue
		}
		if SanitizeText(f.Text) == "" {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// #endregion merge

// #region sanitize

// sanitizeFragments orders fragments by start offset, sanitizes each text,
// drops empties, and removes consecutive identical fragments whose start
// falls within dedupeWindow of the previously kept fragment.
func sanitizeFragments(frags []audit.TextFragment, dedupeWindow time.Duration) []audit.TextFragment {
	sorted := make([]audit.TextFragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]audit.TextFragment, 0, len(sorted))
	for _, f := range sorted {
		f.Text = SanitizeText(f.Text)
		if f.Text == "" {
			continue
		}
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Text == f.Text && f.Start-prev.Start <= dedupeWindow {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// SanitizeText strips control characters and collapses runs of whitespace
// into single spaces. Idempotent: sanitizing sanitized text is a no-op.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// #endregion sanitize
