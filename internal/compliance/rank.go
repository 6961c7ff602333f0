package compliance

import (
	"sort"
	"strings"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region rank

// RankExcerpts orders excerpts by relevance score descending and drops
// duplicates: excerpts from the same source document whose normalized text
// overlaps (one contains the other) collapse into the higher-ranked one.
// Ties break on document ID then text so the order is fully deterministic.
func RankExcerpts(excerpts []audit.RuleExcerpt) []audit.RuleExcerpt {
	ranked := make([]audit.RuleExcerpt, len(excerpts))
	copy(ranked, excerpts)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		if ranked[i].SourceDocumentID != ranked[j].SourceDocumentID {
			return ranked[i].SourceDocumentID < ranked[j].SourceDocumentID
		}
		return ranked[i].Text < ranked[j].Text
	})

	out := make([]audit.RuleExcerpt, 0, len(ranked))
	for _, cand := range ranked {
		if normalizeExcerpt(cand.Text) == "" {
			continue
		}
		if overlapsKept(out, cand) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func overlapsKept(kept []audit.RuleExcerpt, cand audit.RuleExcerpt) bool {
	candNorm := normalizeExcerpt(cand.Text)
	for _, k := range kept {
		if k.SourceDocumentID != cand.SourceDocumentID {
			continue
		}
		keptNorm := normalizeExcerpt(k.Text)
		if strings.Contains(keptNorm, candNorm) || strings.Contains(candNorm, keptNorm) {
			return true
		}
	}
	return false
}

func normalizeExcerpt(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// #endregion rank
