package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region labels

// ExcerptLabel returns the reference label for the i-th ranked excerpt
// ("R1", "R2", ...). Violations must cite one of these labels or the
// excerpt's source document ID.
func ExcerptLabel(i int) string {
	return fmt.Sprintf("R%d", i+1)
}

// referenceSet builds the set of citations the model is allowed to use.
func referenceSet(excerpts []audit.RuleExcerpt) map[string]bool {
	refs := make(map[string]bool, len(excerpts)*2)
	for i, ex := range excerpts {
		refs[ExcerptLabel(i)] = true
		if ex.SourceDocumentID != "" {
			refs[ex.SourceDocumentID] = true
		}
	}
	return refs
}

// #endregion labels

// #region prompt

// BuildPrompt constructs the strict-grounding audit prompt: the ranked
// excerpts are the only rule authority, the extraction record is the
// evidence, and the model must cite an excerpt label for every finding.
func BuildPrompt(excerpts []audit.RuleExcerpt, rec *audit.ExtractionRecord) string {
	var b strings.Builder

	b.WriteString("You are a brand compliance auditor.\n\n")
	b.WriteString("RULE EXCERPTS (the only rule authority for this audit):\n")
	for i, ex := range excerpts {
		fmt.Fprintf(&b, "[%s] (source: %s) %s\n", ExcerptLabel(i), ex.SourceDocumentID, ex.Text)
	}

	b.WriteString("\nVIDEO EVIDENCE UNDER EVALUATION:\n")
	fmt.Fprintf(&b, "Duration: %s\n", rec.Duration)
	if rec.PlatformHint != "" {
		fmt.Fprintf(&b, "Platform: %s\n", rec.PlatformHint)
	}

	if rec.HasSpeech() {
		b.WriteString("Transcript:\n")
		for _, u := range rec.Transcript {
			if u.Text == "" {
				continue
			}
			speaker := u.Speaker
			if speaker == "" {
				speaker = "?"
			}
			fmt.Fprintf(&b, "  [%s] speaker %s: %s\n", formatOffset(u.Start), speaker, u.Text)
		}
	} else {
		b.WriteString("Transcript: none detected; evaluate on-screen text only.\n")
	}

	if len(rec.OnscreenText) > 0 {
		b.WriteString("On-screen text:\n")
		for _, f := range rec.OnscreenText {
			fmt.Fprintf(&b, "  [%s] (%s) %s\n", formatOffset(f.Start), f.Source, f.Text)
		}
	} else {
		b.WriteString("On-screen text: none detected.\n")
	}

	b.WriteString(`
INSTRUCTIONS:
1. Decide per potential violation category whether the evidence violates any rule excerpt above.
2. Every violation must cite the excerpt label (e.g. "R1") that justifies it.
3. Use ONLY the rule excerpts above. Do not apply rules from outside knowledge.
4. Reply with strictly this JSON and nothing else:
{
  "verdict": "COMPLIANT" | "NON_COMPLIANT" | "NEEDS_REVIEW",
  "violations": [
    {"rule_reference": "R1", "severity": "CRITICAL", "explanation": "...", "evidence_excerpt": "..."}
  ],
  "summary": "one-paragraph summary of findings"
}
If there are no violations, "verdict" is "COMPLIANT" and "violations" is [].
`)

	return b.String()
}

// correctiveInstruction is appended for the single parse-failure retry.
const correctiveInstruction = "\nYour previous reply could not be parsed. Reply again with ONLY the JSON object described above: no markdown fences, no commentary, verdict must be exactly COMPLIANT, NON_COMPLIANT, or NEEDS_REVIEW.\n"

func formatOffset(d time.Duration) string {
	return d.Truncate(100 * time.Millisecond).String()
}

// #endregion prompt
