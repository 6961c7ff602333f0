package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region fixture-types

// Fixture captures everything the compliance stage consumed during a run:
// the extraction record, the excerpts the knowledge store returned, and the
// raw model outputs in call order. Replaying it re-executes the compliance
// stage offline with no collaborator traffic.
type Fixture struct {
	Description     string                 `json:"description,omitempty"`
	SourceReference string                 `json:"source_reference"`
	Extraction      audit.ExtractionRecord `json:"extraction"`
	Excerpts        []audit.RuleExcerpt    `json:"excerpts"`
	ModelOutputs    []string               `json:"model_outputs"`
	TopK            int                    `json:"top_k"`
	ExpectedVerdict audit.Verdict          `json:"expected_verdict,omitempty"`
}

// #endregion fixture-types

// #region load-save

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.TopK < 1 {
		return nil, fmt.Errorf("fixture %s: top_k must be >= 1", path)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion load-save
