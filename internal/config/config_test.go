package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
storage:
  root: /tmp/brandguard-data
analyzer:
  base_url: http://analyzer:9000
  timeout: 5m
search:
  base_url: http://search:9200
  top_k: 5
model:
  base_url: http://ollama:11434
  name: llama3
ingest:
  ocr_confidence_threshold: 0.6
  dedupe_window: 3s
server:
  addr: ":9090"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brandguard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Root != "/tmp/brandguard-data" {
		t.Errorf("storage root = %q", cfg.Storage.Root)
	}
	if cfg.Database.Path != "brandguard.db" {
		t.Errorf("database default not applied: %q", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
	if *cfg.Search.TopK != 5 {
		t.Errorf("top_k = %d", *cfg.Search.TopK)
	}
	if *cfg.Ingest.OCRConfidenceThreshold != 0.6 {
		t.Errorf("threshold = %f", *cfg.Ingest.OCRConfidenceThreshold)
	}
	if cfg.Ingest.DedupeWindowDuration() != 3*time.Second {
		t.Errorf("dedupe window = %s", cfg.Ingest.DedupeWindowDuration())
	}
	if cfg.Analyzer.TimeoutOr(time.Minute) != 5*time.Minute {
		t.Errorf("analyzer timeout = %s", cfg.Analyzer.TimeoutOr(time.Minute))
	}
	if cfg.Search.TimeoutOr(30*time.Second) != 30*time.Second {
		t.Errorf("unset timeout should fall back, got %s", cfg.Search.TimeoutOr(30*time.Second))
	}
}

func TestLoadMissingTopK(t *testing.T) {
	body := strings.Replace(validYAML, "  top_k: 5\n", "", 1)
	_, err := Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "top_k") {
		t.Errorf("expected top_k error, got %v", err)
	}
}

func TestLoadMissingThreshold(t *testing.T) {
	body := strings.Replace(validYAML, "  ocr_confidence_threshold: 0.6\n", "", 1)
	_, err := Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "ocr_confidence_threshold") {
		t.Errorf("expected threshold error, got %v", err)
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	cases := []struct{ old, new, want string }{
		{"top_k: 5", "top_k: 0", "top_k"},
		{"ocr_confidence_threshold: 0.6", "ocr_confidence_threshold: 1.5", "ocr_confidence_threshold"},
		{"dedupe_window: 3s", "dedupe_window: soon", "dedupe_window"},
	}
	for _, tc := range cases {
		body := strings.Replace(validYAML, tc.old, tc.new, 1)
		_, err := Load(writeConfig(t, body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error mentioning %q, got %v", tc.new, tc.want, err)
		}
	}
}

func TestLoadMissingServiceURLs(t *testing.T) {
	for _, field := range []string{"analyzer", "search", "model"} {
		body := strings.Replace(validYAML, "  base_url: http://"+field, "  base_url_off: http://"+field, 1)
		_, err := Load(writeConfig(t, body))
		if err == nil || !strings.Contains(err.Error(), field+".base_url") {
			t.Errorf("%s: expected base_url error, got %v", field, err)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BRANDGUARD_MODEL_URL", "http://other:11434")
	t.Setenv("BRANDGUARD_MODEL_NAME", "mistral")
	t.Setenv("BRANDGUARD_DB", "/tmp/override.db")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.BaseURL != "http://other:11434" {
		t.Errorf("model url = %q", cfg.Model.BaseURL)
	}
	if cfg.Model.Name != "mistral" {
		t.Errorf("model name = %q", cfg.Model.Name)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
