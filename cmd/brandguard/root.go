package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/brandguardian/go-auditor/internal/analyzer"
	"github.com/brandguardian/go-auditor/internal/compliance"
	"github.com/brandguardian/go-auditor/internal/config"
	"github.com/brandguardian/go-auditor/internal/fetch"
	"github.com/brandguardian/go-auditor/internal/ingest"
	"github.com/brandguardian/go-auditor/internal/llm"
	"github.com/brandguardian/go-auditor/internal/replay"
	"github.com/brandguardian/go-auditor/internal/search"
	"github.com/brandguardian/go-auditor/internal/state"
	"github.com/brandguardian/go-auditor/internal/storage"
	"github.com/brandguardian/go-auditor/internal/workflow"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "brandguard",
		Short:         "Video brand/regulatory compliance auditor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "brandguard.yaml", "Configuration file path")

	rootCmd.AddCommand(newAuditCommand(&configFlag))
	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newInspectCommand(&configFlag))
	rootCmd.AddCommand(newReplayCommand())

	return rootCmd
}

// #region wiring

// pipeline bundles the wired collaborators for one process.
type pipeline struct {
	cfg      config.Config
	store    *state.Store
	runner   *workflow.Runner
	searcher *replay.RecordingSearcher
	model    *replay.RecordingGenerator
}

// buildPipeline wires fetcher, storage, analyzer, search, and model clients
// from config. Search and model clients are wrapped in recorders so any run
// can be exported as a replay fixture.
func buildPipeline(cfg config.Config) (*pipeline, error) {
	store, err := state.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	media, err := storage.NewStore(cfg.Storage.Root)
	if err != nil {
		store.Close()
		return nil, err
	}

	azCfg := analyzer.DefaultConfig(cfg.Analyzer.BaseURL)
	azCfg.Timeout = cfg.Analyzer.TimeoutOr(azCfg.Timeout)
	if cfg.Analyzer.MaxAttempts > 0 {
		azCfg.MaxAttempts = cfg.Analyzer.MaxAttempts
	}

	searchCfg := search.DefaultConfig(cfg.Search.BaseURL)
	searchCfg.Timeout = cfg.Search.TimeoutOr(searchCfg.Timeout)
	if cfg.Search.MaxAttempts > 0 {
		searchCfg.MaxAttempts = cfg.Search.MaxAttempts
	}

	modelCfg := llm.DefaultConfig(cfg.Model.BaseURL, cfg.Model.Name)
	modelCfg.Timeout = cfg.Model.TimeoutOr(modelCfg.Timeout)
	if cfg.Model.MaxAttempts > 0 {
		modelCfg.MaxAttempts = cfg.Model.MaxAttempts
	}

	searcher := &replay.RecordingSearcher{Inner: search.NewClient(searchCfg)}
	model := &replay.RecordingGenerator{Inner: llm.NewClient(modelCfg)}

	ingestNode := ingest.NewNode(
		fetch.NewHTTPFetcher(fetch.DefaultConfig()),
		media,
		analyzer.NewClient(azCfg),
		ingest.Config{
			OCRConfidenceThreshold: *cfg.Ingest.OCRConfidenceThreshold,
			DedupeWindow:           cfg.Ingest.DedupeWindowDuration(),
		},
	)
	complianceNode := compliance.NewNode(searcher, model, *cfg.Search.TopK)

	seq := workflow.NewSequencer(ingestNode.Run, complianceNode.Run)

	return &pipeline{
		cfg:      cfg,
		store:    store,
		runner:   workflow.NewRunner(seq, store),
		searcher: searcher,
		model:    model,
	}, nil
}

func (p *pipeline) close() {
	p.store.Close()
}

// #endregion wiring

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
