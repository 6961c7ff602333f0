package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandguardian/go-auditor/internal/config"
	"github.com/brandguardian/go-auditor/internal/state"
)

func newInspectCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "List past audit runs or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			store, err := state.NewStore(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				runs, err := store.ListRuns(limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Println("No runs recorded.")
					return nil
				}
				fmt.Println(renderRunList(runs))
				return nil
			}

			return inspectRun(store, args[0])
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func inspectRun(store *state.Store, runID string) error {
	rec, err := store.GetRun(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run:     %s\n", rec.RunID)
	fmt.Printf("Source:  %s\n", rec.SourceReference)
	fmt.Printf("State:   %s\n", rec.RunState)
	fmt.Printf("Created: %s\n", formatTime(rec.CreatedAt))
	if rec.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", formatTime(*rec.FinishedAt))
	}
	if rec.StorageLocator != "" {
		fmt.Printf("Stored:  %s\n", rec.StorageLocator)
	}
	if rec.Extraction != nil {
		fmt.Printf("Extraction: %d utterances, %d text fragments, duration %s\n",
			len(rec.Extraction.Transcript), len(rec.Extraction.OnscreenText), rec.Extraction.Duration)
	}
	if len(rec.RetrievedRules) > 0 {
		fmt.Printf("Rules retrieved: %d\n", len(rec.RetrievedRules))
	}

	if rec.Report != nil {
		fmt.Printf("Verdict: %s\n", colorVerdict(rec.Report.Verdict))
		if rec.Report.Summary != "" {
			fmt.Printf("\n%s\n", rec.Report.Summary)
		}
		if len(rec.Report.Violations) > 0 {
			fmt.Printf("\n%s\n", renderViolations(rec.Report.Violations))
		}
	}

	events, err := store.ListEvents(runID)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Printf("\n%s\n", renderEvents(events))
	}
	return nil
}
