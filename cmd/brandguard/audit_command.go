package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brandguardian/go-auditor/internal/audit"
	"github.com/brandguardian/go-auditor/internal/config"
	"github.com/brandguardian/go-auditor/internal/replay"
	"github.com/brandguardian/go-auditor/internal/workflow"
)

func newAuditCommand(configFlag *string) *cobra.Command {
	var recordPath string

	cmd := &cobra.Command{
		Use:   "audit <source-url>",
		Short: "Run a compliance audit against a video URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, runState := p.runner.Audit(ctx, args[0])
			printRun(st, runState)

			if recordPath != "" && st.Extraction != nil {
				fixture := &replay.Fixture{
					SourceReference: st.SourceReference,
					Extraction:      *st.Extraction,
					Excerpts:        p.searcher.Excerpts(),
					ModelOutputs:    p.model.Outputs(),
					TopK:            *cfg.Search.TopK,
				}
				if st.Report != nil {
					fixture.ExpectedVerdict = st.Report.Verdict
				}
				if err := replay.SaveFixture(recordPath, fixture); err != nil {
					return err
				}
				fmt.Printf("\nFixture written to %s\n", recordPath)
			}

			if runState == workflow.StateFailed {
				return fmt.Errorf("audit failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "Write a replay fixture for this run to the given path")
	return cmd
}

// #region render

func printRun(st audit.WorkflowState, runState workflow.RunState) {
	fmt.Printf("Run:    %s\n", st.RunID)
	fmt.Printf("Source: %s\n", st.SourceReference)
	if st.StorageLocator != "" {
		fmt.Printf("Stored: %s\n", st.StorageLocator)
	}
	fmt.Printf("State:  %s\n", runState)

	if st.Report != nil {
		fmt.Printf("Verdict: %s\n", colorVerdict(st.Report.Verdict))
		if st.Report.Summary != "" {
			fmt.Printf("\n%s\n", st.Report.Summary)
		}
		if len(st.Report.Violations) > 0 {
			fmt.Printf("\n%s\n", renderViolations(st.Report.Violations))
		}
	}

	for _, serr := range st.Errors {
		color.Yellow("! %s", serr.Error())
	}
}

func colorVerdict(v audit.Verdict) string {
	switch v {
	case audit.VerdictCompliant:
		return color.GreenString(string(v))
	case audit.VerdictNonCompliant:
		return color.RedString(string(v))
	default:
		return color.YellowString(string(v))
	}
}

// #endregion render
