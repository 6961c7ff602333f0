package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brandguardian/go-auditor/internal/replay"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <fixture.json>...",
		Short: "Re-run the compliance stage against recorded fixtures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mismatches := 0
			for _, path := range args {
				fixture, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}

				res, err := replay.Replay(cmd.Context(), fixture)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				switch {
				case !res.HasExpected:
					fmt.Printf("%s: verdict=%s (no expectation recorded)\n", path, res.Verdict)
				case res.VerdictMatch:
					color.Green("%s: verdict=%s ✓", path, res.Verdict)
				default:
					color.Red("%s: verdict=%s, expected %s", path, res.Verdict, fixture.ExpectedVerdict)
					mismatches++
				}
			}

			if mismatches > 0 {
				return fmt.Errorf("%d fixture(s) diverged", mismatches)
			}
			return nil
		},
	}
}
