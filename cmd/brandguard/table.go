package main

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/brandguardian/go-auditor/internal/audit"
	"github.com/brandguardian/go-auditor/internal/state"
)

// #region tables

func renderViolations(violations []audit.Violation) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Rule", "Severity", "Explanation", "Evidence"})
	for _, v := range violations {
		tw.AppendRow(table.Row{v.RuleReference, v.Severity, v.Explanation, v.EvidenceExcerpt})
	}
	return tw.Render()
}

func renderRunList(runs []state.RunSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run ID", "Source", "State", "Verdict", "Created"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.RunID, r.SourceReference, r.RunState, r.Verdict, formatTime(r.CreatedAt)})
	}
	return tw.Render()
}

func renderEvents(events []state.RunEvent) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stage", "Event", "Detail", "At"})
	for _, ev := range events {
		tw.AppendRow(table.Row{ev.Stage, ev.Event, ev.Detail, formatTime(ev.CreatedAt)})
	}
	return tw.Render()
}

// #endregion tables
