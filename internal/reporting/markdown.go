package reporting

import (
	"fmt"
	"strings"
	"time"

	"earnings-spread-lab/internal/decision"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Earnings Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Tickers: %d\n\n", r.RunCount, r.TickerCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Recommended | %d |\n", r.Summary.Recommended))
	sb.WriteString(fmt.Sprintf("| Consider | %d |\n", r.Summary.Consider))
	sb.WriteString(fmt.Sprintf("| Avoid | %d |\n", r.Summary.Avoid))
	sb.WriteString(fmt.Sprintf("| Empirical Runs | %d |\n", r.Summary.EmpiricalRuns))
	sb.WriteString(fmt.Sprintf("| Parametric Runs | %d |\n", r.Summary.ParametricRuns))
	if !r.Summary.OldestRun.IsZero() {
		sb.WriteString(fmt.Sprintf("| Oldest Run | %s |\n", r.Summary.OldestRun.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Newest Run | %s |\n", r.Summary.NewestRun.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Ticker | Requested | Verdict | PoP% | ER% | P25 | P50 | P75 | CI Low | CI High | Max Loss | Source | Samples | Trials |\n")
		sb.WriteString("|-----|--------|-----------|---------|------|-----|-----|-----|-----|--------|---------|----------|--------|---------|--------|\n")
		for _, row := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.1f | %.1f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %s | %d | %d |\n",
				row.RunID, row.Ticker, row.RequestedAt.Format("2006-01-02 15:04"),
				row.Recommendation, row.ProbabilityOfProfit, row.ExpectedReturn,
				row.P25, row.P50, row.P75,
				row.CILow, row.CIHigh, row.MaxLoss,
				row.MoveSource, row.SampleSize, row.Trials))
		}
	} else {
		sb.WriteString("No runs journaled.\n")
	}
	sb.WriteString("\n")

	// Decisions
	sb.WriteString("## Decisions\n\n")
	if len(r.Decisions) > 0 {
		for _, block := range r.Decisions {
			sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", block.Ticker, block.RunID))
			sb.WriteString(fmt.Sprintf("Recommendation: %s\n\n", block.Verdict.Recommendation))
			sb.WriteString(decision.RenderChecklist(block.Verdict))
		}
	} else {
		sb.WriteString("No decisions available.\n\n")
	}

	return sb.String()
}
