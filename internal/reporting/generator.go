package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"earnings-spread-lab/internal/decision"
	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/observability"
	"earnings-spread-lab/internal/storage"
)

// defaultRunLimit bounds Generate when the caller passes no limit.
const defaultRunLimit = 200

// Generator produces reports from the run journal.
type Generator struct {
	runStore  storage.SimulationRunStore
	evaluator *decision.Evaluator
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.SimulationRunStore) *Generator {
	return &Generator{
		runStore:  runStore,
		evaluator: decision.NewEvaluator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over the most recent runs across all tickers.
// limit <= 0 falls back to defaultRunLimit.
func (g *Generator) Generate(ctx context.Context, limit int) (*Report, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	runs, err := g.runStore.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent runs: %w", err)
	}

	report := g.buildReport(runs)
	observability.RecordReportGenerated()
	return report, nil
}

// GenerateForTicker produces a report covering every journaled run of one
// ticker.
func (g *Generator) GenerateForTicker(ctx context.Context, ticker string) (*Report, error) {
	runs, err := g.runStore.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("load runs for %s: %w", ticker, err)
	}

	report := g.buildReport(runs)
	observability.RecordReportGenerated()
	return report, nil
}

// buildReport assembles all sections from the loaded runs. Stores return
// newest first already; the explicit sort pins the tie order so repeated
// generation over the same journal renders identically.
func (g *Generator) buildReport(runs []*domain.SimulationRun) *Report {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].RequestedAt.Equal(runs[j].RequestedAt) {
			return runs[i].RequestedAt.After(runs[j].RequestedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})

	rows := make([]RunRow, len(runs))
	blocks := make([]DecisionBlock, len(runs))
	tickerSet := make(map[string]struct{})
	var summary Summary

	for i, run := range runs {
		rows[i] = RunRow{
			RunID:               run.RunID,
			Ticker:              run.Ticker,
			RequestedAt:         run.RequestedAt,
			Recommendation:      run.Recommendation,
			ProbabilityOfProfit: run.Results.ProbabilityOfProfit,
			ExpectedReturn:      run.Results.ExpectedReturn,
			P25:                 run.Results.Percentiles.P25,
			P50:                 run.Results.Percentiles.P50,
			P75:                 run.Results.Percentiles.P75,
			CILow:               run.Results.ConfidenceInterval.Low,
			CIHigh:              run.Results.ConfidenceInterval.High,
			MaxLoss:             run.Results.MaxLossScenario,
			MoveSource:          run.Results.MoveSource,
			SampleSize:          run.Results.HistoricalSampleSize,
			Trials:              run.Results.SimulationCount,
			Seed:                run.Results.Seed,
		}

		blocks[i] = DecisionBlock{
			RunID:   run.RunID,
			Ticker:  run.Ticker,
			Verdict: g.evaluator.Evaluate(run.Params, &run.Results),
		}

		tickerSet[run.Ticker] = struct{}{}

		switch run.Recommendation {
		case domain.RecommendationRecommended:
			summary.Recommended++
		case domain.RecommendationConsider:
			summary.Consider++
		case domain.RecommendationAvoid:
			summary.Avoid++
		}

		switch run.Results.MoveSource {
		case domain.MoveSourceEmpirical:
			summary.EmpiricalRuns++
		case domain.MoveSourceParametric:
			summary.ParametricRuns++
		}

		if summary.OldestRun.IsZero() || run.RequestedAt.Before(summary.OldestRun) {
			summary.OldestRun = run.RequestedAt
		}
		if run.RequestedAt.After(summary.NewestRun) {
			summary.NewestRun = run.RequestedAt
		}
	}

	return &Report{
		GeneratedAt: g.now(),
		RunCount:    len(runs),
		TickerCount: len(tickerSet),
		Summary:     summary,
		Runs:        rows,
		Decisions:   blocks,
	}
}
