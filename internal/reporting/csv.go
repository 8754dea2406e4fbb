package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders run rows as CSV string.
func RenderCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,ticker,requested_at,recommendation,probability_of_profit,expected_return,")
	sb.WriteString("p25,p50,p75,ci_low,ci_high,max_loss,")
	sb.WriteString("move_source,sample_size,trials,seed\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%d,%d,%d\n",
			r.RunID,
			r.Ticker,
			r.RequestedAt.Format(time.RFC3339),
			r.Recommendation,
			r.ProbabilityOfProfit,
			r.ExpectedReturn,
			r.P25,
			r.P50,
			r.P75,
			r.CILow,
			r.CIHigh,
			r.MaxLoss,
			r.MoveSource,
			r.SampleSize,
			r.Trials,
			r.Seed,
		))
	}

	return sb.String()
}
