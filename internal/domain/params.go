package domain

// QualityMetrics holds the strategy-quality screen for one earnings setup.
// The Pass flags record whether each metric cleared its screening threshold;
// the raw values feed the crush-ratio calibration.
type QualityMetrics struct {
	AvgVolume     float64 `json:"avgVolume"`     // 30-day average share volume
	AvgVolumePass bool    `json:"avgVolumePass"` // volume gate
	IV30RV30      float64 `json:"iv30Rv30"`      // 30-day implied vol / 30-day realized vol
	IV30RV30Pass  bool    `json:"iv30Rv30Pass"`  // vol premium gate
	TermSlope     float64 `json:"tsSlope"`       // front-of-curve term-structure slope
	TermSlopePass bool    `json:"tsSlopePass"`   // backwardation gate
}

// SimulationParams is the full input for one simulation run. Constructed by
// the caller per invocation; the engine keeps no state across invocations.
type SimulationParams struct {
	Ticker              string         `json:"ticker"`
	CurrentPrice        float64        `json:"currentPrice"`        // must be > 0
	ExpectedMovePercent float64        `json:"expectedMovePercent"` // market-implied one-event move; 0 is legal only with historical moves
	Metrics             QualityMetrics `json:"metrics"`
	LiquidityScore      float64        `json:"liquidityScore"`            // 0 (untradeable) .. 10 (tight markets)
	EarningsDate        string         `json:"earningsDate,omitempty"`    // YYYY-MM-DD, informational
	HistoricalMoves     []float64      `json:"historicalMoves,omitempty"` // observed earnings-day % moves, oldest first
}

// HasHistory reports whether the params carry any historical move samples.
func (p SimulationParams) HasHistory() bool {
	return len(p.HistoricalMoves) > 0
}
