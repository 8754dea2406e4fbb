package strategy

// Crush calibration constants. Front-month IV trading rich to realized vol
// (iv30Rv30 above 1) and a downward-sloping term structure both signal an
// elevated event premium that collapses after earnings.
const (
	baseCrush        = 0.30
	ivCrushWeight    = 0.25
	slopeCrushWeight = 10.0
	minCrush         = 0.10
	maxCrush         = 0.85
)

// Liquidity haircut constants. A score of 10 fills at mid; a score of 0 pays
// the full spread-crossing penalty on entry.
const (
	maxLiquidityScore  = 10.0
	maxIlliquidityCost = 0.05
)

// CrushRatio derives the expected front-month IV collapse from the volatility
// quality metrics. Monotone increasing in iv30Rv30 and decreasing in tsSlope.
func CrushRatio(iv30Rv30, tsSlope float64) float64 {
	crush := baseCrush + ivCrushWeight*(iv30Rv30-1) - slopeCrushWeight*tsSlope
	if crush < minCrush {
		return minCrush
	}
	if crush > maxCrush {
		return maxCrush
	}
	return crush
}

// LiquidityHaircut returns the multiplier applied to the theoretical debit to
// account for execution cost on thin chains. Scores outside [0, 10] are
// treated as the nearest bound.
func LiquidityHaircut(liquidityScore float64) float64 {
	score := liquidityScore
	if score < 0 {
		score = 0
	}
	if score > maxLiquidityScore {
		score = maxLiquidityScore
	}
	return 1 + maxIlliquidityCost*(maxLiquidityScore-score)/maxLiquidityScore
}
