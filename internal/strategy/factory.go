package strategy

import (
	"fmt"

	"earnings-spread-lab/internal/domain"
)

// frontValueFraction sizes the short leg's entry value against the pricing
// scale. An at-the-money option is worth roughly half the implied straddle.
const frontValueFraction = 0.5

// termValueRatio is the entry value of the back-month leg relative to the
// front-month leg. The longer-dated option carries about twice the time value
// at the same strike.
const termValueRatio = 2.0

// FromParams builds the calendar spread implied by the run inputs.
// pricingScale is the percent move the legs are priced against, normally the
// market-implied expected move, with the historical sample's spread as the
// fallback when no implied move is quoted.
func FromParams(params *domain.SimulationParams, pricingScale float64) (*Spread, error) {
	front := frontValueFraction * pricingScale
	back := termValueRatio * front
	debit := (back - front) * LiquidityHaircut(params.LiquidityScore)

	spread, err := NewSpread(SpreadOptions{
		FrontValue:   front,
		BackValue:    back,
		Debit:        debit,
		CrushRatio:   CrushRatio(params.Metrics.IV30RV30, params.Metrics.TermSlope),
		PricingScale: pricingScale,
	})
	if err != nil {
		return nil, fmt.Errorf("build spread for %s: %w", params.Ticker, err)
	}
	return spread, nil
}
