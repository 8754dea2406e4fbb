// Package strategy prices the earnings calendar spread: short the front-month
// option, long the back-month option, same strike. All leg values are in
// percent-of-spot units so a spread prices identically at any share price.
package strategy

import (
	"errors"
	"fmt"
	"math"
)

// Payoff model constants.
const (
	// moveClampPercent bounds the underlying move fed into the payoff model.
	// Far outside this range near-binary option behavior dominates and the
	// time-value model below stops being meaningful.
	moveClampPercent = 50.0

	// backRetention is the fraction of back-month value surviving the event
	// at zero move. The long leg keeps most of its extrinsic value.
	backRetention = 0.92

	// backDecayRate and frontDecayRate control how fast each leg's remaining
	// time value erodes as the underlying moves away from the strike. The
	// already-crushed front month melts faster.
	backDecayRate  = 0.9
	frontDecayRate = 2.0

	// minDebit guards the percent-return division.
	minDebit = 1e-9
)

// ErrDegenerateInput reports a spread that cannot be priced, typically a net
// debit of zero.
var ErrDegenerateInput = errors.New("degenerate spread input")

// Spread is a priced same-strike calendar spread.
type Spread struct {
	frontValue   float64
	backValue    float64
	debit        float64
	crushRatio   float64
	pricingScale float64
}

// SpreadOptions configures NewSpread.
type SpreadOptions struct {
	// FrontValue and BackValue are the entry values of the short and long
	// legs, in percent of spot.
	FrontValue float64
	BackValue  float64

	// Debit is the net premium paid to open the position. It is the
	// normalizing base for percent returns.
	Debit float64

	// CrushRatio is the fraction of front-month value destroyed by the
	// post-event volatility collapse.
	CrushRatio float64

	// PricingScale converts an absolute percent move into moneyness units,
	// normally the market-implied expected move.
	PricingScale float64
}

// NewSpread validates the options and returns a priceable spread.
func NewSpread(opts SpreadOptions) (*Spread, error) {
	if math.Abs(opts.Debit) < minDebit {
		return nil, fmt.Errorf("%w: net debit %g cannot normalize returns", ErrDegenerateInput, opts.Debit)
	}
	if opts.PricingScale <= 0 {
		return nil, fmt.Errorf("%w: pricing scale %g must be positive", ErrDegenerateInput, opts.PricingScale)
	}

	return &Spread{
		frontValue:   opts.FrontValue,
		backValue:    opts.BackValue,
		debit:        opts.Debit,
		crushRatio:   opts.CrushRatio,
		pricingScale: opts.PricingScale,
	}, nil
}

// Price returns the spread's percent return on debit for one post-event
// underlying move, given in percent of spot. Moves beyond the clamp bound are
// priced at the bound.
func (s *Spread) Price(movePercent float64) float64 {
	move := clampMove(movePercent)
	a := math.Abs(move) / s.pricingScale

	// Same-strike legs share intrinsic value, so only the remaining time
	// value differentiates them after the event.
	back := s.backValue * backRetention * math.Exp(-backDecayRate*a*a)
	front := s.frontValue * (1 - s.crushRatio) * math.Exp(-frontDecayRate*a*a)

	return (back - front - s.debit) / s.debit * 100
}

// Debit returns the net entry debit in percent of spot.
func (s *Spread) Debit() float64 {
	return s.debit
}

// CrushRatio returns the calibrated front-month IV collapse fraction.
func (s *Spread) CrushRatio() float64 {
	return s.crushRatio
}

func clampMove(m float64) float64 {
	if m > moveClampPercent {
		return moveClampPercent
	}
	if m < -moveClampPercent {
		return -moveClampPercent
	}
	return m
}
