package simulation

import (
	"fmt"
	"math"
	"math/rand"

	"earnings-spread-lab/internal/domain"
)

// Move source selection constants.
const (
	// minHistoricalSamples is the smallest history that supports the
	// bootstrap sampler.
	minHistoricalSamples = 4

	// bootstrapJitterFraction scales the Gaussian jitter added to each
	// bootstrap draw, as a fraction of the sample standard deviation.
	bootstrapJitterFraction = 0.10

	// studentTDegreesOfFreedom shapes the parametric fallback. Low degrees
	// of freedom keep the tails fat, matching observed earnings moves.
	studentTDegreesOfFreedom = 5
)

// MoveModel produces one simulated earnings-day percent move per draw.
// Implementations are pure given the supplied source: the same source state
// always yields the same draw.
type MoveModel interface {
	// Draw samples a single percent move.
	Draw(rng *rand.Rand) float64

	// Kind reports which sampling family produced the draws.
	Kind() string

	// SampleSize reports how many historical observations back the model.
	// Zero for parametric models.
	SampleSize() int
}

// NewMoveModel selects the sampling source for the given params: smoothed
// bootstrap when enough history is present, Student-t scaled to the expected
// move otherwise.
func NewMoveModel(params *domain.SimulationParams) (MoveModel, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: nil params", ErrInsufficientInput)
	}
	if len(params.HistoricalMoves) >= minHistoricalSamples {
		return NewEmpiricalModel(params.HistoricalMoves), nil
	}
	if params.ExpectedMovePercent > 0 {
		return NewParametricModel(params.ExpectedMovePercent), nil
	}
	return nil, fmt.Errorf("%w: %d historical moves, no expected move",
		ErrInsufficientInput, len(params.HistoricalMoves))
}

// EmpiricalModel draws by smoothed bootstrap: pick one observed move
// uniformly with replacement, then add Gaussian jitter so the sampler is not
// confined to the finite observed set.
type EmpiricalModel struct {
	moves       []float64
	jitterSigma float64
}

// NewEmpiricalModel builds a bootstrap sampler over a copy of the observed
// moves.
func NewEmpiricalModel(moves []float64) *EmpiricalModel {
	samples := make([]float64, len(moves))
	copy(samples, moves)
	return &EmpiricalModel{
		moves:       samples,
		jitterSigma: bootstrapJitterFraction * sampleStddev(samples),
	}
}

// Draw picks a historical move and perturbs it.
func (m *EmpiricalModel) Draw(rng *rand.Rand) float64 {
	pick := m.moves[rng.Intn(len(m.moves))]
	return pick + rng.NormFloat64()*m.jitterSigma
}

// Kind returns the empirical source tag.
func (m *EmpiricalModel) Kind() string { return domain.MoveSourceEmpirical }

// SampleSize returns the number of historical moves backing the sampler.
func (m *EmpiricalModel) SampleSize() int { return len(m.moves) }

// ParametricModel draws from a zero-mean Student-t distribution scaled so the
// move distribution's standard deviation equals the market-implied expected
// move. Realized earnings moves overshoot the implied move far more often
// than a Gaussian allows, hence the heavy tails.
type ParametricModel struct {
	scale float64
}

// NewParametricModel builds the fallback sampler around the expected move.
func NewParametricModel(expectedMovePercent float64) *ParametricModel {
	// A t variate with df degrees of freedom has variance df/(df-2);
	// dividing by its root gives draws whose stddev equals the expected move.
	df := float64(studentTDegreesOfFreedom)
	return &ParametricModel{
		scale: expectedMovePercent / math.Sqrt(df/(df-2)),
	}
}

// Draw samples one scaled t variate.
func (m *ParametricModel) Draw(rng *rand.Rand) float64 {
	return m.scale * studentT(rng)
}

// Kind returns the parametric source tag.
func (m *ParametricModel) Kind() string { return domain.MoveSourceParametric }

// SampleSize is always zero for the parametric fallback.
func (m *ParametricModel) SampleSize() int { return 0 }

// Ensure both models implement MoveModel
var (
	_ MoveModel = (*EmpiricalModel)(nil)
	_ MoveModel = (*ParametricModel)(nil)
)

// studentT samples a t variate as Z / sqrt(V/df), where V is a chi-squared
// variate assembled from df squared standard normals.
func studentT(rng *rand.Rand) float64 {
	z := rng.NormFloat64()
	chi2 := 0.0
	for i := 0; i < studentTDegreesOfFreedom; i++ {
		n := rng.NormFloat64()
		chi2 += n * n
	}
	return z / math.Sqrt(chi2/float64(studentTDegreesOfFreedom))
}

// sampleStddev is the n-1 standard deviation of the observed moves. Zero for
// fewer than two samples.
func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
