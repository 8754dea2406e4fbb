package history

// Sample-size thresholds for the empirical move model.
const (
	minEmpiricalSamples = 4
	adequateSamples     = 8
)

// Sample sufficiency verdicts.
const (
	SampleInsufficient = "insufficient" // too few moves, parametric fallback
	SampleLow          = "low"          // empirical works but confidence is weak
	SampleAdequate     = "adequate"
)

// AssessSample reports whether a historical move sample can back the
// empirical model, and how confidently.
func AssessSample(moves []float64) string {
	switch n := len(moves); {
	case n < minEmpiricalSamples:
		return SampleInsufficient
	case n < adequateSamples:
		return SampleLow
	default:
		return SampleAdequate
	}
}
