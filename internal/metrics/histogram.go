package metrics

import (
	"fmt"
	"math"

	"earnings-spread-lab/internal/domain"
)

// Histogram sizing: bin count is floor(sqrt(N)) clamped to [20, 50].
const (
	minHistogramBins = 20
	maxHistogramBins = 50
)

// degenerateBinHalfWidth is the half-width of the single bin emitted when
// every trial has the identical value (bin width must stay non-zero).
const degenerateBinHalfWidth = 0.5

// BuildHistogram partitions raw trial returns into equal-width contiguous
// bins spanning [min, max]. Bins are half-open on the right except the last,
// which is closed so the maximum lands inside it. Every trial is assigned to
// exactly one bin. The input is never mutated, so binning the same slice
// twice yields identical output.
func BuildHistogram(raw []float64) ([]domain.HistogramBin, error) {
	n := len(raw)
	if n == 0 {
		return nil, fmt.Errorf("bin empty trial set: %w", ErrAggregationInvariant)
	}

	min, max := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	// All trials identical: a single minimal-width bin centered on the value.
	if max == min {
		values := make([]float64, n)
		copy(values, raw)
		return []domain.HistogramBin{{
			X:      min,
			Count:  n,
			Values: values,
		}}, nil
	}

	binCount := int(math.Floor(math.Sqrt(float64(n))))
	if binCount < minHistogramBins {
		binCount = minHistogramBins
	}
	if binCount > maxHistogramBins {
		binCount = maxHistogramBins
	}

	binWidth := (max - min) / float64(binCount)
	bins := make([]domain.HistogramBin, binCount)
	for i := range bins {
		bins[i].X = min + (float64(i)+0.5)*binWidth
	}

	for _, v := range raw {
		idx := int((v - min) / binWidth)
		if idx >= binCount {
			idx = binCount - 1 // the maximum closes the last bin
		}
		bins[idx].Count++
		bins[idx].Values = append(bins[idx].Values, v)
	}

	total := 0
	for i := range bins {
		total += bins[i].Count
	}
	if total != n {
		return nil, fmt.Errorf("histogram counts sum to %d, want %d: %w", total, n, ErrAggregationInvariant)
	}

	return bins, nil
}

// BinWidth reports the width used for a non-degenerate histogram over raw.
// Exposed for chart axis labeling.
func BinWidth(bins []domain.HistogramBin) float64 {
	if len(bins) < 2 {
		return degenerateBinHalfWidth * 2
	}
	return bins[1].X - bins[0].X
}
