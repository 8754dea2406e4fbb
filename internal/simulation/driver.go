package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Driver defaults.
const (
	// defaultSimulationCount is the number of independent trials per run.
	defaultSimulationCount = 10000

	// defaultYieldEvery is the batch size between cancellation checks and
	// progress callbacks.
	defaultYieldEvery = 500
)

// Pricer converts one sampled percent move into one percent return.
// *strategy.Spread satisfies it.
type Pricer interface {
	Price(movePercent float64) float64
}

// DriverOptions configures a trial run.
type DriverOptions struct {
	// Count is the number of trials. Zero means defaultSimulationCount.
	Count int

	// YieldEvery is the batch size between cancellation checks. Zero means
	// defaultYieldEvery.
	YieldEvery int

	// Seed seeds the trial PRNG. Zero derives a seed from the wall clock;
	// Driver.Seed reports whichever seed was used so every run stays
	// replayable.
	Seed int64

	// Progress, when set, is invoked after each batch with the number of
	// completed trials and the total.
	Progress func(done, total int)
}

// Driver runs independent Monte Carlo trials. Trials share no mutable state,
// so a cancelled or failed run leaves nothing to clean up.
type Driver struct {
	count      int
	yieldEvery int
	seed       int64
	progress   func(done, total int)
}

// NewDriver creates a driver, applying defaults for unset options.
func NewDriver(opts DriverOptions) *Driver {
	count := opts.Count
	if count <= 0 {
		count = defaultSimulationCount
	}
	yieldEvery := opts.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = defaultYieldEvery
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Driver{
		count:      count,
		yieldEvery: yieldEvery,
		seed:       seed,
		progress:   opts.Progress,
	}
}

// Seed returns the seed the trial PRNG draws with.
func (d *Driver) Seed() int64 { return d.seed }

// Count returns the number of trials per run.
func (d *Driver) Count() int { return d.count }

// Run executes the trials and returns the raw percent returns in draw order.
// Steps:
//  1. Seed one PRNG for the whole run
//  2. Per batch: check cancellation, then draw and price each trial
//  3. Report progress after each batch
// Cancellation is checked between batches; a cancelled run returns
// ErrCancelled and no trial slice.
func (d *Driver) Run(ctx context.Context, model MoveModel, pricer Pricer) ([]float64, error) {
	rng := rand.New(rand.NewSource(d.seed))
	raw := make([]float64, 0, d.count)

	for done := 0; done < d.count; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w after %d of %d trials: %v", ErrCancelled, done, d.count, err)
		}

		batch := d.yieldEvery
		if remaining := d.count - done; remaining < batch {
			batch = remaining
		}
		for i := 0; i < batch; i++ {
			raw = append(raw, pricer.Price(model.Draw(rng)))
		}
		done += batch

		if d.progress != nil {
			d.progress(done, d.count)
		}
	}

	return raw, nil
}
