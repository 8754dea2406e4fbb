package simulation

import "errors"

// Run errors
var (
	// ErrInsufficientInput means the params carry neither enough historical
	// moves nor a positive expected move, so no sampler can be built.
	ErrInsufficientInput = errors.New("insufficient input for move distribution")

	// ErrCancelled means the caller aborted the run mid-flight. No partial
	// results accompany it.
	ErrCancelled = errors.New("simulation cancelled")
)
