package solver

import (
	"context"
	"time"

	"qroute/internal/qubo"
)

// Config is the recognized-options structure passed to Submit. Backends read
// the fields they understand and ignore the rest.
type Config struct {
	NumReads   int           `json:"numReads,omitempty"`   // annealing restarts
	Sweeps     int           `json:"sweeps,omitempty"`     // flips per read per variable
	Seed       int64         `json:"seed,omitempty"`       // 0 derives one from the clock
	TimeLimit  time.Duration `json:"timeLimit,omitempty"`  // soft bound, checked between reads
	MaxSamples int           `json:"maxSamples,omitempty"` // cap on returned samples
}

// Sample is one assignment with its backend-reported energy. Energies are
// diagnostics only; realized route cost is always recomputed downstream.
type Sample struct {
	Assignment  []int   `json:"assignment"`
	Energy      float64 `json:"energy"`
	Occurrences int     `json:"occurrences"`
}

// RawResult is the opaque solver output: samples ranked best first over the
// variable id space the model was built with.
type RawResult struct {
	Samples []Sample      `json:"samples"`
	Runtime time.Duration `json:"runtime"`
}

// Best returns the top-ranked sample, or nil for an empty result.
func (r *RawResult) Best() *Sample {
	if r == nil || len(r.Samples) == 0 {
		return nil
	}
	return &r.Samples[0]
}

// Adapter is the uniform backend contract. Implementations own their
// credentials, retries and transport entirely; the core never retries a
// submission.
type Adapter interface {
	Submit(ctx context.Context, m qubo.Optimization, cfg Config) (*RawResult, error)
}
