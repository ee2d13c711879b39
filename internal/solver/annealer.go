package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"qroute/internal/qubo"
)

const (
	defaultReads   = 20
	defaultSweeps  = 200
	initialTemp    = 10.0
	coolingFactor  = 0.995
	defaultSamples = 10
)

// Annealer is a simulated annealing sampler for penalty-folded models. Runs
// are deterministic for a fixed seed. It only accepts *qubo.QUBO; constrained
// models must be folded first.
type Annealer struct{}

func (Annealer) Submit(ctx context.Context, m qubo.Optimization, cfg Config) (*RawResult, error) {
	q, ok := m.(*qubo.QUBO)
	if !ok {
		return nil, fmt.Errorf("annealer requires a folded model, got %T", m)
	}

	reads := cfg.NumReads
	if reads <= 0 {
		reads = defaultReads
	}
	sweeps := cfg.Sweeps
	if sweeps <= 0 {
		sweeps = defaultSweeps
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	start := time.Now()
	counts := map[string]*Sample{}
	for r := 0; r < reads; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.TimeLimit > 0 && time.Since(start) > cfg.TimeLimit {
			break
		}
		x := anneal(rng, q, sweeps)
		key := assignmentKey(x)
		if s, ok := counts[key]; ok {
			s.Occurrences++
			continue
		}
		counts[key] = &Sample{Assignment: x, Energy: q.Energy(x), Occurrences: 1}
	}

	samples := make([]Sample, 0, len(counts))
	for _, s := range counts {
		samples = append(samples, *s)
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Energy != samples[j].Energy {
			return samples[i].Energy < samples[j].Energy
		}
		return assignmentKey(samples[i].Assignment) < assignmentKey(samples[j].Assignment)
	})
	max := cfg.MaxSamples
	if max <= 0 {
		max = defaultSamples
	}
	if len(samples) > max {
		samples = samples[:max]
	}
	return &RawResult{Samples: samples, Runtime: time.Since(start)}, nil
}

// anneal runs one read: random start, Metropolis single-bit flips under a
// geometric cooling schedule, returning the best state seen.
func anneal(rng *rand.Rand, q *qubo.QUBO, sweeps int) []int {
	dim := q.Dim()
	x := make([]int, dim)
	for i := range x {
		x[i] = rng.Intn(2)
	}
	best := append([]int(nil), x...)
	bestE := q.Energy(x)
	curE := bestE

	temp := initialTemp * (math.Abs(bestE) + 1)
	for s := 0; s < sweeps; s++ {
		for f := 0; f < dim; f++ {
			i := rng.Intn(dim)
			delta := flipDelta(q, x, i)
			if delta <= 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
				x[i] = 1 - x[i]
				curE += delta
				if curE < bestE {
					bestE = curE
					copy(best, x)
				}
			}
		}
		temp *= coolingFactor
	}
	return best
}

// flipDelta is the energy change from flipping bit i, exploiting symmetry of
// Q so only one row is scanned.
func flipDelta(q *qubo.QUBO, x []int, i int) float64 {
	sum := q.Q[i][i]
	row := q.Q[i]
	for j, xj := range x {
		if xj != 0 && j != i {
			sum += 2 * row[j]
		}
	}
	if x[i] == 1 {
		return -sum
	}
	return sum
}

func assignmentKey(x []int) string {
	b := make([]byte, len(x))
	for i, v := range x {
		b[i] = byte('0' + v)
	}
	return string(b)
}
