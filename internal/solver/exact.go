package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"qroute/internal/qubo"
)

// exactMaxVars bounds exhaustive enumeration; beyond it the caller should
// switch to a sampling backend.
const exactMaxVars = 20

// Exact enumerates every binary assignment and ranks them, so its top sample
// is provably optimal. Constrained models are checked natively: feasible
// assignments rank first by objective, and when none exist the least
// violating ones are returned instead. Intended for small models and tests.
type Exact struct{}

func (Exact) Submit(ctx context.Context, m qubo.Optimization, cfg Config) (*RawResult, error) {
	start := time.Now()
	var samples []Sample
	var err error
	switch t := m.(type) {
	case *qubo.QUBO:
		samples, err = exactQUBO(ctx, t)
	case *qubo.CQM:
		samples, err = exactCQM(ctx, t)
	default:
		return nil, fmt.Errorf("exact solver does not support %T", m)
	}
	if err != nil {
		return nil, err
	}
	max := cfg.MaxSamples
	if max <= 0 {
		max = defaultSamples
	}
	if len(samples) > max {
		samples = samples[:max]
	}
	return &RawResult{Samples: samples, Runtime: time.Since(start)}, nil
}

func exactQUBO(ctx context.Context, q *qubo.QUBO) ([]Sample, error) {
	dim := q.Dim()
	if dim > exactMaxVars {
		return nil, fmt.Errorf("model has %d variables, exhaustive solve caps at %d", dim, exactMaxVars)
	}
	samples := make([]Sample, 0, 1<<dim)
	x := make([]int, dim)
	for mask := 0; mask < 1<<dim; mask++ {
		if mask%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fill(x, mask)
		samples = append(samples, Sample{
			Assignment:  append([]int(nil), x...),
			Energy:      q.Energy(x),
			Occurrences: 1,
		})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Energy < samples[j].Energy })
	return samples, nil
}

func exactCQM(ctx context.Context, c *qubo.CQM) ([]Sample, error) {
	if c.NumVars > exactMaxVars {
		return nil, fmt.Errorf("model has %d variables, exhaustive solve caps at %d", c.NumVars, exactMaxVars)
	}
	type ranked struct {
		Sample
		violations int
	}
	var feasible, infeasible []ranked
	x := make([]int, c.NumVars)
	for mask := 0; mask < 1<<c.NumVars; mask++ {
		if mask%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fill(x, mask)
		v, err := countViolations(c, x)
		if err != nil {
			return nil, err
		}
		s := ranked{
			Sample: Sample{
				Assignment:  append([]int(nil), x...),
				Energy:      evalExpr(c.Objective, x),
				Occurrences: 1,
			},
			violations: v,
		}
		if v == 0 {
			feasible = append(feasible, s)
		} else {
			infeasible = append(infeasible, s)
		}
	}
	sort.Slice(feasible, func(i, j int) bool { return feasible[i].Energy < feasible[j].Energy })
	sort.Slice(infeasible, func(i, j int) bool {
		if infeasible[i].violations != infeasible[j].violations {
			return infeasible[i].violations < infeasible[j].violations
		}
		return infeasible[i].Energy < infeasible[j].Energy
	})
	out := make([]Sample, 0, len(feasible)+len(infeasible))
	for _, s := range feasible {
		out = append(out, s.Sample)
	}
	for _, s := range infeasible {
		out = append(out, s.Sample)
	}
	return out, nil
}

// countViolations checks every constraint for a fixed binary assignment.
// Constraints over auxiliary integers are difference relations; they count
// as one violation when no integer assignment within bounds satisfies them
// all simultaneously.
func countViolations(c *qubo.CQM, x []int) (int, error) {
	violations := 0
	type edge struct {
		from, to int
		w        float64
	}
	var edges []edge
	for _, con := range c.Constraints {
		if len(con.Expr.IntLin) == 0 {
			lhs := evalExpr(con.Expr, x)
			switch con.Sense {
			case qubo.SenseEQ:
				if lhs != con.Rhs {
					violations++
				}
			case qubo.SenseLE:
				if lhs > con.Rhs {
					violations++
				}
			}
			continue
		}
		if con.Sense != qubo.SenseLE || len(con.Expr.IntLin) != 2 {
			return 0, fmt.Errorf("constraint %q: unsupported integer form", con.Label)
		}
		a, b := con.Expr.IntLin[0], con.Expr.IntLin[1]
		if a.Coeff == -1 && b.Coeff == 1 {
			a, b = b, a
		}
		if a.Coeff != 1 || b.Coeff != -1 {
			return 0, fmt.Errorf("constraint %q: unsupported integer form", con.Label)
		}
		// u[a] - u[b] <= rhs - binary part.
		w := con.Rhs - con.Expr.Const
		for _, t := range con.Expr.Lin {
			w -= t.Coeff * float64(x[t.Var])
		}
		edges = append(edges, edge{from: b.Var + 1, to: a.Var + 1, w: w})
	}
	if len(edges) == 0 {
		return violations, nil
	}

	// Difference-constraint feasibility over node 0 as origin plus variable
	// bounds, via Bellman-Ford negative cycle detection.
	n := len(c.IntVars) + 1
	for i, iv := range c.IntVars {
		edges = append(edges,
			edge{from: 0, to: i + 1, w: float64(iv.High)},
			edge{from: i + 1, to: 0, w: float64(-iv.Low)},
		)
	}
	dist := make([]float64, n)
	for iter := 0; iter < n; iter++ {
		changed := false
		for _, e := range edges {
			if d := dist[e.from] + e.w; d < dist[e.to] {
				dist[e.to] = d
				changed = true
			}
		}
		if !changed {
			return violations, nil
		}
		if iter == n-1 {
			violations++
		}
	}
	return violations, nil
}

func evalExpr(e qubo.Expr, x []int) float64 {
	v := e.Const
	for _, t := range e.Lin {
		v += t.Coeff * float64(x[t.Var])
	}
	for _, t := range e.Quad {
		v += t.Coeff * float64(x[t.A]*x[t.B])
	}
	return v
}

func fill(x []int, mask int) {
	for i := range x {
		x[i] = (mask >> i) & 1
	}
}
