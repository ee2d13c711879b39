package qubo

import "math"

// QUBO is the penalty-folded unconstrained form: energy = x'Qx + Offset over
// binary x of dimension len(Q). Indices below NumVars are decision
// variables; the rest are slack bits introduced for inequality constraints.
type QUBO struct {
	Q       [][]float64
	NumVars int
	Slack   int
	Penalty float64
	Offset  float64
}

func (q *QUBO) Variables() int { return q.NumVars }

// Dim is the full matrix dimension, slack bits included.
func (q *QUBO) Dim() int { return len(q.Q) }

// Energy evaluates x'Qx + Offset for an assignment of length Dim().
func (q *QUBO) Energy(x []int) float64 {
	e := q.Offset
	for i := range x {
		if x[i] == 0 {
			continue
		}
		for j := range x {
			if x[j] != 0 {
				e += q.Q[i][j]
			}
		}
	}
	return e
}

// QUBO emits the penalty-folded form. Equality constraints fold as weighted
// squared residuals; inequalities get binary slack bits first. Constraints
// over auxiliary integer variables cannot fold and are dropped here, so
// subtour checks on edge models fall to the decoder. The penalty weight
// exceeds the sum of positive objective coefficients, which makes every
// feasible assignment cheaper than every folded-constraint violation.
func (m *Model) QUBO() *QUBO {
	penalty := m.positiveObjectiveSum() + 1

	type folded struct {
		terms []Term // decision plus slack vars, slack ids >= m.NumVars
		rhs   float64
	}
	var eqs []folded
	slack := 0
	for _, c := range m.Constraints {
		if len(c.Expr.IntLin) > 0 {
			continue
		}
		terms := append([]Term(nil), c.Expr.Lin...)
		rhs := c.Rhs - c.Expr.Const
		if c.Sense == SenseLE {
			// lhs + slack == rhs with slack in [0, rhs - minLhs].
			minLhs := 0.0
			for _, t := range terms {
				if t.Coeff < 0 {
					minLhs += t.Coeff
				}
			}
			span := int(math.Floor(rhs - minLhs))
			if span < 0 {
				span = 0
			}
			bits := 0
			for (1<<bits)-1 < span {
				bits++
			}
			for b := 0; b < bits; b++ {
				terms = append(terms, Term{Var: m.NumVars + slack, Coeff: float64(int(1) << b)})
				slack++
			}
		}
		eqs = append(eqs, folded{terms: terms, rhs: rhs})
	}

	dim := m.NumVars + slack
	q := &QUBO{
		Q:       newMatrix(dim),
		NumVars: m.NumVars,
		Slack:   slack,
		Penalty: penalty,
		Offset:  m.Objective.Const,
	}

	for _, t := range m.Objective.Lin {
		q.Q[t.Var][t.Var] += t.Coeff
	}
	for _, t := range m.Objective.Quad {
		q.Q[t.A][t.B] += t.Coeff / 2
		q.Q[t.B][t.A] += t.Coeff / 2
	}

	// (sum a_i x_i - rhs)^2 with x_i^2 == x_i.
	for _, f := range eqs {
		for i, ti := range f.terms {
			q.Q[ti.Var][ti.Var] += penalty * (ti.Coeff*ti.Coeff - 2*ti.Coeff*f.rhs)
			for _, tj := range f.terms[i+1:] {
				q.Q[ti.Var][tj.Var] += penalty * ti.Coeff * tj.Coeff
				q.Q[tj.Var][ti.Var] += penalty * ti.Coeff * tj.Coeff
			}
		}
		q.Offset += penalty * f.rhs * f.rhs
	}
	return q
}

func newMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}
