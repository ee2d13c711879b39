package qubo

import (
	"fmt"
	"sort"

	"qroute/internal/encode"
	"qroute/internal/model"
)

// tripIncentiveEps keeps the pickup-before-dropoff reward strictly above the
// largest single leg cost.
const tripIncentiveEps = 0.0001

// Build formulates the instance over the given variable index. The result
// is the shared intermediate form; emit it with CQM() or QUBO().
func Build(in *model.Instance, idx *encode.Index) (*Model, error) {
	if in.NumLocations() == 0 {
		return nil, &model.ConfigError{Reason: "instance has no distance matrix"}
	}
	if in.Capacitated() && in.Variant != model.VariantRPP && in.Demands == nil {
		return nil, &model.ConfigError{Reason: "capacities specified without demands"}
	}
	switch idx.Strategy {
	case encode.StrategyEdge:
		return buildEdge(in, idx), nil
	case encode.StrategyStep:
		return buildStep(in, idx), nil
	}
	return nil, fmt.Errorf("unknown encoding strategy %q", idx.Strategy)
}

func buildEdge(in *model.Instance, idx *encode.Index) *Model {
	n := in.NumLocations()
	depot := in.Depot
	m := &Model{NumVars: idx.NumVars()}

	obj := newAcc()
	for k := 0; k < in.NumVehicles; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				obj.addLin(idx.EdgeID(k, i, j), in.Matrix[i][j])
			}
		}
	}
	m.Objective = obj.expr()

	// Every non-depot location is entered once and left once fleet-wide.
	for j := 0; j < n; j++ {
		if j == depot {
			continue
		}
		enter := newAcc()
		leave := newAcc()
		for k := 0; k < in.NumVehicles; k++ {
			for i := 0; i < n; i++ {
				if i == j {
					continue
				}
				enter.addLin(idx.EdgeID(k, i, j), 1)
				leave.addLin(idx.EdgeID(k, j, i), 1)
			}
		}
		m.addConstraint(fmt.Sprintf("enter_once[%d]", j), enter.expr(), SenseEQ, 1)
		m.addConstraint(fmt.Sprintf("leave_once[%d]", j), leave.expr(), SenseEQ, 1)
	}

	// Per vehicle: at most one depot departure, and departures match
	// returns. Vehicles may stay unused.
	for k := 0; k < in.NumVehicles; k++ {
		out := newAcc()
		link := newAcc()
		for j := 0; j < n; j++ {
			if j == depot {
				continue
			}
			out.addLin(idx.EdgeID(k, depot, j), 1)
			link.addLin(idx.EdgeID(k, depot, j), 1)
			link.addLin(idx.EdgeID(k, j, depot), -1)
		}
		m.addConstraint(fmt.Sprintf("depot_out[%d]", k), out.expr(), SenseLE, 1)
		m.addConstraint(fmt.Sprintf("depot_link[%d]", k), link.expr(), SenseEQ, 0)
	}

	// Flow conservation: a vehicle entering a location must leave it.
	for k := 0; k < in.NumVehicles; k++ {
		for i := 0; i < n; i++ {
			if i == depot {
				continue
			}
			flow := newAcc()
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				flow.addLin(idx.EdgeID(k, i, j), 1)
				flow.addLin(idx.EdgeID(k, j, i), -1)
			}
			m.addConstraint(fmt.Sprintf("flow[%d][%d]", k, i), flow.expr(), SenseEQ, 0)
		}
	}

	if in.Capacitated() {
		for k := 0; k < in.NumVehicles; k++ {
			cap := newAcc()
			for j := 0; j < n; j++ {
				if j == depot {
					continue
				}
				d := float64(in.Demand(j))
				for i := 0; i < n; i++ {
					if i == j {
						continue
					}
					cap.addLin(idx.EdgeID(k, i, j), d)
				}
			}
			m.addConstraint(fmt.Sprintf("capacity[%d]", k), cap.expr(), SenseLE, float64(in.Capacities[k]))
		}
	}

	m.addOrderVars(in, idx)
	return m
}

// addOrderVars attaches Miller-Tucker-Zemlin subtour elimination: one
// bounded integer position per non-depot location plus ordering constraints
// per arc. Only the native constrained emission carries them; penalty folding
// skips integer constraints and leaves subtours to decode-time detection.
func (m *Model) addOrderVars(in *model.Instance, idx *encode.Index) {
	n := in.NumLocations()
	depot := in.Depot

	high := n - 1
	if in.Capacitated() {
		high = in.Capacities[0]
		for _, c := range in.Capacities {
			if c > high {
				high = c
			}
		}
	}
	uPos := make([]int, n) // location -> IntVars offset
	for i := 0; i < n; i++ {
		if i == depot {
			uPos[i] = -1
			continue
		}
		low := 1
		if in.Capacitated() && in.Demand(i) > low {
			low = in.Demand(i)
		}
		uPos[i] = len(m.IntVars)
		m.IntVars = append(m.IntVars, IntVar{Name: fmt.Sprintf("u[%d]", i), Low: low, High: high})
	}

	c := float64(high)
	for k := 0; k < in.NumVehicles; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j || i == depot || j == depot {
					continue
				}
				dj := 1.0
				if in.Capacitated() {
					dj = float64(in.Demand(j))
				}
				e := Expr{
					Lin:    []Term{{Var: idx.EdgeID(k, i, j), Coeff: c}},
					IntLin: []Term{{Var: uPos[i], Coeff: 1}, {Var: uPos[j], Coeff: -1}},
				}
				m.addConstraint(fmt.Sprintf("order[%d][%d][%d]", k, i, j), e, SenseLE, c-dj)
			}
		}
	}
}

func buildStep(in *model.Instance, idx *encode.Index) *Model {
	depot := in.Depot
	steps := idx.Steps
	rpp := in.Variant == model.VariantRPP
	m := &Model{NumVars: idx.NumVars()}

	// Ride-pooling vehicles start wherever their first pickup is; the depot
	// slot is a virtual origin with zero cost in and out.
	cost := func(a, b int) float64 {
		if rpp && (a == depot || b == depot) {
			return 0
		}
		return in.Matrix[a][b]
	}

	obj := newAcc()
	for k := 0; k < in.NumVehicles; k++ {
		for s := 0; s < steps-1; s++ {
			for _, a := range idx.Locations {
				for _, b := range idx.Locations {
					if a == b {
						continue
					}
					obj.addQuad(idx.StepID(k, a, s), idx.StepID(k, b, s+1), cost(a, b))
				}
			}
		}
	}
	if rpp {
		addTripIncentive(obj, in, idx)
	}
	m.Objective = obj.expr()

	// Exactly one location per slot per vehicle; unused slots hold the depot.
	for k := 0; k < in.NumVehicles; k++ {
		for s := 0; s < steps; s++ {
			slot := newAcc()
			for _, loc := range idx.Locations {
				slot.addLin(idx.StepID(k, loc, s), 1)
			}
			m.addConstraint(fmt.Sprintf("one_per_slot[%d][%d]", k, s), slot.expr(), SenseEQ, 1)
		}
	}

	// Every covered non-depot location occupies exactly one slot fleet-wide.
	for _, loc := range idx.Locations {
		if loc == depot {
			continue
		}
		once := newAcc()
		for k := 0; k < in.NumVehicles; k++ {
			for s := 0; s < steps; s++ {
				once.addLin(idx.StepID(k, loc, s), 1)
			}
		}
		m.addConstraint(fmt.Sprintf("visit_once[%d]", loc), once.expr(), SenseEQ, 1)
	}

	// Routes are anchored at the depot slot 0; closed tours also anchor the
	// last slot. Ride-pooling routes end at their final dropoff.
	for k := 0; k < in.NumVehicles; k++ {
		first := newAcc()
		first.addLin(idx.StepID(k, depot, 0), 1)
		m.addConstraint(fmt.Sprintf("start_at_depot[%d]", k), first.expr(), SenseEQ, 1)
		if !rpp {
			last := newAcc()
			last.addLin(idx.StepID(k, depot, steps-1), 1)
			m.addConstraint(fmt.Sprintf("end_at_depot[%d]", k), last.expr(), SenseEQ, 1)
		}
	}

	if in.Capacitated() {
		for k := 0; k < in.NumVehicles; k++ {
			if rpp {
				// Net load prefix per slot: pickups add, dropoffs subtract.
				for t := 0; t < steps; t++ {
					load := newAcc()
					for _, loc := range idx.Locations {
						if loc == depot {
							continue
						}
						d := float64(in.Demand(loc))
						for s := 0; s <= t; s++ {
							load.addLin(idx.StepID(k, loc, s), d)
						}
					}
					m.addConstraint(fmt.Sprintf("load[%d][%d]", k, t), load.expr(), SenseLE, float64(in.Capacities[k]))
				}
				continue
			}
			cap := newAcc()
			for _, loc := range idx.Locations {
				if loc == depot {
					continue
				}
				d := float64(in.Demand(loc))
				for s := 0; s < steps; s++ {
					cap.addLin(idx.StepID(k, loc, s), d)
				}
			}
			m.addConstraint(fmt.Sprintf("capacity[%d]", k), cap.expr(), SenseLE, float64(in.Capacities[k]))
		}
	}
	return m
}

// addTripIncentive rewards serving a pickup before its dropoff on the same
// vehicle. The reward exceeds any single leg cost, so orderings that respect
// precedence always win; hard validation happens at decode time.
func addTripIncentive(obj *acc, in *model.Instance, idx *encode.Index) {
	reward := in.MaxDistance() + tripIncentiveEps
	for _, t := range in.Trips {
		for k := 0; k < in.NumVehicles; k++ {
			for s := 0; s < idx.Steps; s++ {
				for s2 := s + 1; s2 < idx.Steps; s2++ {
					obj.addQuad(idx.StepID(k, t.Pickup, s), idx.StepID(k, t.Dropoff, s2), -reward)
				}
			}
		}
	}
}

func (m *Model) addConstraint(label string, e Expr, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Label: label, Expr: e, Sense: sense, Rhs: rhs})
}

// acc accumulates expression terms with coefficient merging, then emits a
// deterministic, sorted Expr.
type acc struct {
	lin  map[int]float64
	quad map[[2]int]float64
	c    float64
}

func newAcc() *acc {
	return &acc{lin: map[int]float64{}, quad: map[[2]int]float64{}}
}

func (a *acc) addLin(v int, coeff float64) {
	if coeff != 0 {
		a.lin[v] += coeff
	}
}

func (a *acc) addQuad(u, v int, coeff float64) {
	if coeff == 0 {
		return
	}
	if u == v {
		a.lin[u] += coeff // binary: x*x == x
		return
	}
	if u > v {
		u, v = v, u
	}
	a.quad[[2]int{u, v}] += coeff
}

func (a *acc) expr() Expr {
	e := Expr{Const: a.c}
	lin := make([]int, 0, len(a.lin))
	for v := range a.lin {
		lin = append(lin, v)
	}
	sort.Ints(lin)
	for _, v := range lin {
		if a.lin[v] != 0 {
			e.Lin = append(e.Lin, Term{Var: v, Coeff: a.lin[v]})
		}
	}
	quad := make([][2]int, 0, len(a.quad))
	for p := range a.quad {
		quad = append(quad, p)
	}
	sort.Slice(quad, func(i, j int) bool {
		if quad[i][0] != quad[j][0] {
			return quad[i][0] < quad[j][0]
		}
		return quad[i][1] < quad[j][1]
	})
	for _, p := range quad {
		if a.quad[p] != 0 {
			e.Quad = append(e.Quad, QuadTerm{A: p[0], B: p[1], Coeff: a.quad[p]})
		}
	}
	return e
}
