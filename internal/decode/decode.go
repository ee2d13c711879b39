package decode

import (
	"errors"
	"fmt"
	"sort"

	"qroute/internal/encode"
	"qroute/internal/model"
	"qroute/internal/solver"
)

// Decode turns a raw solver result into a validated solution. Every sample
// is decoded and the cheapest feasible one wins; when no sample is feasible
// the lowest-violation candidate is returned marked infeasible, so callers
// can always inspect a best-effort answer.
func Decode(in *model.Instance, idx *encode.Index, res *solver.RawResult) (*VRPSolution, error) {
	if res == nil || len(res.Samples) == 0 {
		return nil, errors.New("solver returned no samples")
	}
	var best *VRPSolution
	for i := range res.Samples {
		s := &res.Samples[i]
		sol, err := DecodeAssignment(in, idx, s.Assignment, s.Energy)
		if err != nil {
			return nil, err
		}
		if better(sol, best) {
			best = sol
		}
	}
	best.SampleCount = len(res.Samples)
	return best, nil
}

func better(a, b *VRPSolution) bool {
	if b == nil {
		return true
	}
	if a.Feasible != b.Feasible {
		return a.Feasible
	}
	if len(a.Violations) != len(b.Violations) {
		return len(a.Violations) < len(b.Violations)
	}
	return a.TotalDistance < b.TotalDistance
}

// DecodeAssignment decodes a single assignment vector. The vector must cover
// the index's variable id space; trailing slack bits are ignored.
func DecodeAssignment(in *model.Instance, idx *encode.Index, assignment []int, energy float64) (*VRPSolution, error) {
	if len(assignment) < idx.NumVars() {
		return nil, fmt.Errorf("assignment has %d variables, model needs %d", len(assignment), idx.NumVars())
	}
	d := &decoder{in: in, idx: idx, x: assignment}
	var routes []Route
	switch idx.Strategy {
	case encode.StrategyEdge:
		routes = d.edgeRoutes()
	case encode.StrategyStep:
		routes = d.stepRoutes()
	default:
		return nil, fmt.Errorf("unknown encoding strategy %q", idx.Strategy)
	}
	d.checkVisits(routes)
	d.checkCapacity(routes)
	if in.Variant == model.VariantRPP {
		d.checkTripOrder(routes)
	}

	total := 0.0
	for _, r := range routes {
		total += r.Distance
	}
	return &VRPSolution{
		Variant:       in.Variant,
		Routes:        routes,
		TotalDistance: total,
		Feasible:      len(d.violations) == 0,
		Violations:    d.violations,
		Energy:        energy,
		NumVars:       idx.NumVars(),
		Unit:          in.Unit,
		Names:         in.Names,
	}, nil
}

type decoder struct {
	in          *model.Instance
	idx         *encode.Index
	x           []int
	violations  []Violation
	cycleVisits map[int]int
}

func (d *decoder) set(id int) bool { return d.x[id] == 1 }

func (d *decoder) addViolation(kind ViolationKind, vehicle, location int) {
	d.violations = append(d.violations, Violation{Kind: kind, Vehicle: vehicle, Location: location})
}

// edgeRoutes follows selected arcs from the depot per vehicle. Selected arcs
// left over after the walk form cycles not anchored at the depot and are
// reported as broken subtours.
func (d *decoder) edgeRoutes() []Route {
	in, n := d.in, d.in.NumLocations()
	routes := make([]Route, in.NumVehicles)
	for k := 0; k < in.NumVehicles; k++ {
		succ := make(map[int][]int)
		arcs := 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j && d.set(d.idx.EdgeID(k, i, j)) {
					succ[i] = append(succ[i], j)
					arcs++
				}
			}
		}
		for i := range succ {
			sort.Ints(succ[i])
		}

		r := Route{Vehicle: k}
		if len(succ[in.Depot]) > 0 {
			r.Stops = append(r.Stops, in.Depot)
			cur := in.Depot
			for steps := 0; steps <= arcs; steps++ {
				next, ok := pop(succ, cur)
				if !ok {
					break
				}
				r.Stops = append(r.Stops, next)
				r.Distance += in.Matrix[cur][next]
				cur = next
				if cur == in.Depot {
					break
				}
			}
		}

		// Anything still selected is a cycle avoiding the depot.
		starts := make([]int, 0, len(succ))
		for i, tos := range succ {
			if len(tos) > 0 {
				starts = append(starts, i)
			}
		}
		sort.Ints(starts)
		for _, s := range starts {
			if len(succ[s]) == 0 {
				continue
			}
			d.addViolation(BrokenSubtour, k, s)
			if d.cycleVisits == nil {
				d.cycleVisits = make(map[int]int)
			}
			d.cycleVisits[s]++
			cur := s
			for {
				next, ok := pop(succ, cur)
				if !ok || next == s {
					break
				}
				d.cycleVisits[next]++
				cur = next
			}
		}
		routes[k] = r
	}
	return routes
}

func pop(succ map[int][]int, from int) (int, bool) {
	tos := succ[from]
	if len(tos) == 0 {
		return 0, false
	}
	succ[from] = tos[1:]
	return tos[0], true
}

// stepRoutes orders each vehicle's selected (location, slot) pairs by slot.
// Depot selections are padding and anchor slots, not stops. Depot-anchored
// variants get explicit depot endpoints; ride-pooling routes start at their
// first pickup.
func (d *decoder) stepRoutes() []Route {
	in := d.in
	rpp := in.Variant == model.VariantRPP
	routes := make([]Route, in.NumVehicles)
	for k := 0; k < in.NumVehicles; k++ {
		var stops []int
		for s := 0; s < d.idx.Steps; s++ {
			for _, loc := range d.idx.Locations {
				if loc != in.Depot && d.set(d.idx.StepID(k, loc, s)) {
					stops = append(stops, loc)
				}
			}
		}
		r := Route{Vehicle: k}
		if len(stops) > 0 {
			if rpp {
				r.Stops = stops
			} else {
				r.Stops = append(append([]int{in.Depot}, stops...), in.Depot)
			}
			for i := 1; i < len(r.Stops); i++ {
				r.Distance += in.Matrix[r.Stops[i-1]][r.Stops[i]]
			}
		}
		routes[k] = r
	}
	return routes
}

// checkVisits flags locations served more than once or not at all across the
// fleet. Only locations the encoding covers can be missing.
func (d *decoder) checkVisits(routes []Route) {
	counts := make(map[int]int)
	for _, r := range routes {
		for _, loc := range r.Stops {
			if loc != d.in.Depot {
				counts[loc]++
			}
		}
	}
	// Locations inside broken subtours were entered, just not on a route.
	for loc, c := range d.cycleVisits {
		counts[loc] += c
	}
	for loc := 0; loc < d.in.NumLocations(); loc++ {
		if loc == d.in.Depot || !d.idx.Covers(loc) {
			continue
		}
		switch c := counts[loc]; {
		case c == 0:
			d.addViolation(MissingVisit, -1, loc)
		case c > 1:
			d.addViolation(DuplicateVisit, -1, loc)
		}
	}
}

// checkCapacity fills per-route load prefixes and flags the first stop where
// a vehicle's capacity is exceeded. Ride-pooling loads are net: pickups add,
// dropoffs subtract.
func (d *decoder) checkCapacity(routes []Route) {
	in := d.in
	for k := range routes {
		r := &routes[k]
		load := 0
		overflowed := false
		for _, loc := range r.Stops {
			if loc != in.Depot {
				load += in.Demand(loc)
			}
			r.Loads = append(r.Loads, load)
			if in.Capacitated() && load > in.Capacities[k] && !overflowed {
				d.addViolation(CapacityOverflow, k, loc)
				overflowed = true
			}
		}
	}
}

// checkTripOrder verifies pickup-before-dropoff on a single vehicle for each
// trip. Missing endpoints are already reported as missing visits.
func (d *decoder) checkTripOrder(routes []Route) {
	type visit struct{ vehicle, pos int }
	first := make(map[int]visit)
	for _, r := range routes {
		for i, loc := range r.Stops {
			if _, seen := first[loc]; !seen {
				first[loc] = visit{vehicle: r.Vehicle, pos: i}
			}
		}
	}
	for _, t := range d.in.Trips {
		p, pOK := first[t.Pickup]
		dr, dOK := first[t.Dropoff]
		if !pOK || !dOK {
			continue
		}
		if p.vehicle != dr.vehicle || p.pos >= dr.pos {
			d.addViolation(TripOrder, dr.vehicle, t.Dropoff)
		}
	}
}
