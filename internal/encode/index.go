package encode

import (
	"fmt"
	"sort"

	"qroute/internal/model"
)

// Strategy selects how binary decision variables map onto routing choices.
type Strategy string

const (
	// StrategyEdge allocates one variable per (vehicle, from, to) directed
	// arc. Subtour elimination needs extra constraints but the objective is
	// linear in the variables.
	StrategyEdge Strategy = "edge"
	// StrategyStep allocates one variable per (vehicle, location, slot).
	// Slot ordering rules out subtours by construction at the cost of more
	// variables.
	StrategyStep Strategy = "step"
)

// SizeError reports that an encoding would exceed the configured variable
// bound. Count is the number of variables the encoding would need.
type SizeError struct {
	Count int
	Limit int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("model needs %d variables, limit is %d", e.Count, e.Limit)
}

// Index is the bidirectional mapping between flat variable ids and their
// routing meaning. Ids are contiguous from 0 and both directions are O(1)
// closed forms. Built once per instance, read-only afterwards.
type Index struct {
	Strategy    Strategy
	NumVehicles int

	// Locations holds the instance location indices covered by step
	// variables, in id order. For edge encodings it is nil and variables
	// range over the full matrix.
	Locations []int
	// Steps is the number of visit slots per vehicle (step strategy only).
	Steps int

	n       int   // matrix dimension
	pos     []int // instance location -> offset in Locations, -1 if absent
	numVars int
}

// New builds the variable index for in under the given strategy. limit
// bounds the variable count; 0 or negative disables the check.
func New(in *model.Instance, s Strategy, limit int) (*Index, error) {
	n := in.NumLocations()
	x := &Index{Strategy: s, NumVehicles: in.NumVehicles, n: n}

	switch s {
	case StrategyEdge:
		// Arc variables carry no slot ordering, so pickup-before-dropoff
		// pairing cannot be expressed; ride pooling is step-only.
		if in.Variant == model.VariantRPP {
			return nil, &model.ConfigError{Reason: "trips require the step encoding"}
		}
		x.numVars = in.NumVehicles * n * (n - 1)
	case StrategyStep:
		x.Locations = stepLocations(in)
		x.Steps = stepBound(in, len(x.Locations))
		x.pos = make([]int, n)
		for i := range x.pos {
			x.pos[i] = -1
		}
		for off, loc := range x.Locations {
			x.pos[loc] = off
		}
		x.numVars = in.NumVehicles * len(x.Locations) * x.Steps
	default:
		return nil, fmt.Errorf("unknown encoding strategy %q", s)
	}

	if limit > 0 && x.numVars > limit {
		return nil, &SizeError{Count: x.numVars, Limit: limit}
	}
	return x, nil
}

// NumVars is the total variable count; valid assignment vectors have exactly
// this length.
func (x *Index) NumVars() int { return x.numVars }

// EdgeID returns the variable id for vehicle traversing the arc from -> to.
// from and to must differ.
func (x *Index) EdgeID(vehicle, from, to int) int {
	off := to
	if to > from {
		off--
	}
	return vehicle*x.n*(x.n-1) + from*(x.n-1) + off
}

// Edge is the inverse of EdgeID.
func (x *Index) Edge(id int) (vehicle, from, to int) {
	per := x.n * (x.n - 1)
	vehicle = id / per
	r := id % per
	from = r / (x.n - 1)
	to = r % (x.n - 1)
	if to >= from {
		to++
	}
	return vehicle, from, to
}

// StepID returns the variable id for vehicle visiting location at the given
// slot. location must be one of x.Locations.
func (x *Index) StepID(vehicle, location, slot int) int {
	return vehicle*len(x.Locations)*x.Steps + x.pos[location]*x.Steps + slot
}

// Step is the inverse of StepID.
func (x *Index) Step(id int) (vehicle, location, slot int) {
	per := len(x.Locations) * x.Steps
	vehicle = id / per
	r := id % per
	return vehicle, x.Locations[r/x.Steps], r % x.Steps
}

// Covers reports whether location has step variables. Locations outside the
// covered set are structurally unreachable under the step encoding.
func (x *Index) Covers(location int) bool {
	if x.Strategy == StrategyEdge {
		return location >= 0 && location < x.n
	}
	return location >= 0 && location < x.n && x.pos[location] >= 0
}

// stepLocations is the set of locations that get visit slots. The depot is
// always included: it anchors the first and last slot and pads unused slots
// at zero cost. Ride-pooling instances only route between trip endpoints, so
// everything else is excluded up front to keep the model small.
func stepLocations(in *model.Instance) []int {
	if in.Variant != model.VariantRPP {
		locs := make([]int, in.NumLocations())
		for i := range locs {
			locs[i] = i
		}
		return locs
	}
	used := map[int]bool{in.Depot: true}
	for _, t := range in.Trips {
		used[t.Pickup] = true
		used[t.Dropoff] = true
	}
	locs := make([]int, 0, len(used))
	for loc := range used {
		locs = append(locs, loc)
	}
	sort.Ints(locs)
	return locs
}

// stepBound caps the slots per vehicle, depot endpoints included. A route
// can never visit more stops than exist, and under capacity it can carry at
// most capacity divided by the smallest positive demand. Ride-pooling routes
// serve one start slot plus every trip endpoint at most once.
func stepBound(in *model.Instance, numLocations int) int {
	if in.Variant == model.VariantRPP {
		return 2*len(in.Trips) + 1
	}
	steps := numLocations + 1
	if in.Capacitated() {
		maxCap := in.Capacities[0]
		for _, c := range in.Capacities {
			if c > maxCap {
				maxCap = c
			}
		}
		minDemand := 0
		for i := 0; i < in.NumLocations(); i++ {
			if i == in.Depot {
				continue
			}
			if d := in.Demand(i); d > 0 && (minDemand == 0 || d < minDemand) {
				minDemand = d
			}
		}
		if minDemand > 0 && maxCap/minDemand+2 < steps {
			steps = maxCap/minDemand + 2
		}
	}
	if steps < 3 {
		steps = 3
	}
	return steps
}
