package model

// Core problem types shared by the formulation and decoding layers.

// DistanceUnit only affects display; solving is unit-agnostic.
type DistanceUnit string

const (
	UnitMeters  DistanceUnit = "meters"
	UnitSeconds DistanceUnit = "seconds"
)

// Coord is a planar location. For haversine cost functions X is latitude
// and Y is longitude.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trip is a pickup/dropoff pair that must be served by the same vehicle,
// pickup first. Used by the ride-pooling variant only.
type Trip struct {
	Pickup  int `json:"pickup"`
	Dropoff int `json:"dropoff"`
	Demand  int `json:"demand"`
}

// Variant is the closed set of problem classes the dispatcher can select.
type Variant string

const (
	VariantVRP   Variant = "vrp"   // no capacities
	VariantCVRP  Variant = "cvrp"  // uniform capacity
	VariantMCVRP Variant = "mcvrp" // per-vehicle capacities
	VariantRPP   Variant = "rpp"   // trips instead of demands
)

// CostFunc computes a full distance matrix from coordinates. Implementations
// live in internal/cost; the signature is declared here so the model package
// does not depend on them.
type CostFunc func(locs []Coord, unit DistanceUnit) ([][]float64, error)

// Params is the raw caller input to Dispatch. Exactly one instance variant
// matches any valid combination of fields.
type Params struct {
	NumVehicles int          `json:"numVehicles"`
	Locations   []Coord      `json:"locations"`
	Names       []string     `json:"names,omitempty"`
	Capacity    int          `json:"capacity,omitempty"`   // uniform; 0 = unset
	Capacities  []int        `json:"capacities,omitempty"` // heterogeneous; nil = unset
	Demands     []int        `json:"demands,omitempty"`
	Trips       []Trip       `json:"trips,omitempty"`
	Matrix      [][]float64  `json:"matrix,omitempty"` // supplied directly, or computed via Cost
	Cost        CostFunc     `json:"-"`
	Unit        DistanceUnit `json:"unit,omitempty"`
}

// Instance is the immutable, validated description of one routing problem.
// Built only by Dispatch; safe for concurrent reads afterwards.
type Instance struct {
	Variant     Variant
	NumVehicles int
	Locations   []Coord
	Names       []string
	Capacities  []int // len == NumVehicles, nil when uncapacitated
	Demands     []int // per location; nil for RPP
	Trips       []Trip
	Matrix      [][]float64
	Depot       int
	Unit        DistanceUnit
}

// NumLocations is the dimension of the distance matrix.
func (in *Instance) NumLocations() int { return len(in.Matrix) }

// Capacitated reports whether capacity constraints apply.
func (in *Instance) Capacitated() bool { return len(in.Capacities) > 0 }

// Demand returns the demand at location idx. For RPP it is the net of
// pickups minus dropoffs originating there; for uncapacitated variants it
// defaults to 1 per non-depot stop so route-length bounds stay meaningful.
func (in *Instance) Demand(idx int) int {
	if in.Variant == VariantRPP {
		d := 0
		for _, t := range in.Trips {
			if t.Pickup == idx {
				d += t.Demand
			}
			if t.Dropoff == idx {
				d -= t.Demand
			}
		}
		return d
	}
	if in.Demands != nil {
		return in.Demands[idx]
	}
	if idx == in.Depot {
		return 0
	}
	return 1
}

// MaxDistance returns the largest matrix entry; used by builders to scale
// penalty weights.
func (in *Instance) MaxDistance() float64 {
	max := 0.0
	for _, row := range in.Matrix {
		for _, d := range row {
			if d > max {
				max = d
			}
		}
	}
	return max
}
