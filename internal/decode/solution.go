package decode

import "qroute/internal/model"

// ViolationKind classifies one detected constraint breach.
type ViolationKind string

const (
	DuplicateVisit   ViolationKind = "duplicate_visit"
	MissingVisit     ViolationKind = "missing_visit"
	BrokenSubtour    ViolationKind = "broken_subtour"
	CapacityOverflow ViolationKind = "capacity_overflow"
	TripOrder        ViolationKind = "trip_order"
)

// Violation pinpoints one breach. Vehicle is -1 for fleet-wide findings such
// as a location nobody visited.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Vehicle  int           `json:"vehicle"`
	Location int           `json:"location"`
}

// Route is one vehicle's reconstructed tour. Stops include the depot
// endpoints for depot-anchored variants. Loads hold the carried load after
// each stop.
type Route struct {
	Vehicle  int     `json:"vehicle"`
	Stops    []int   `json:"stops"`
	Loads    []int   `json:"loads"`
	Distance float64 `json:"distance"`
}

// VRPSolution is the validated decode result. It is created only by Decode,
// never mutated afterwards, and round-trips through JSON losslessly. Energy
// is the backend's reported value kept for diagnostics; TotalDistance is
// always recomputed from the distance matrix.
type VRPSolution struct {
	Variant       model.Variant      `json:"variant"`
	Routes        []Route            `json:"routes"`
	TotalDistance float64            `json:"totalDistance"`
	Feasible      bool               `json:"feasible"`
	Violations    []Violation        `json:"violations,omitempty"`
	Energy        float64            `json:"energy"`
	NumVars       int                `json:"numVars"`
	SampleCount   int                `json:"sampleCount"`
	Unit          model.DistanceUnit `json:"unit"`
	Names         []string           `json:"names,omitempty"`
}

// Load returns the peak carried load of route r, zero for an empty route.
func (r Route) Load() int {
	if len(r.Loads) == 0 {
		return 0
	}
	max := 0
	for _, l := range r.Loads {
		if l > max {
			max = l
		}
	}
	return max
}
