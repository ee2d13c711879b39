package model

// Dispatch selects the problem variant implied by the parameter shape and
// builds a validated Instance. The mapping is pure and total: every valid
// combination of fields selects exactly one variant, and every invalid
// combination fails with a ConfigError before any model is built.
//
//	no capacities            -> VRP
//	uniform capacity         -> CVRP
//	per-vehicle capacities   -> MCVRP
//	trips instead of demands -> RPP
func Dispatch(p Params) (*Instance, error) {
	if p.NumVehicles < 1 {
		return nil, configErrorf("at least one vehicle required, got %d", p.NumVehicles)
	}
	if len(p.Locations) < 2 && p.Matrix == nil {
		return nil, configErrorf("at least a depot and one stop required, got %d locations", len(p.Locations))
	}
	if p.Demands != nil && p.Trips != nil {
		return nil, configErrorf("demands and trips are mutually exclusive")
	}
	if p.Capacity > 0 && p.Capacities != nil {
		return nil, configErrorf("capacity and capacities are mutually exclusive")
	}
	if p.Capacity < 0 {
		return nil, configErrorf("capacity must be positive, got %d", p.Capacity)
	}

	caps := p.Capacities
	if p.Capacity > 0 {
		caps = make([]int, p.NumVehicles)
		for i := range caps {
			caps[i] = p.Capacity
		}
	}
	if caps != nil {
		if len(caps) != p.NumVehicles {
			return nil, configErrorf("got %d capacities for %d vehicles", len(caps), p.NumVehicles)
		}
		for i, c := range caps {
			if c < 1 {
				return nil, configErrorf("vehicle %d has non-positive capacity %d", i, c)
			}
		}
		if p.Demands == nil && p.Trips == nil {
			return nil, configErrorf("capacities specified without demands or trips")
		}
	}

	unit := p.Unit
	if unit == "" {
		unit = UnitMeters
	}

	matrix := p.Matrix
	if matrix == nil {
		costFn := p.Cost
		if costFn == nil {
			costFn = manhattan
		}
		var err error
		matrix, err = costFn(p.Locations, unit)
		if err != nil {
			return nil, err
		}
	}
	if err := validateMatrix(matrix, len(p.Locations)); err != nil {
		return nil, err
	}
	n := len(matrix)

	if p.Names != nil && len(p.Names) != n {
		return nil, configErrorf("got %d location names for %d locations", len(p.Names), n)
	}

	if p.Demands != nil {
		if len(p.Demands) != n {
			return nil, configErrorf("got %d demands for %d locations", len(p.Demands), n)
		}
		for i, d := range p.Demands {
			if d < 0 {
				return nil, configErrorf("location %d has negative demand %d", i, d)
			}
			if caps != nil && i != 0 && d < 1 {
				return nil, configErrorf("capacitated location %d needs demand >= 1", i)
			}
		}
	}

	for ti, t := range p.Trips {
		if t.Pickup < 0 || t.Pickup >= n || t.Dropoff < 0 || t.Dropoff >= n {
			return nil, configErrorf("trip %d references undefined location", ti)
		}
		if t.Pickup == t.Dropoff {
			return nil, configErrorf("trip %d has identical pickup and dropoff %d", ti, t.Pickup)
		}
		if t.Demand < 1 {
			return nil, configErrorf("trip %d needs demand >= 1, got %d", ti, t.Demand)
		}
		if caps != nil && t.Demand > maxInt(caps) {
			return nil, configErrorf("trip %d demand %d exceeds every vehicle capacity", ti, t.Demand)
		}
	}

	in := &Instance{
		NumVehicles: p.NumVehicles,
		Locations:   p.Locations,
		Names:       p.Names,
		Capacities:  caps,
		Demands:     p.Demands,
		Trips:       p.Trips,
		Matrix:      matrix,
		Depot:       0,
		Unit:        unit,
	}

	switch {
	case p.Trips != nil:
		in.Variant = VariantRPP
		in.Demands = nil
	case caps == nil:
		in.Variant = VariantVRP
	case uniform(caps):
		in.Variant = VariantCVRP
	default:
		in.Variant = VariantMCVRP
	}
	return in, nil
}

func validateMatrix(m [][]float64, numLocations int) error {
	n := len(m)
	if numLocations > 0 && n != numLocations {
		return configErrorf("distance matrix dimension %d does not match %d locations", n, numLocations)
	}
	for i, row := range m {
		if len(row) != n {
			return configErrorf("distance matrix row %d has %d entries, want %d", i, len(row), n)
		}
		if row[i] != 0 {
			return configErrorf("distance matrix diagonal entry (%d,%d) must be zero", i, i)
		}
		for j, d := range row {
			if d < 0 {
				return configErrorf("distance matrix entry (%d,%d) is negative", i, j)
			}
		}
	}
	return nil
}

// Default cost function; richer ones live in internal/cost. Kept here so the
// model package has no dependency on them.
func manhattan(locs []Coord, _ DistanceUnit) ([][]float64, error) {
	m := make([][]float64, len(locs))
	for i, a := range locs {
		row := make([]float64, len(locs))
		for j, b := range locs {
			row[j] = abs(a.X-b.X) + abs(a.Y-b.Y)
		}
		m[i] = row
	}
	return m, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func uniform(vals []int) bool {
	for i := 1; i < len(vals); i++ {
		if vals[i] != vals[0] {
			return false
		}
	}
	return true
}

func maxInt(vals []int) int {
	max := vals[0]
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return max
}
