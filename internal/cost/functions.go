package cost

import (
	"math"

	"qroute/internal/model"
)

// Built-in cost functions. Each one satisfies model.CostFunc and returns a
// square matrix with zero diagonal.

func Manhattan(locs []model.Coord, _ model.DistanceUnit) ([][]float64, error) {
	return matrixOf(locs, func(a, b model.Coord) float64 {
		return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
	}), nil
}

// Euclidean rounds to the nearest integer so matrices stay stable across
// platforms.
func Euclidean(locs []model.Coord, _ model.DistanceUnit) ([][]float64, error) {
	return matrixOf(locs, func(a, b model.Coord) float64 {
		return math.Round(math.Hypot(a.X-b.X, a.Y-b.Y))
	}), nil
}

// Haversine treats X as latitude and Y as longitude, in degrees, and returns
// great-circle metres.
func Haversine(locs []model.Coord, _ model.DistanceUnit) ([][]float64, error) {
	return matrixOf(locs, func(a, b model.Coord) float64 {
		return haversineMeters(a.X, a.Y, b.X, b.Y)
	}), nil
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

func matrixOf(locs []model.Coord, d func(a, b model.Coord) float64) [][]float64 {
	m := make([][]float64, len(locs))
	for i, a := range locs {
		row := make([]float64, len(locs))
		for j, b := range locs {
			if i != j {
				row[j] = d(a, b)
			}
		}
		m[i] = row
	}
	return m
}

// ByName resolves a configured cost function name; empty defaults to
// Manhattan.
func ByName(name string) (model.CostFunc, bool) {
	switch name {
	case "", "manhattan":
		return Manhattan, true
	case "euclidean":
		return Euclidean, true
	case "haversine":
		return Haversine, true
	}
	return nil, false
}
