package decode

import (
	"fmt"
	"strings"

	"qroute/internal/model"
)

// Render formats a solution for console display: one line per vehicle, then
// the recomputed total and any violations.
func Render(sol *VRPSolution) string {
	var b strings.Builder
	for _, r := range sol.Routes {
		if len(r.Stops) == 0 {
			fmt.Fprintf(&b, "vehicle %d: unused\n", r.Vehicle)
			continue
		}
		names := make([]string, len(r.Stops))
		for i, loc := range r.Stops {
			names[i] = sol.locationName(loc)
		}
		fmt.Fprintf(&b, "vehicle %d: %s", r.Vehicle, strings.Join(names, " -> "))
		if r.Load() > 0 {
			fmt.Fprintf(&b, "  load %d", r.Load())
		}
		fmt.Fprintf(&b, "  distance %s\n", formatDistance(r.Distance, sol.Unit))
	}
	fmt.Fprintf(&b, "total distance: %s\n", formatDistance(sol.TotalDistance, sol.Unit))
	if !sol.Feasible {
		fmt.Fprintf(&b, "infeasible: %d violations\n", len(sol.Violations))
		for _, v := range sol.Violations {
			if v.Vehicle >= 0 {
				fmt.Fprintf(&b, "  %s at %s (vehicle %d)\n", v.Kind, sol.locationName(v.Location), v.Vehicle)
			} else {
				fmt.Fprintf(&b, "  %s at %s\n", v.Kind, sol.locationName(v.Location))
			}
		}
	}
	return b.String()
}

func (sol *VRPSolution) locationName(loc int) string {
	if loc >= 0 && loc < len(sol.Names) {
		return sol.Names[loc]
	}
	return fmt.Sprintf("%d", loc)
}

// formatDistance prints meters as kilometres past 10km and seconds as a
// clock-style duration.
func formatDistance(v float64, unit model.DistanceUnit) string {
	switch unit {
	case model.UnitSeconds:
		total := int(v + 0.5)
		if total >= 3600 {
			return fmt.Sprintf("%dh%02dm", total/3600, (total%3600)/60)
		}
		if total >= 60 {
			return fmt.Sprintf("%dm%02ds", total/60, total%60)
		}
		return fmt.Sprintf("%ds", total)
	default:
		if v > 10000 {
			return fmt.Sprintf("%.1f km", v/1000)
		}
		return fmt.Sprintf("%.0f m", v)
	}
}
