package tracking

import "delivery-tracking-service/internal/domain"

// ReconcileStops maps the optimized visiting order returned by the routing
// service back onto the delivery records. order holds indices into coords,
// which are the stop coordinates as they were sent; deliveries are matched by
// epsilon coordinate comparison because the service speaks only in
// coordinates.
//
// The result is always a permutation of stops: out-of-range indices are
// discarded, a delivery is placed at most once, and deliveries the service
// dropped are appended at the end. A single-stop order of [-1] is a service
// sentinel meaning "no permutation needed" and must not be used as an index.
func ReconcileStops(order []int, stops []domain.Delivery, coords []domain.Coordinate) []domain.Delivery {
	if len(stops) == 0 {
		return nil
	}

	if len(stops) == 1 && len(order) == 1 && order[0] == -1 {
		return []domain.Delivery{stops[0]}
	}

	ordered := make([]domain.Delivery, 0, len(stops))
	placed := make([]bool, len(stops))

	for _, idx := range order {
		if idx < 0 || idx >= len(coords) {
			continue
		}
		target := coords[idx]
		for i := range stops {
			if placed[i] {
				continue
			}
			if stops[i].Destination.Matches(target) {
				placed[i] = true
				ordered = append(ordered, stops[i])
				break
			}
		}
	}

	// Defensive completeness: every stop appears exactly once even if the
	// service dropped or duplicated a waypoint.
	for i := range stops {
		if !placed[i] {
			ordered = append(ordered, stops[i])
		}
	}

	return ordered
}
