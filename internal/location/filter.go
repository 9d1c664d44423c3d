package location

import "github.com/ONUR213123232/PaketHane/internal/shared/geo"

// Movement thresholds for consecutive fixes. Below the minimum the reading is
// GPS jitter; at or above the maximum it cannot be real travel between two
// ~10 s fixes (an implicit ~180 km/h cap) and is treated as a GPS error.
const (
	MinMovementKm  = 0.01
	MaxPlausibleKm = 0.5
)

type FilterReason string

const (
	FilterAccepted              FilterReason = "accepted"
	FilterDriftSuppressed       FilterReason = "drift-suppressed"
	FilterImplausibleSuppressed FilterReason = "implausible-suppressed"
	FilterNoPrevious            FilterReason = "no-previous"
)

// FilterDistance decides how much of the movement between the previous fix
// and the current one counts toward a session's distance. Suppressed
// movement contributes zero; suppression is a normal outcome, not an error.
// Pure function over two fixes.
func FilterDistance(prev *Fix, cur Fix) (float64, FilterReason) {
	if prev == nil {
		return 0, FilterNoPrevious
	}

	d := geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	switch {
	case d < MinMovementKm:
		return 0, FilterDriftSuppressed
	case d >= MaxPlausibleKm:
		return 0, FilterImplausibleSuppressed
	default:
		return d, FilterAccepted
	}
}
