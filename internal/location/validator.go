package location

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidFix = errors.New("invalid fix")

// ValidateFix checks a raw device reading and normalizes it into a Fix with a
// server-assigned timestamp. No side effects; rejected readings never reach
// the pipeline.
func ValidateFix(courierID string, raw RawFix) (Fix, error) {
	if courierID == "" {
		return Fix{}, fmt.Errorf("%w: courier id required", ErrInvalidFix)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return Fix{}, fmt.Errorf("%w: latitude and longitude required", ErrInvalidFix)
	}
	lat, lng := *raw.Latitude, *raw.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return Fix{}, fmt.Errorf("%w: coordinates must be finite", ErrInvalidFix)
	}
	if lat < -90 || lat > 90 {
		return Fix{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidFix, lat)
	}
	if lng < -180 || lng > 180 {
		return Fix{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidFix, lng)
	}

	return Fix{
		ID:         uuid.NewString(),
		CourierID:  courierID,
		Latitude:   lat,
		Longitude:  lng,
		Accuracy:   raw.Accuracy,
		Speed:      raw.Speed,
		Heading:    raw.Heading,
		Altitude:   raw.Altitude,
		Battery:    raw.Battery,
		DeviceID:   raw.DeviceID,
		RecordedAt: time.Now(),
	}, nil
}
