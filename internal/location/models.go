package location

import "time"

// Fix is one validated GPS reading. Immutable once created; the tracker keeps
// the most recent accepted fix per courier as the distance reference.
type Fix struct {
	ID         string    `json:"id"`
	CourierID  string    `json:"courier_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Speed      float64   `json:"speed"`
	Heading    float64   `json:"heading"`
	Altitude   float64   `json:"altitude"`
	Battery    float64   `json:"battery"`
	DeviceID   string    `json:"device_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RawFix is the wire shape of a device reading. Latitude and longitude are
// pointers so a missing field is distinguishable from zero.
type RawFix struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Speed     float64  `json:"speed"`
	Heading   float64  `json:"heading"`
	Altitude  float64  `json:"altitude"`
	Battery   float64  `json:"battery"`
	DeviceID  string   `json:"device_id"`
}
