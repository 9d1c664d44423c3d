package courier

import "time"

// Overview is the dashboard row for one courier: identity, freshest fix and
// the open session summary, if any.
type Overview struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	LastLocation  *LastLocation  `json:"last_location,omitempty"`
	ActiveSession *ActiveSession `json:"active_session,omitempty"`
	IsWorking     bool           `json:"is_working"`
	Status        string         `json:"status"`
}

type LastLocation struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed"`
	Battery    float64   `json:"battery"`
	RecordedAt time.Time `json:"recorded_at"`
}

type ActiveSession struct {
	ID               string    `json:"id"`
	StartTime        time.Time `json:"start_time"`
	Status           string    `json:"status"`
	TotalDistanceKm  float64   `json:"total_distance_km"`
	TotalDurationMin int       `json:"total_duration_minutes"`
}

// Roster is the admin listing of courier accounts.
type Roster struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

const (
	StatusOffline = "OFFLINE"
	StatusWorking = "WORKING"
	StatusOnBreak = "ON_BREAK"
)
