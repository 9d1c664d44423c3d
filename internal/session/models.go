package session

import "time"

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusOnBreak   Status = "ON_BREAK"
	StatusCompleted Status = "COMPLETED"
)

// Courier identifies the worker an operation applies to. The display name
// rides along for broadcast payloads.
type Courier struct {
	ID   string
	Name string
}

// BreakInterval is one pause inside a session. End is nil while the break is
// open; DurationMin is computed and fixed when the break closes.
type BreakInterval struct {
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end"`
	DurationMin int        `json:"duration_minutes"`
}

// Session is one continuous work period for one courier. At most one session
// with status ACTIVE or ON_BREAK exists per courier; a COMPLETED session is
// immutable.
type Session struct {
	ID               string          `json:"id"`
	CourierID        string          `json:"courier_id"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          *time.Time      `json:"end_time,omitempty"`
	Status           Status          `json:"status"`
	TotalDistanceKm  float64         `json:"total_distance_km"`
	TotalDurationMin int             `json:"total_duration_minutes"`
	DeliveryCount    int             `json:"delivery_count"`
	Breaks           []BreakInterval `json:"breaks"`
}

// Open reports whether the session still accepts mutations.
func (s *Session) Open() bool {
	return s.Status == StatusActive || s.Status == StatusOnBreak
}

// openBreak returns the trailing break interval if it has not ended yet.
func (s *Session) openBreak() *BreakInterval {
	if len(s.Breaks) == 0 {
		return nil
	}
	last := &s.Breaks[len(s.Breaks)-1]
	if last.End == nil {
		return last
	}
	return nil
}

// Stats is the broadcast payload for running totals.
type Stats struct {
	TotalDistanceKm  float64 `json:"total_distance_km"`
	TotalDurationMin int     `json:"total_duration_minutes"`
	DeliveryCount    int     `json:"delivery_count"`
}

func (s *Session) stats() Stats {
	return Stats{
		TotalDistanceKm:  s.TotalDistanceKm,
		TotalDurationMin: s.TotalDurationMin,
		DeliveryCount:    s.DeliveryCount,
	}
}

// HistoryStats aggregates a courier's completed sessions.
type HistoryStats struct {
	TotalSessions    int     `json:"total_sessions"`
	TotalDurationMin int     `json:"total_duration_minutes"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	AvgDurationMin   int     `json:"avg_duration_minutes"`
}
