package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ONUR213123232/PaketHane/internal/db"
	"github.com/ONUR213123232/PaketHane/internal/session"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Service reads aggregate figures over the data the tracking pipeline
// produces. Reads run concurrently with ingestion and tolerate slightly
// stale snapshots.
type Service struct {
	db       db.Querier
	sessions *session.Service
}

func NewService(q db.Querier, sessions *session.Service) *Service {
	return &Service{db: q, sessions: sessions}
}

// CurrentSnapshot is the formatted live view of an open session.
type CurrentSnapshot struct {
	HasActiveSession bool   `json:"has_active_session"`
	Status           string `json:"status,omitempty"`
	Duration         string `json:"duration"`
	Distance         string `json:"distance"`
	Deliveries       int    `json:"deliveries"`
	BreakMinutes     int    `json:"break_minutes"`
}

func (s *Service) CurrentSession(ctx context.Context, courierID string) (CurrentSnapshot, error) {
	open, err := s.sessions.Active(ctx, courierID)
	if err != nil {
		return CurrentSnapshot{}, err
	}
	if open == nil {
		return CurrentSnapshot{
			Duration: "00:00",
			Distance: "0.0 km",
		}, nil
	}

	minutes := int(time.Since(open.StartTime).Minutes())
	breakMinutes := 0
	for _, b := range open.Breaks {
		breakMinutes += b.DurationMin
	}

	return CurrentSnapshot{
		HasActiveSession: true,
		Status:           string(open.Status),
		Duration:         fmt.Sprintf("%02d:%02d", minutes/60, minutes%60),
		Distance:         fmt.Sprintf("%.2f km", open.TotalDistanceKm),
		Deliveries:       open.DeliveryCount,
		BreakMinutes:     breakMinutes,
	}, nil
}

// PeriodSummary aggregates completed sessions started within the period.
type PeriodSummary struct {
	Period           string  `json:"period"`
	SessionCount     int     `json:"session_count"`
	TotalDurationMin int     `json:"total_duration_minutes"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	TotalDeliveries  int     `json:"total_deliveries"`
}

func (s *Service) ForPeriod(ctx context.Context, courierID, period string) (PeriodSummary, error) {
	since, err := periodStart(period, time.Now())
	if err != nil {
		return PeriodSummary{}, err
	}

	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_duration_min),0), COALESCE(SUM(total_distance_km),0), COALESCE(SUM(delivery_count),0)
		FROM sessions
		WHERE courier_id = $1 AND status = 'COMPLETED' AND start_time >= $2
	`, courierID, since)

	summary := PeriodSummary{Period: period}
	if err := row.Scan(&summary.SessionCount, &summary.TotalDurationMin, &summary.TotalDistanceKm, &summary.TotalDeliveries); err != nil {
		return PeriodSummary{}, err
	}
	return summary, nil
}

func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "daily":
		return now.AddDate(0, 0, -1), nil
	case "weekly":
		return now.AddDate(0, 0, -7), nil
	case "monthly":
		return now.AddDate(0, -1, 0), nil
	case "yearly":
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
}
