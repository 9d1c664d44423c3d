package courier

import (
	"context"
	"time"

	"github.com/ONUR213123232/PaketHane/internal/db"
	"github.com/ONUR213123232/PaketHane/internal/session"
)

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

// Active returns every courier with their freshest fix and open session, so
// the dashboard can show offline couriers too.
func (s *Service) Active(ctx context.Context) ([]Overview, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.name, u.email, u.phone,
		       l.latitude, l.longitude, l.speed, l.battery, l.recorded_at,
		       sess.id, sess.start_time, sess.status, sess.total_distance_km, sess.total_duration_min
		FROM users u
		LEFT JOIN LATERAL (
			SELECT latitude, longitude, speed, battery, recorded_at
			FROM locations WHERE courier_id = u.id
			ORDER BY recorded_at DESC LIMIT 1
		) l ON true
		LEFT JOIN LATERAL (
			SELECT id, start_time, status, total_distance_km, total_duration_min
			FROM sessions WHERE courier_id = u.id AND status IN ('ACTIVE','ON_BREAK')
			ORDER BY start_time DESC LIMIT 1
		) sess ON true
		WHERE u.role = 'COURIER'
		ORDER BY u.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var couriers []Overview
	for rows.Next() {
		var o Overview
		var lat, lng, speed, battery *float64
		var recordedAt *time.Time
		var sessID, sessStatus *string
		var sessStart *time.Time
		var distKm *float64
		var durMin *int

		if err := rows.Scan(&o.ID, &o.Name, &o.Email, &o.Phone,
			&lat, &lng, &speed, &battery, &recordedAt,
			&sessID, &sessStart, &sessStatus, &distKm, &durMin); err != nil {
			return nil, err
		}

		if lat != nil && lng != nil {
			loc := LastLocation{Latitude: *lat, Longitude: *lng}
			if speed != nil {
				loc.Speed = *speed
			}
			if battery != nil {
				loc.Battery = *battery
			}
			if recordedAt != nil {
				loc.RecordedAt = *recordedAt
			}
			o.LastLocation = &loc
		}

		o.Status = StatusOffline
		if sessID != nil && sessStatus != nil {
			o.IsWorking = true
			o.Status = StatusWorking
			if *sessStatus == string(session.StatusOnBreak) {
				o.Status = StatusOnBreak
			}
			active := ActiveSession{ID: *sessID, Status: *sessStatus}
			if sessStart != nil {
				active.StartTime = *sessStart
			}
			if distKm != nil {
				active.TotalDistanceKm = *distKm
			}
			if durMin != nil {
				active.TotalDurationMin = *durMin
			}
			o.ActiveSession = &active
		}
		couriers = append(couriers, o)
	}
	return couriers, rows.Err()
}

// All is the admin roster of courier accounts.
func (s *Service) All(ctx context.Context) ([]Roster, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, email, phone, active, created_at, last_login
		FROM users
		WHERE role = 'COURIER'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var couriers []Roster
	for rows.Next() {
		var r Roster
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Active, &r.CreatedAt, &r.LastLogin); err != nil {
			return nil, err
		}
		couriers = append(couriers, r)
	}
	return couriers, rows.Err()
}
