package location

import (
	"context"
	"time"

	"github.com/ONUR213123232/PaketHane/internal/db"
)

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

func (s *Service) Insert(ctx context.Context, fix Fix) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO locations (id, courier_id, latitude, longitude, accuracy, speed, heading, altitude, battery, device_id, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, fix.ID, fix.CourierID, fix.Latitude, fix.Longitude, fix.Accuracy, fix.Speed, fix.Heading, fix.Altitude, fix.Battery, fix.DeviceID, fix.RecordedAt)
	return err
}

// Last returns the most recent fix for a courier, or nil when none exists.
func (s *Service) Last(ctx context.Context, courierID string) (*Fix, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, courier_id, latitude, longitude, accuracy, speed, heading, altitude, battery, device_id, recorded_at
		FROM locations
		WHERE courier_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, courierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var f Fix
	if err := rows.Scan(&f.ID, &f.CourierID, &f.Latitude, &f.Longitude, &f.Accuracy, &f.Speed, &f.Heading, &f.Altitude, &f.Battery, &f.DeviceID, &f.RecordedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

type HistoryQuery struct {
	CourierID string
	Start     time.Time
	End       time.Time
	Limit     int
}

func (s *Service) History(ctx context.Context, q HistoryQuery) ([]Fix, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	start := q.Start
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	end := q.End
	if end.IsZero() {
		end = time.Now()
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, courier_id, latitude, longitude, accuracy, speed, heading, altitude, battery, device_id, recorded_at
		FROM locations
		WHERE courier_id = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at DESC
		LIMIT $4
	`, q.CourierID, start, end, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []Fix
	for rows.Next() {
		var f Fix
		if err := rows.Scan(&f.ID, &f.CourierID, &f.Latitude, &f.Longitude, &f.Accuracy, &f.Speed, &f.Heading, &f.Altitude, &f.Battery, &f.DeviceID, &f.RecordedAt); err != nil {
			return nil, err
		}
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}
