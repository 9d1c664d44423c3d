// Package report periodically logs the GPS status of every open session so
// operators can spot couriers whose devices went quiet. The sweep only reads;
// it never mutates tracking state.
package report

import (
	"context"
	"log"
	"time"

	"github.com/ONUR213123232/PaketHane/internal/db"
)

type Sweeper struct {
	db       db.Querier
	interval time.Duration
}

func NewSweeper(q db.Querier, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{db: q, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

type statusLine struct {
	courierName string
	status      string
	lastSeen    *time.Time
}

func (s *Sweeper) sweep(ctx context.Context) {
	lines, err := s.collect(ctx)
	if err != nil {
		log.Printf("report: sweep failed: %v", err)
		return
	}
	if len(lines) == 0 {
		return
	}

	log.Printf("report: %d couriers on shift", len(lines))
	for _, line := range lines {
		if line.lastSeen == nil {
			log.Printf("report: %s [%s] no GPS data", line.courierName, line.status)
			continue
		}
		log.Printf("report: %s [%s] last fix %ds ago", line.courierName, line.status,
			int(time.Since(*line.lastSeen).Seconds()))
	}
}

func (s *Sweeper) collect(ctx context.Context) ([]statusLine, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.name, sess.status, l.recorded_at
		FROM sessions sess
		JOIN users u ON u.id = sess.courier_id
		LEFT JOIN LATERAL (
			SELECT recorded_at FROM locations
			WHERE courier_id = sess.courier_id
			ORDER BY recorded_at DESC LIMIT 1
		) l ON true
		WHERE sess.status IN ('ACTIVE','ON_BREAK')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []statusLine
	for rows.Next() {
		var line statusLine
		if err := rows.Scan(&line.courierName, &line.status, &line.lastSeen); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
