package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ONUR213123232/PaketHane/internal/audit"
	"github.com/ONUR213123232/PaketHane/internal/db"
	"github.com/ONUR213123232/PaketHane/internal/stream"

	"github.com/google/uuid"
)

// Service owns the per-courier work-session state machine:
// NONE -> ACTIVE -> ON_BREAK -> ACTIVE -> ... -> COMPLETED.
// Callers must serialize mutating operations per courier; the tracker's
// keyed lock does that.
type Service struct {
	db    db.Querier
	hub   *stream.Hub
	audit *audit.Service
}

func NewService(q db.Querier, hub *stream.Hub, auditSvc *audit.Service) *Service {
	return &Service{db: q, hub: hub, audit: auditSvc}
}

const openSessionQuery = `
	SELECT id, courier_id, start_time, end_time, status, total_distance_km, total_duration_min, delivery_count, breaks
	FROM sessions
	WHERE courier_id = $1 AND status IN ('ACTIVE','ON_BREAK')
	ORDER BY start_time DESC`

// findOpen returns the courier's open session, nil when there is none, or
// ErrConflict when the store holds more than one open row. The conflict case
// is an invariant violation; nothing here guesses which row is authoritative.
func (s *Service) findOpen(ctx context.Context, courierID string) (*Session, error) {
	rows, err := s.db.Query(ctx, openSessionQuery, courierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found *Session
	for rows.Next() {
		if found != nil {
			return nil, fmt.Errorf("%w: courier %s", ErrConflict, courierID)
		}
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		found = sess
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return found, nil
}

type sessionRow interface {
	Scan(dest ...any) error
}

func scanSession(row sessionRow) (*Session, error) {
	var sess Session
	var breaksRaw []byte
	if err := row.Scan(&sess.ID, &sess.CourierID, &sess.StartTime, &sess.EndTime, &sess.Status,
		&sess.TotalDistanceKm, &sess.TotalDurationMin, &sess.DeliveryCount, &breaksRaw); err != nil {
		return nil, err
	}
	if len(breaksRaw) > 0 {
		if err := json.Unmarshal(breaksRaw, &sess.Breaks); err != nil {
			return nil, fmt.Errorf("decode breaks for session %s: %w", sess.ID, err)
		}
	}
	return &sess, nil
}

// Start opens a new session for the courier. Fails when one is already open.
func (s *Service) Start(ctx context.Context, courier Courier) (Session, error) {
	open, err := s.findOpen(ctx, courier.ID)
	if err != nil {
		return Session{}, err
	}
	if open != nil {
		return Session{}, ErrAlreadyActive
	}

	sess := Session{
		ID:        uuid.NewString(),
		CourierID: courier.ID,
		StartTime: time.Now(),
		Status:    StatusActive,
		Breaks:    []BreakInterval{},
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, courier_id, start_time, status, total_distance_km, total_duration_min, delivery_count, breaks)
		VALUES ($1,$2,$3,$4,0,0,0,'[]')
	`, sess.ID, sess.CourierID, sess.StartTime, sess.Status); err != nil {
		return Session{}, err
	}

	s.publish(stream.TopicSessionStarted, eventPayload(courier, sess.ID, map[string]any{
		"start_time": sess.StartTime,
	}))
	s.audit.Log(ctx, courier.ID, audit.ActionSessionStarted, map[string]any{"session_id": sess.ID})
	return sess, nil
}

// StartBreak pauses an ACTIVE session.
func (s *Service) StartBreak(ctx context.Context, courier Courier) (Session, error) {
	open, err := s.findOpen(ctx, courier.ID)
	if err != nil {
		return Session{}, err
	}
	if open == nil || open.Status != StatusActive {
		return Session{}, ErrNoActiveSession
	}

	open.Breaks = append(open.Breaks, BreakInterval{Start: time.Now()})
	open.Status = StatusOnBreak
	if err := s.saveStatusAndBreaks(ctx, open); err != nil {
		return Session{}, err
	}

	s.publish(stream.TopicBreakStarted, eventPayload(courier, open.ID, nil))
	return *open, nil
}

// EndBreak resumes an ON_BREAK session, closing the open break interval and
// fixing its duration.
func (s *Service) EndBreak(ctx context.Context, courier Courier) (Session, error) {
	open, err := s.findOpen(ctx, courier.ID)
	if err != nil {
		return Session{}, err
	}
	if open == nil || open.Status != StatusOnBreak {
		return Session{}, ErrNoOpenBreak
	}

	if br := open.openBreak(); br != nil {
		now := time.Now()
		br.End = &now
		br.DurationMin = roundMinutes(now.Sub(br.Start))
	} else {
		// Should not happen under correct sequencing; resume anyway.
		log.Printf("session %s is ON_BREAK with no open break interval", open.ID)
	}
	open.Status = StatusActive
	if err := s.saveStatusAndBreaks(ctx, open); err != nil {
		return Session{}, err
	}

	s.publish(stream.TopicBreakEnded, eventPayload(courier, open.ID, nil))
	return *open, nil
}

// RecordMovement folds an accepted movement into the open session's totals
// and refreshes the running duration. Returns nil without error when the
// courier has no open session: the fix is still kept in the location log, it
// just doesn't mutate any session.
func (s *Service) RecordMovement(ctx context.Context, courier Courier, distanceKm float64) (*Session, error) {
	open, err := s.findOpen(ctx, courier.ID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, nil
	}

	open.TotalDistanceKm += distanceKm
	// Wall-clock elapsed, so the figure keeps growing during breaks.
	open.TotalDurationMin = floorMinutes(time.Since(open.StartTime))
	if _, err := s.db.Exec(ctx, `
		UPDATE sessions SET total_distance_km = $2, total_duration_min = $3
		WHERE id = $1
	`, open.ID, open.TotalDistanceKm, open.TotalDurationMin); err != nil {
		return nil, err
	}

	s.publishStats(courier, open)
	return open, nil
}

// RecordDelivery increments the delivery counter on the open session.
func (s *Service) RecordDelivery(ctx context.Context, courier Courier) (Session, error) {
	open, err := s.findOpen(ctx, courier.ID)
	if err != nil {
		return Session{}, err
	}
	if open == nil {
		return Session{}, ErrNoActiveSession
	}

	open.DeliveryCount++
	if _, err := s.db.Exec(ctx, `
		UPDATE sessions SET delivery_count = $2
		WHERE id = $1
	`, open.ID, open.DeliveryCount); err != nil {
		return Session{}, err
	}

	s.publish(stream.TopicDeliveryCompleted, eventPayload(courier, open.ID, map[string]any{
		"delivery_count": open.DeliveryCount,
	}))
	s.publishStats(courier, open)
	s.audit.Log(ctx, courier.ID, audit.ActionDeliveryCompleted, map[string]any{
		"session_id":     open.ID,
		"delivery_count": open.DeliveryCount,
	})
	return *open, nil
}

// End completes the open session. The final duration is recomputed from the
// wall clock; when the device reports its own distance total it overrides
// the accumulated value. A COMPLETED session never mutates again, so a
// replayed End fails with ErrNoActiveSession.
func (s *Service) End(ctx context.Context, courier Courier, reportedKm *float64) (Session, error) {
	open, err := s.findOpen(ctx, courier.ID)
	if err != nil {
		return Session{}, err
	}
	if open == nil {
		return Session{}, ErrNoActiveSession
	}

	now := time.Now()
	open.EndTime = &now
	open.TotalDurationMin = roundMinutes(now.Sub(open.StartTime))
	if reportedKm != nil {
		open.TotalDistanceKm = *reportedKm
	}
	open.Status = StatusCompleted
	if _, err := s.db.Exec(ctx, `
		UPDATE sessions SET status = $2, end_time = $3, total_duration_min = $4, total_distance_km = $5
		WHERE id = $1
	`, open.ID, open.Status, open.EndTime, open.TotalDurationMin, open.TotalDistanceKm); err != nil {
		return Session{}, err
	}

	s.publish(stream.TopicSessionEnded, eventPayload(courier, open.ID, map[string]any{
		"duration_minutes":  open.TotalDurationMin,
		"total_distance_km": open.TotalDistanceKm,
	}))
	s.audit.Log(ctx, courier.ID, audit.ActionSessionEnded, map[string]any{
		"session_id":        open.ID,
		"duration_minutes":  open.TotalDurationMin,
		"total_distance_km": open.TotalDistanceKm,
	})
	return *open, nil
}

// Active returns the courier's open session, or nil when off shift.
func (s *Service) Active(ctx context.Context, courierID string) (*Session, error) {
	return s.findOpen(ctx, courierID)
}

// History lists completed sessions newest-first with aggregate totals.
func (s *Service) History(ctx context.Context, courierID string, limit int) ([]Session, HistoryStats, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, courier_id, start_time, end_time, status, total_distance_km, total_duration_min, delivery_count, breaks
		FROM sessions
		WHERE courier_id = $1 AND status = 'COMPLETED'
		ORDER BY start_time DESC
		LIMIT $2
	`, courierID, limit)
	if err != nil {
		return nil, HistoryStats{}, err
	}
	defer rows.Close()

	var sessions []Session
	var stats HistoryStats
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, HistoryStats{}, err
		}
		sessions = append(sessions, *sess)
		stats.TotalSessions++
		stats.TotalDurationMin += sess.TotalDurationMin
		stats.TotalDistanceKm += sess.TotalDistanceKm
	}
	if err := rows.Err(); err != nil {
		return nil, HistoryStats{}, err
	}
	if stats.TotalSessions > 0 {
		stats.AvgDurationMin = stats.TotalDurationMin / stats.TotalSessions
	}
	return sessions, stats, nil
}

func (s *Service) saveStatusAndBreaks(ctx context.Context, sess *Session) error {
	breaksRaw, err := json.Marshal(sess.Breaks)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE sessions SET status = $2, breaks = $3
		WHERE id = $1
	`, sess.ID, sess.Status, breaksRaw)
	return err
}

func (s *Service) publish(topic string, payload map[string]any) {
	if s.hub != nil {
		s.hub.Publish(topic, payload)
	}
}

func (s *Service) publishStats(courier Courier, sess *Session) {
	payload := eventPayload(courier, sess.ID, map[string]any{"stats": sess.stats()})
	s.publish(stream.TopicStatsUpdate, payload)
}

func eventPayload(courier Courier, sessionID string, extra map[string]any) map[string]any {
	payload := map[string]any{
		"courier_id":   courier.ID,
		"courier_name": courier.Name,
		"session_id":   sessionID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

func floorMinutes(d time.Duration) int {
	return int(d.Minutes())
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
