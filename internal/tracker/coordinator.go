// Package tracker is the mutation entry point of the tracking pipeline. It
// serializes everything that touches a courier's session or last-fix
// reference behind a per-courier lock, so a fix and a lifecycle command for
// the same courier can never interleave, while different couriers proceed in
// parallel.
package tracker

import (
	"context"
	"sync"

	"github.com/ONUR213123232/PaketHane/internal/audit"
	"github.com/ONUR213123232/PaketHane/internal/location"
	"github.com/ONUR213123232/PaketHane/internal/session"
	"github.com/ONUR213123232/PaketHane/internal/stream"
)

type Coordinator struct {
	locations *location.Service
	sessions  *session.Service
	hub       *stream.Hub
	audit     *audit.Service

	locks *keyedMutex

	mu   sync.RWMutex
	refs map[string]*location.Fix // last accepted fix per courier
}

func NewCoordinator(locations *location.Service, sessions *session.Service, hub *stream.Hub, auditSvc *audit.Service) *Coordinator {
	return &Coordinator{
		locations: locations,
		sessions:  sessions,
		hub:       hub,
		audit:     auditSvc,
		locks:     newKeyedMutex(),
		refs:      map[string]*location.Fix{},
	}
}

// IngestResult reports what happened to one fix.
type IngestResult struct {
	Fix        location.Fix          `json:"location"`
	DistanceKm float64               `json:"accepted_distance_km"`
	Reason     location.FilterReason `json:"filter_reason"`
	Session    *session.Session      `json:"session,omitempty"`
}

// Ingest validates a raw fix, persists it, runs the distance filter against
// the courier's reference fix and folds the accepted movement into the open
// session. Suppressed movement is a normal outcome, not an error. Only an
// accepted (or first) fix becomes the new reference, so drift cannot creep
// in through many sub-threshold steps.
func (c *Coordinator) Ingest(ctx context.Context, courier session.Courier, raw location.RawFix) (IngestResult, error) {
	fix, err := location.ValidateFix(courier.ID, raw)
	if err != nil {
		return IngestResult{}, err
	}

	unlock := c.locks.lock(courier.ID)
	defer unlock()

	// Resolve the reference before the insert so a warm start cannot compare
	// the fix against itself.
	ref, err := c.reference(ctx, courier.ID)
	if err != nil {
		return IngestResult{}, err
	}

	if err := c.locations.Insert(ctx, fix); err != nil {
		return IngestResult{}, err
	}

	km, reason := location.FilterDistance(ref, fix)
	if reason == location.FilterAccepted || reason == location.FilterNoPrevious {
		c.storeReference(courier.ID, &fix)
	}

	sess, err := c.sessions.RecordMovement(ctx, courier, km)
	if err != nil {
		return IngestResult{}, err
	}

	if c.hub != nil {
		c.hub.Publish(stream.TopicLocationUpdate, map[string]any{
			"courier_id":   courier.ID,
			"courier_name": courier.Name,
			"latitude":     fix.Latitude,
			"longitude":    fix.Longitude,
			"speed":        fix.Speed,
			"battery":      fix.Battery,
			"timestamp":    fix.RecordedAt,
		})
	}
	c.audit.Log(ctx, courier.ID, audit.ActionLocationUpdate, map[string]any{
		"latitude":  fix.Latitude,
		"longitude": fix.Longitude,
		"speed":     fix.Speed,
	})

	return IngestResult{Fix: fix, DistanceKm: km, Reason: reason, Session: sess}, nil
}

// StartSession, StartBreak, EndBreak, EndSession and CompleteDelivery wrap
// the session state machine in the same per-courier lock as Ingest.

func (c *Coordinator) StartSession(ctx context.Context, courier session.Courier) (session.Session, error) {
	unlock := c.locks.lock(courier.ID)
	defer unlock()
	return c.sessions.Start(ctx, courier)
}

func (c *Coordinator) StartBreak(ctx context.Context, courier session.Courier) (session.Session, error) {
	unlock := c.locks.lock(courier.ID)
	defer unlock()
	return c.sessions.StartBreak(ctx, courier)
}

func (c *Coordinator) EndBreak(ctx context.Context, courier session.Courier) (session.Session, error) {
	unlock := c.locks.lock(courier.ID)
	defer unlock()
	return c.sessions.EndBreak(ctx, courier)
}

func (c *Coordinator) EndSession(ctx context.Context, courier session.Courier, reportedKm *float64) (session.Session, error) {
	unlock := c.locks.lock(courier.ID)
	defer unlock()
	return c.sessions.End(ctx, courier, reportedKm)
}

func (c *Coordinator) CompleteDelivery(ctx context.Context, courier session.Courier) (session.Session, error) {
	unlock := c.locks.lock(courier.ID)
	defer unlock()
	return c.sessions.RecordDelivery(ctx, courier)
}

// reference returns the courier's last accepted fix. A courier unseen by
// this process warm-starts from the newest fix in the location log.
func (c *Coordinator) reference(ctx context.Context, courierID string) (*location.Fix, error) {
	c.mu.RLock()
	ref, seen := c.refs[courierID]
	c.mu.RUnlock()
	if seen {
		return ref, nil
	}

	last, err := c.locations.Last(ctx, courierID)
	if err != nil {
		return nil, err
	}
	c.storeReference(courierID, last)
	return last, nil
}

func (c *Coordinator) storeReference(courierID string, fix *location.Fix) {
	c.mu.Lock()
	c.refs[courierID] = fix
	c.mu.Unlock()
}
