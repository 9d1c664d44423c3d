// Package audit appends operation records to an append-only log. Writes are
// best-effort: a failed audit insert is logged and never fails the caller.
package audit

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ONUR213123232/PaketHane/internal/db"

	"github.com/google/uuid"
)

const (
	ActionLogin             = "LOGIN"
	ActionLoginFailed       = "LOGIN_FAILED"
	ActionLocationUpdate    = "LOCATION_UPDATE"
	ActionSessionStarted    = "SESSION_STARTED"
	ActionSessionEnded      = "SESSION_ENDED"
	ActionDeliveryCompleted = "DELIVERY_COMPLETED"
)

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

func (s *Service) Log(ctx context.Context, userID, action string, details map[string]any) {
	if s == nil || s.db == nil {
		return
	}

	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, details)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, action, payload); err != nil {
		log.Printf("audit: append %s failed: %v", action, err)
	}
}
