package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

func newAuditMock(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewService(mock), mock
}

func TestLogAppendsRecord(t *testing.T) {
	svc, mock := newAuditMock(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(pgxmock.AnyArg(), "user-1", ActionSessionStarted, []byte(`{"session_id":"sess-1"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc.Log(context.Background(), "user-1", ActionSessionStarted, map[string]any{"session_id": "sess-1"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLogNilDetails(t *testing.T) {
	svc, mock := newAuditMock(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(pgxmock.AnyArg(), "user-1", ActionLogin, []byte(`null`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc.Log(context.Background(), "user-1", ActionLogin, nil)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLogSwallowsStoreError(t *testing.T) {
	svc, mock := newAuditMock(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(pgxmock.AnyArg(), "user-1", ActionLocationUpdate, pgxmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	// Must not panic or surface the error.
	svc.Log(context.Background(), "user-1", ActionLocationUpdate, map[string]any{"latitude": 41.0})
}

func TestLogNilService(t *testing.T) {
	var svc *Service
	svc.Log(context.Background(), "user-1", ActionLogin, nil)

	NewService(nil).Log(context.Background(), "user-1", ActionLogin, nil)
}
