package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var errSession = errors.New("session error")

func sessionColumns() []string {
	return []string{"id", "courier_id", "start_time", "end_time", "status", "total_distance_km", "total_duration_min", "delivery_count", "breaks"}
}

func openRow(rows *pgxmock.Rows, id string, start time.Time, status Status, distance float64, duration, deliveries int, breaks []BreakInterval) *pgxmock.Rows {
	raw, _ := json.Marshal(breaks)
	return rows.AddRow(id, "courier-1", start, nil, status, distance, duration, deliveries, raw)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

var testCourier = Courier{ID: "courier-1", Name: "Test Courier"}

func TestStartCreatesSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), "courier-1", pgxmock.AnyArg(), StatusActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess, err := svc.Start(context.Background(), testCourier)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Status != StatusActive || sess.ID == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.TotalDistanceKm != 0 || sess.TotalDurationMin != 0 || sess.DeliveryCount != 0 {
		t.Fatalf("expected zeroed counters")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStartFailsWhenAlreadyActive(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now(), StatusActive, 0, 0, 0, nil))

	if _, err := svc.Start(context.Background(), testCourier); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestStartFailsWhileOnBreak(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now(), StatusOnBreak, 0, 0, 0, nil))

	if _, err := svc.Start(context.Background(), testCourier); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestMultipleOpenSessionsIsFatal(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	rows := pgxmock.NewRows(sessionColumns())
	openRow(rows, "sess-1", time.Now(), StatusActive, 0, 0, 0, nil)
	openRow(rows, "sess-2", time.Now(), StatusActive, 0, 0, 0, nil)
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(rows)

	if _, err := svc.Start(context.Background(), testCourier); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestBreakStartRequiresActiveSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))

	if _, err := svc.StartBreak(context.Background(), testCourier); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestBreakStartAppendsOpenInterval(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now(), StatusActive, 1.5, 30, 2, []BreakInterval{}))
	mock.ExpectExec(`UPDATE sessions SET status`).
		WithArgs("sess-1", StatusOnBreak, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.StartBreak(context.Background(), testCourier)
	if err != nil {
		t.Fatalf("start break: %v", err)
	}
	if sess.Status != StatusOnBreak {
		t.Fatalf("expected ON_BREAK status")
	}
	if len(sess.Breaks) != 1 || sess.Breaks[0].End != nil {
		t.Fatalf("expected one open break interval")
	}
}

func TestBreakEndClosesIntervalWithDuration(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	breakStart := time.Now().Add(-5 * time.Minute)
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now().Add(-time.Hour), StatusOnBreak, 1.5, 55, 2,
			[]BreakInterval{{Start: breakStart}}))
	mock.ExpectExec(`UPDATE sessions SET status`).
		WithArgs("sess-1", StatusActive, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.EndBreak(context.Background(), testCourier)
	if err != nil {
		t.Fatalf("end break: %v", err)
	}
	if sess.Status != StatusActive {
		t.Fatalf("expected ACTIVE after break")
	}
	if len(sess.Breaks) != 1 {
		t.Fatalf("expected exactly one break interval")
	}
	br := sess.Breaks[0]
	if br.End == nil || br.DurationMin != 5 {
		t.Fatalf("expected closed 5 minute break, got %+v", br)
	}
}

func TestBreakEndRequiresOnBreak(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now(), StatusActive, 0, 0, 0, nil))

	if _, err := svc.EndBreak(context.Background(), testCourier); !errors.Is(err, ErrNoOpenBreak) {
		t.Fatalf("expected ErrNoOpenBreak, got %v", err)
	}
}

func TestBreakEndWithClosedIntervalIsNoOp(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	// Defensive case: ON_BREAK but the trailing interval is already closed.
	end := time.Now().Add(-time.Minute)
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now().Add(-time.Hour), StatusOnBreak, 0, 0, 0,
			[]BreakInterval{{Start: end.Add(-10 * time.Minute), End: &end, DurationMin: 9}}))
	mock.ExpectExec(`UPDATE sessions SET status`).
		WithArgs("sess-1", StatusActive, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.EndBreak(context.Background(), testCourier)
	if err != nil {
		t.Fatalf("end break: %v", err)
	}
	if sess.Breaks[0].DurationMin != 9 {
		t.Fatalf("closed interval must not change")
	}
}

func TestRecordMovementAccumulates(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	start := time.Now().Add(-30 * time.Minute)
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", start, StatusActive, 2.0, 29, 1, nil))
	mock.ExpectExec(`UPDATE sessions SET total_distance_km`).
		WithArgs("sess-1", 2.1, 30).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.RecordMovement(context.Background(), testCourier, 0.1)
	if err != nil {
		t.Fatalf("record movement: %v", err)
	}
	if sess == nil || sess.TotalDistanceKm != 2.1 {
		t.Fatalf("expected accumulated distance 2.1, got %+v", sess)
	}
	if sess.TotalDurationMin != 30 {
		t.Fatalf("expected refreshed duration 30, got %d", sess.TotalDurationMin)
	}
}

func TestRecordMovementDuringBreakStillCountsTime(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	start := time.Now().Add(-45 * time.Minute)
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", start, StatusOnBreak, 3.0, 10, 0, nil))
	mock.ExpectExec(`UPDATE sessions SET total_distance_km`).
		WithArgs("sess-1", 3.0, 45).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.RecordMovement(context.Background(), testCourier, 0)
	if err != nil {
		t.Fatalf("record movement: %v", err)
	}
	// Breaks are tracked separately; elapsed duration keeps growing.
	if sess.TotalDurationMin != 45 {
		t.Fatalf("expected duration 45, got %d", sess.TotalDurationMin)
	}
}

func TestRecordMovementWithoutSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))

	sess, err := svc.RecordMovement(context.Background(), testCourier, 0.2)
	if err != nil {
		t.Fatalf("record movement: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session when none open")
	}
}

func TestRecordDelivery(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now(), StatusActive, 0, 0, 4, nil))
	mock.ExpectExec(`UPDATE sessions SET delivery_count`).
		WithArgs("sess-1", 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.RecordDelivery(context.Background(), testCourier)
	if err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	if sess.DeliveryCount != 5 {
		t.Fatalf("expected delivery count 5, got %d", sess.DeliveryCount)
	}
}

func TestRecordDeliveryRequiresSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))

	if _, err := svc.RecordDelivery(context.Background(), testCourier); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestEndCompletesSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	start := time.Now().Add(-90 * time.Minute)
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", start, StatusActive, 12.5, 89, 7, nil))
	mock.ExpectExec(`UPDATE sessions SET status`).
		WithArgs("sess-1", StatusCompleted, pgxmock.AnyArg(), 90, 12.5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.End(context.Background(), testCourier, nil)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if sess.Status != StatusCompleted || sess.EndTime == nil {
		t.Fatalf("expected completed session")
	}
	if sess.TotalDurationMin != 90 {
		t.Fatalf("expected final duration 90, got %d", sess.TotalDurationMin)
	}
	if sess.TotalDistanceKm != 12.5 {
		t.Fatalf("expected accumulated distance kept")
	}
}

func TestEndWithReportedDistanceOverrides(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	reported := 14.2
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(openRow(pgxmock.NewRows(sessionColumns()), "sess-1", time.Now().Add(-time.Hour), StatusOnBreak, 12.5, 59, 7, nil))
	mock.ExpectExec(`UPDATE sessions SET status`).
		WithArgs("sess-1", StatusCompleted, pgxmock.AnyArg(), 60, reported).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sess, err := svc.End(context.Background(), testCourier, &reported)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if sess.TotalDistanceKm != reported {
		t.Fatalf("expected reported distance to win")
	}
}

func TestEndReplayFails(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	// The completed session no longer matches the open-session query, so a
	// replayed end finds nothing and mutates nothing.
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))

	if _, err := svc.End(context.Background(), testCourier, nil); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryAggregates(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	end1 := time.Now().Add(-time.Hour)
	end2 := time.Now().Add(-25 * time.Hour)
	rows := pgxmock.NewRows(sessionColumns()).
		AddRow("sess-2", "courier-1", end1.Add(-2*time.Hour), &end1, StatusCompleted, 20.0, 120, 10, []byte(`[]`)).
		AddRow("sess-1", "courier-1", end2.Add(-time.Hour), &end2, StatusCompleted, 10.0, 60, 5, []byte(`[]`))
	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1", 30).
		WillReturnRows(rows)

	sessions, stats, err := svc.History(context.Background(), "courier-1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions")
	}
	if stats.TotalSessions != 2 || stats.TotalDurationMin != 180 || stats.TotalDistanceKm != 30.0 || stats.AvgDurationMin != 90 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFindOpenQueryError(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, courier_id, start_time`).
		WithArgs("courier-1").
		WillReturnError(errSession)

	if _, err := svc.Active(context.Background(), "courier-1"); err == nil {
		t.Fatalf("expected error")
	}
}
