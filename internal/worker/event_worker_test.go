package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"splitride/internal/amqp"
	"splitride/internal/core"
)

type fakeLedger struct {
	rows [][4]any
	err  error
}

func (f *fakeLedger) AppendAttendance(_ context.Context, partnerID, riderID, date string, amountCents int64) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, [4]any{partnerID, riderID, date, amountCents})
	return nil
}

type fakeSweeper struct {
	before core.Date
	count  int64
	err    error
}

func (f *fakeSweeper) IgnoreStaleRequests(_ context.Context, before core.Date) (int64, error) {
	f.before = before
	return f.count, f.err
}

func TestHandleEventAttendanceMarked(t *testing.T) {
	ledger := &fakeLedger{}
	w := NewEventWorker(ledger, &fakeSweeper{}, 7*24*time.Hour)

	e := amqp.NewAttendanceMarked("partner-1", "rider-1", "2024-06-15", 12000)
	if err := w.HandleEvent(context.Background(), e); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(ledger.rows))
	}
	row := ledger.rows[0]
	if row[0] != "partner-1" || row[1] != "rider-1" || row[2] != "2024-06-15" || row[3] != int64(12000) {
		t.Errorf("unexpected ledger row: %v", row)
	}
}

func TestHandleEventLedgerFailureRequeues(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("sheets unavailable")}
	w := NewEventWorker(ledger, &fakeSweeper{}, 7*24*time.Hour)

	e := amqp.NewAttendanceMarked("partner-1", "rider-1", "2024-06-15", 12000)
	if err := w.HandleEvent(context.Background(), e); err == nil {
		t.Fatal("expected an error so the delivery gets requeued")
	}
}

func TestHandleEventWithoutLedger(t *testing.T) {
	w := NewEventWorker(nil, &fakeSweeper{}, 7*24*time.Hour)

	e := amqp.NewAttendanceMarked("partner-1", "rider-1", "2024-06-15", 12000)
	if err := w.HandleEvent(context.Background(), e); err != nil {
		t.Fatalf("expected nil ledger to be a no-op, got %v", err)
	}
}

func TestHandleEventUnknownTypeIsDropped(t *testing.T) {
	w := NewEventWorker(nil, &fakeSweeper{}, 7*24*time.Hour)

	e := &amqp.Event{Type: "expense.synced"}
	if err := w.HandleEvent(context.Background(), e); err != nil {
		t.Fatalf("unknown types must not be requeued, got %v", err)
	}
}

func TestSweepStaleRequests(t *testing.T) {
	sweeper := &fakeSweeper{count: 3}
	w := NewEventWorker(nil, sweeper, 7*24*time.Hour)
	w.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	n, err := w.SweepStaleRequests(context.Background())
	if err != nil {
		t.Fatalf("SweepStaleRequests failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 swept rows, got %d", n)
	}
	if got := sweeper.before.String(); got != "2024-06-08" {
		t.Errorf("expected cutoff 2024-06-08, got %s", got)
	}
}

func TestSweepStaleRequestsError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db locked")}
	w := NewEventWorker(nil, sweeper, 7*24*time.Hour)

	if _, err := w.SweepStaleRequests(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
