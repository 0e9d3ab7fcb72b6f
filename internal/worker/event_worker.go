// Package worker consumes the advisory event queue and runs the
// periodic maintenance jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"splitride/internal/amqp"
	"splitride/internal/core"
)

type (
	// LedgerAppender mirrors attendance facts to an external ledger.
	// May be nil when no mirror is configured.
	LedgerAppender interface {
		AppendAttendance(ctx context.Context, partnerID, riderID, date string, amountCents int64) error
	}

	// RequestSweeper marks old pending requests as ignored.
	RequestSweeper interface {
		IgnoreStaleRequests(ctx context.Context, before core.Date) (int64, error)
	}
)

// EventWorker processes queue events and sweeps stale requests.
type EventWorker struct {
	ledger        LedgerAppender
	requests      RequestSweeper
	requestMaxAge time.Duration
	now           func() time.Time
}

func NewEventWorker(ledger LedgerAppender, requests RequestSweeper, requestMaxAge time.Duration) *EventWorker {
	return &EventWorker{
		ledger:        ledger,
		requests:      requests,
		requestMaxAge: requestMaxAge,
		now:           time.Now,
	}
}

// HandleEvent processes a single event from the queue. Returning an
// error makes the consumer nack and requeue the delivery, so only
// retryable failures should surface here.
func (w *EventWorker) HandleEvent(ctx context.Context, e *amqp.Event) error {
	switch e.Type {
	case amqp.TypeAttendanceMarked:
		return w.handleAttendanceMarked(ctx, e)
	case amqp.TypeRequestCreated:
		slog.InfoContext(ctx, "Request created",
			"rider_id", e.RiderID,
			"partner_id", e.PartnerID,
			"date", e.Date)
		return nil
	default:
		// Unknown types are dropped, not requeued.
		slog.WarnContext(ctx, "Skipping event of unknown type", "type", e.Type)
		return nil
	}
}

func (w *EventWorker) handleAttendanceMarked(ctx context.Context, e *amqp.Event) error {
	slog.InfoContext(ctx, "Attendance marked",
		"partner_id", e.PartnerID,
		"rider_id", e.RiderID,
		"date", e.Date,
		"amount_cents", e.AmountCents)

	if w.ledger == nil {
		return nil
	}
	if err := w.ledger.AppendAttendance(ctx, e.PartnerID, e.RiderID, e.Date, e.AmountCents); err != nil {
		return fmt.Errorf("mirror attendance to ledger: %w", err)
	}
	return nil
}

// SweepStaleRequests flips pending requests older than the configured
// max age to ignored. Returns how many rows were updated.
func (w *EventWorker) SweepStaleRequests(ctx context.Context) (int64, error) {
	cutoff := core.DateOf(w.now().UTC().Add(-w.requestMaxAge))
	n, err := w.requests.IgnoreStaleRequests(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale requests: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Ignored stale requests", "count", n, "before", cutoff.String())
	}
	return n, nil
}

// RunSweeper runs SweepStaleRequests immediately and then on every
// tick until the context is cancelled.
func (w *EventWorker) RunSweeper(ctx context.Context, interval time.Duration) error {
	if _, err := w.SweepStaleRequests(ctx); err != nil {
		slog.ErrorContext(ctx, "Stale request sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.SweepStaleRequests(ctx); err != nil {
				slog.ErrorContext(ctx, "Stale request sweep failed", "error", err)
			}
		}
	}
}
