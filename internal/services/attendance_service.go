package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"splitride/internal/amqp"
	"splitride/internal/auth"
	"splitride/internal/core"
)

// AttendanceService covers the day-to-day operations: the rider sets
// the cost and sends requests, the partner marks attendance, both sides
// read statistics.
type AttendanceService struct {
	profiles   ProfileStore
	settings   SettingsStore
	attendance AttendanceStore
	requests   RequestStore
	events     EventPublisher  // may be nil
	notifier   SessionNotifier // may be nil
	now        func() time.Time
}

func NewAttendanceService(
	profiles ProfileStore,
	settings SettingsStore,
	attendance AttendanceStore,
	requests RequestStore,
	events EventPublisher,
	notifier SessionNotifier,
) *AttendanceService {
	return &AttendanceService{
		profiles:   profiles,
		settings:   settings,
		attendance: attendance,
		requests:   requests,
		events:     events,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *AttendanceService) today() core.Date {
	return core.DateOf(s.now().UTC())
}

// SetDailyCost upserts the rider's current daily cost.
func (s *AttendanceService) SetDailyCost(ctx context.Context, sess auth.Session, cents int64) (core.Settings, error) {
	if err := auth.CanManageSettings(sess, sess.UserID); err != nil {
		return core.Settings{}, err
	}
	cfg := core.Settings{RiderID: sess.UserID, DailyCostCents: cents}
	if err := cfg.Validate(); err != nil {
		return core.Settings{}, err
	}
	if err := s.settings.UpsertSettings(ctx, cfg); err != nil {
		return core.Settings{}, err
	}
	return cfg, nil
}

// DailyCost returns the rider's own settings.
func (s *AttendanceService) DailyCost(ctx context.Context, sess auth.Session) (core.Settings, error) {
	if err := auth.CanManageSettings(sess, sess.UserID); err != nil {
		return core.Settings{}, err
	}
	return s.settings.GetSettings(ctx, sess.UserID)
}

// MarkAttendance records today's confirmed travel for the calling
// partner: it reads the paired rider's current cost, upserts the
// attendance row and completes any same-day pending request. Re-marking
// the same day overwrites, never duplicates. The read-settings →
// write-attendance → update-request sequence is deliberately
// non-transactional; every step is individually idempotent and the
// client re-reads state on its next fetch.
func (s *AttendanceService) MarkAttendance(ctx context.Context, sess auth.Session) (core.Attendance, error) {
	if err := auth.CanWriteAttendance(sess, sess.UserID); err != nil {
		return core.Attendance{}, err
	}

	partner, err := s.profiles.GetProfile(ctx, sess.UserID)
	if err != nil {
		return core.Attendance{}, fmt.Errorf("load partner profile: %w", err)
	}
	if partner.PairedRiderID == "" {
		return core.Attendance{}, core.ErrNotPaired
	}
	riderID := partner.PairedRiderID

	cfg, err := s.settings.GetSettings(ctx, riderID)
	if err != nil {
		// No settings means no write at all.
		return core.Attendance{}, err
	}

	record := core.Attendance{
		PartnerID:   sess.UserID,
		RiderID:     riderID,
		Date:        s.today(),
		AmountCents: cfg.DailyCostCents,
		Status:      core.AttendancePresent,
	}
	if err := record.Validate(); err != nil {
		return core.Attendance{}, err
	}
	if err := s.attendance.UpsertAttendance(ctx, record); err != nil {
		return core.Attendance{}, err
	}

	completed, err := s.requests.CompletePendingRequest(ctx, riderID, sess.UserID, record.Date)
	if err != nil {
		// The attendance row is already written; the request stays
		// pending until the next poll reconciles it.
		slog.WarnContext(ctx, "Attendance recorded but request update failed",
			"error", err,
			"partner_id", sess.UserID,
			"rider_id", riderID)
	} else if completed {
		slog.InfoContext(ctx, "Pending request completed",
			"rider_id", riderID,
			"partner_id", sess.UserID,
			"date", record.Date.String())
	}

	s.publish(ctx, amqp.NewAttendanceMarked(sess.UserID, riderID, record.Date.String(), record.AmountCents))
	s.push(riderID, amqp.NewAttendanceMarked(sess.UserID, riderID, record.Date.String(), record.AmountCents))

	return record, nil
}

// SendRequest upserts today's pending request from the calling rider to
// the partner; re-sending on the same day overwrites the earlier row.
func (s *AttendanceService) SendRequest(ctx context.Context, sess auth.Session, partnerID string) (core.Request, error) {
	if err := auth.CanCreateRequest(sess, sess.UserID); err != nil {
		return core.Request{}, err
	}

	partner, err := s.profiles.GetProfile(ctx, partnerID)
	if err != nil {
		return core.Request{}, fmt.Errorf("load partner profile: %w", err)
	}
	if partner.Role != core.RolePartner || partner.PairedRiderID != sess.UserID {
		return core.Request{}, core.ErrNotPaired
	}

	req := core.Request{
		RiderID:   sess.UserID,
		PartnerID: partnerID,
		Date:      s.today(),
		Status:    core.RequestPending,
	}
	if err := s.requests.UpsertRequest(ctx, req); err != nil {
		return core.Request{}, err
	}

	event := amqp.NewRequestCreated(sess.UserID, partnerID, req.Date.String())
	s.publish(ctx, event)
	s.push(partnerID, event)

	return req, nil
}

// Requests lists the caller's requests, whichever side they are on.
func (s *AttendanceService) Requests(ctx context.Context, sess auth.Session) ([]core.Request, error) {
	if sess.IsRider() {
		return s.requests.ListRequestsByRider(ctx, sess.UserID)
	}
	return s.requests.ListRequestsByPartner(ctx, sess.UserID)
}

// Stats reduces the caller's full attendance set into the summary
// figures, relative to today.
func (s *AttendanceService) Stats(ctx context.Context, sess auth.Session) (core.Summary, error) {
	records, err := s.listAttendance(ctx, sess)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Aggregate(records, s.today()), nil
}

// Series builds the dense chart series for the requested window.
func (s *AttendanceService) Series(ctx context.Context, sess auth.Session, w core.Window) ([]core.SeriesPoint, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidWindow, w)
	}
	records, err := s.listAttendance(ctx, sess)
	if err != nil {
		return nil, err
	}
	pending, err := s.Requests(ctx, sess)
	if err != nil {
		return nil, err
	}
	return core.Series(records, pending, w, s.today()), nil
}

func (s *AttendanceService) listAttendance(ctx context.Context, sess auth.Session) ([]core.Attendance, error) {
	if sess.IsRider() {
		return s.attendance.ListAttendanceByRider(ctx, sess.UserID)
	}
	return s.attendance.ListAttendanceByPartner(ctx, sess.UserID)
}

func (s *AttendanceService) publish(ctx context.Context, e *amqp.Event) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping", "type", e.Type)
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		// Events are advisory; the mutation already succeeded.
		slog.ErrorContext(ctx, "Failed to publish event", "error", err, "type", e.Type)
	}
}

func (s *AttendanceService) push(userID string, v any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(userID, v)
}
