package services

import (
	"context"
	"time"

	"splitride/internal/amqp"
	"splitride/internal/core"
)

// Ports for the storage and notification adapters the services drive.
type (
	ProfileStore interface {
		CreateProfile(ctx context.Context, p core.Profile, passwordHash string) error
		GetProfile(ctx context.Context, id string) (core.Profile, error)
		GetCredentials(ctx context.Context, email string) (core.Profile, string, error)
		FindRiderByCode(ctx context.Context, code string, createdAfter time.Time) (core.Profile, error)
		SetPairedRider(ctx context.Context, partnerID, riderID string) error
	}

	SettingsStore interface {
		UpsertSettings(ctx context.Context, s core.Settings) error
		GetSettings(ctx context.Context, riderID string) (core.Settings, error)
	}

	AttendanceStore interface {
		UpsertAttendance(ctx context.Context, a core.Attendance) error
		ListAttendanceByRider(ctx context.Context, riderID string) ([]core.Attendance, error)
		ListAttendanceByPartner(ctx context.Context, partnerID string) ([]core.Attendance, error)
	}

	RequestStore interface {
		UpsertRequest(ctx context.Context, r core.Request) error
		CompletePendingRequest(ctx context.Context, riderID, partnerID string, date core.Date) (bool, error)
		ListRequestsByPartner(ctx context.Context, partnerID string) ([]core.Request, error)
		ListRequestsByRider(ctx context.Context, riderID string) ([]core.Request, error)
	}

	// EventPublisher pushes advisory events onto the queue. May be nil
	// when the broker is not configured.
	EventPublisher interface {
		Publish(ctx context.Context, e *amqp.Event) error
	}

	// SessionNotifier fans an event out to a user's open connections.
	SessionNotifier interface {
		Publish(userID string, v any)
	}
)
