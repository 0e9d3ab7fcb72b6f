// Package storage persists profiles, settings, attendance and requests
// in SQLite. Every mutation is a single-row upsert or update; the unique
// constraints on the natural keys make re-writes idempotent.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"splitride/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

// NewWithDB wraps an existing handle; used by tests.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, queries: New(db)}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateProfile stores a new identity record with its password hash.
func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.Profile, passwordHash string) error {
	code := sql.NullString{String: p.PairingCode, Valid: p.PairingCode != ""}
	err := r.queries.CreateProfile(ctx, CreateProfileParams{
		ID:           p.ID,
		Email:        p.Email,
		PasswordHash: passwordHash,
		Role:         string(p.Role),
		PairingCode:  code,
		CreatedAt:    p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	slog.InfoContext(ctx, "Profile created",
		"user_id", p.ID,
		"role", p.Role,
		"has_pairing_code", p.PairingCode != "")
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	row, err := r.queries.GetProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Profile{}, core.ErrNotFound
		}
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profileFromRow(row), nil
}

// GetCredentials returns a profile by email together with its stored
// password hash, for login verification.
func (r *SQLiteRepository) GetCredentials(ctx context.Context, email string) (core.Profile, string, error) {
	row, err := r.queries.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Profile{}, "", core.ErrNotFound
		}
		return core.Profile{}, "", fmt.Errorf("get profile by email: %w", err)
	}
	return profileFromRow(row), row.PasswordHash, nil
}

// PairingCodeExists implements pairing.CodeStore.
func (r *SQLiteRepository) PairingCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.queries.CountPairingCode(ctx, code)
	if err != nil {
		return false, fmt.Errorf("count pairing code: %w", err)
	}
	return n > 0, nil
}

// FindRiderByCode resolves a pairing code to a rider profile. Only
// rider rows created after the cutoff are visible to the lookup.
func (r *SQLiteRepository) FindRiderByCode(ctx context.Context, code string, createdAfter time.Time) (core.Profile, error) {
	row, err := r.queries.FindRiderByPairingCode(ctx, code, createdAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Profile{}, core.ErrRiderNotFound
		}
		return core.Profile{}, fmt.Errorf("find rider by code: %w", err)
	}
	return profileFromRow(row), nil
}

// SetPairedRider points the partner profile at a rider. Re-pairing
// overwrites the previous pointer; the rider side is never mutated.
func (r *SQLiteRepository) SetPairedRider(ctx context.Context, partnerID, riderID string) error {
	if err := r.queries.SetPairedRider(ctx, partnerID, riderID); err != nil {
		return fmt.Errorf("set paired rider: %w", err)
	}
	slog.InfoContext(ctx, "Partner paired", "partner_id", partnerID, "rider_id", riderID)
	return nil
}

func (r *SQLiteRepository) UpsertSettings(ctx context.Context, s core.Settings) error {
	if err := r.queries.UpsertSettings(ctx, s.RiderID, s.DailyCostCents, time.Now()); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	slog.InfoContext(ctx, "Settings saved",
		"rider_id", s.RiderID,
		"daily_cost_cents", s.DailyCostCents)
	return nil
}

func (r *SQLiteRepository) GetSettings(ctx context.Context, riderID string) (core.Settings, error) {
	row, err := r.queries.GetSettings(ctx, riderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Settings{}, core.ErrNoSettings
		}
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return core.Settings{
		RiderID:        row.RiderID,
		DailyCostCents: row.DailyCostCents,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// UpsertAttendance writes the day's attendance fact; a later write for
// the same (partner, rider, date) replaces the earlier one.
func (r *SQLiteRepository) UpsertAttendance(ctx context.Context, a core.Attendance) error {
	err := r.queries.UpsertAttendance(ctx, UpsertAttendanceParams{
		PartnerID:   a.PartnerID,
		RiderID:     a.RiderID,
		Date:        a.Date.String(),
		AmountCents: a.AmountCents,
		Status:      string(a.Status),
	})
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}

	slog.InfoContext(ctx, "Attendance saved",
		"partner_id", a.PartnerID,
		"rider_id", a.RiderID,
		"date", a.Date.String(),
		"amount_cents", a.AmountCents)
	return nil
}

func (r *SQLiteRepository) ListAttendanceByRider(ctx context.Context, riderID string) ([]core.Attendance, error) {
	rows, err := r.queries.ListAttendanceByRider(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("list attendance by rider: %w", err)
	}
	return attendanceFromRows(rows)
}

func (r *SQLiteRepository) ListAttendanceByPartner(ctx context.Context, partnerID string) ([]core.Attendance, error) {
	rows, err := r.queries.ListAttendanceByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list attendance by partner: %w", err)
	}
	return attendanceFromRows(rows)
}

func (r *SQLiteRepository) UpsertRequest(ctx context.Context, req core.Request) error {
	err := r.queries.UpsertRequest(ctx, UpsertRequestParams{
		RiderID:   req.RiderID,
		PartnerID: req.PartnerID,
		Date:      req.Date.String(),
		Status:    string(req.Status),
	})
	if err != nil {
		return fmt.Errorf("upsert request: %w", err)
	}

	slog.InfoContext(ctx, "Request saved",
		"rider_id", req.RiderID,
		"partner_id", req.PartnerID,
		"date", req.Date.String(),
		"status", req.Status)
	return nil
}

// CompletePendingRequest flips a same-day pending request to completed.
// Returns false when there was nothing pending, which is not an error.
func (r *SQLiteRepository) CompletePendingRequest(ctx context.Context, riderID, partnerID string, date core.Date) (bool, error) {
	n, err := r.queries.CompletePendingRequest(ctx, riderID, partnerID, date.String())
	if err != nil {
		return false, fmt.Errorf("complete pending request: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListRequestsByPartner(ctx context.Context, partnerID string) ([]core.Request, error) {
	rows, err := r.queries.ListRequestsByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list requests by partner: %w", err)
	}
	return requestsFromRows(rows)
}

func (r *SQLiteRepository) ListRequestsByRider(ctx context.Context, riderID string) ([]core.Request, error) {
	rows, err := r.queries.ListRequestsByRider(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("list requests by rider: %w", err)
	}
	return requestsFromRows(rows)
}

// IgnoreStaleRequests marks pending requests older than the given day
// as ignored and returns how many rows changed.
func (r *SQLiteRepository) IgnoreStaleRequests(ctx context.Context, before core.Date) (int64, error) {
	n, err := r.queries.IgnoreStaleRequests(ctx, before.String())
	if err != nil {
		return 0, fmt.Errorf("ignore stale requests: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Stale requests ignored", "count", n, "before", before.String())
	}
	return n, nil
}

func profileFromRow(row ProfileRow) core.Profile {
	return core.Profile{
		ID:            row.ID,
		Email:         row.Email,
		Role:          core.Role(row.Role),
		PairingCode:   row.PairingCode.String,
		PairedRiderID: row.PairedRiderID.String,
		CreatedAt:     row.CreatedAt,
	}
}

func attendanceFromRow(row AttendanceRow) (core.Attendance, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Attendance{}, fmt.Errorf("attendance row date: %w", err)
	}
	return core.Attendance{
		PartnerID:   row.PartnerID,
		RiderID:     row.RiderID,
		Date:        d,
		AmountCents: row.AmountCents,
		Status:      core.AttendanceStatus(row.Status),
	}, nil
}

func attendanceFromRows(rows []AttendanceRow) ([]core.Attendance, error) {
	out := make([]core.Attendance, 0, len(rows))
	for _, row := range rows {
		a, err := attendanceFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func requestsFromRows(rows []RequestRow) ([]core.Request, error) {
	out := make([]core.Request, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("request row date: %w", err)
		}
		out = append(out, core.Request{
			RiderID:   row.RiderID,
			PartnerID: row.PartnerID,
			Date:      d,
			Status:    core.RequestStatus(row.Status),
		})
	}
	return out, nil
}
