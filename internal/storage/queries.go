package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX is the minimal database handle the query layer runs against,
// satisfied by *sql.DB and *sql.Tx alike.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries bundles every SQL statement the repository issues. All
// timestamps are written from Go as RFC3339 so string comparison in
// SQL orders correctly.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type (
	ProfileRow struct {
		ID            string
		Email         string
		PasswordHash  string
		Role          string
		PairingCode   sql.NullString
		PairedRiderID sql.NullString
		CreatedAt     time.Time
	}

	SettingsRow struct {
		RiderID        string
		DailyCostCents int64
		UpdatedAt      time.Time
	}

	AttendanceRow struct {
		PartnerID   string
		RiderID     string
		Date        string
		AmountCents int64
		Status      string
	}

	RequestRow struct {
		RiderID   string
		PartnerID string
		Date      string
		Status    string
	}

	CreateProfileParams struct {
		ID           string
		Email        string
		PasswordHash string
		Role         string
		PairingCode  sql.NullString
		CreatedAt    time.Time
	}

	UpsertAttendanceParams struct {
		PartnerID   string
		RiderID     string
		Date        string
		AmountCents int64
		Status      string
	}

	UpsertRequestParams struct {
		RiderID   string
		PartnerID string
		Date      string
		Status    string
	}
)

const timeLayout = time.RFC3339

const createProfile = `
INSERT INTO profiles (id, email, password_hash, role, pairing_code, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateProfile(ctx context.Context, p CreateProfileParams) error {
	_, err := q.db.ExecContext(ctx, createProfile,
		p.ID, p.Email, p.PasswordHash, p.Role, p.PairingCode, p.CreatedAt.UTC().Format(timeLayout))
	return err
}

const getProfileByID = `
SELECT id, email, password_hash, role, pairing_code, paired_rider_id, created_at
FROM profiles WHERE id = ?`

func (q *Queries) GetProfileByID(ctx context.Context, id string) (ProfileRow, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfileByID, id))
}

const getProfileByEmail = `
SELECT id, email, password_hash, role, pairing_code, paired_rider_id, created_at
FROM profiles WHERE email = ?`

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (ProfileRow, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfileByEmail, email))
}

const countPairingCode = `SELECT COUNT(1) FROM profiles WHERE pairing_code = ?`

func (q *Queries) CountPairingCode(ctx context.Context, code string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPairingCode, code).Scan(&n)
	return n, err
}

// Code lookup is restricted to rider profiles created after the cutoff.
const findRiderByPairingCode = `
SELECT id, email, password_hash, role, pairing_code, paired_rider_id, created_at
FROM profiles WHERE pairing_code = ? AND role = 'rider' AND created_at >= ?`

func (q *Queries) FindRiderByPairingCode(ctx context.Context, code string, createdAfter time.Time) (ProfileRow, error) {
	row := q.db.QueryRowContext(ctx, findRiderByPairingCode,
		code, createdAfter.UTC().Format(timeLayout))
	return scanProfile(row)
}

const setPairedRider = `UPDATE profiles SET paired_rider_id = ? WHERE id = ?`

func (q *Queries) SetPairedRider(ctx context.Context, partnerID, riderID string) error {
	_, err := q.db.ExecContext(ctx, setPairedRider, riderID, partnerID)
	return err
}

const upsertSettings = `
INSERT INTO settings (rider_id, daily_cost_cents, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (rider_id) DO UPDATE SET
    daily_cost_cents = excluded.daily_cost_cents,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertSettings(ctx context.Context, riderID string, cents int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertSettings, riderID, cents, now.UTC().Format(timeLayout))
	return err
}

const getSettings = `
SELECT rider_id, daily_cost_cents, updated_at FROM settings WHERE rider_id = ?`

func (q *Queries) GetSettings(ctx context.Context, riderID string) (SettingsRow, error) {
	var s SettingsRow
	var updatedAt string
	err := q.db.QueryRowContext(ctx, getSettings, riderID).
		Scan(&s.RiderID, &s.DailyCostCents, &updatedAt)
	if err != nil {
		return SettingsRow{}, err
	}
	s.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return SettingsRow{}, fmt.Errorf("parse settings updated_at: %w", err)
	}
	return s, nil
}

const upsertAttendance = `
INSERT INTO attendance (partner_id, rider_id, date, amount_cents, status)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (partner_id, rider_id, date) DO UPDATE SET
    amount_cents = excluded.amount_cents,
    status = excluded.status`

func (q *Queries) UpsertAttendance(ctx context.Context, p UpsertAttendanceParams) error {
	_, err := q.db.ExecContext(ctx, upsertAttendance,
		p.PartnerID, p.RiderID, p.Date, p.AmountCents, p.Status)
	return err
}

const listAttendanceByRider = `
SELECT partner_id, rider_id, date, amount_cents, status
FROM attendance WHERE rider_id = ? ORDER BY date`

func (q *Queries) ListAttendanceByRider(ctx context.Context, riderID string) ([]AttendanceRow, error) {
	rows, err := q.db.QueryContext(ctx, listAttendanceByRider, riderID)
	if err != nil {
		return nil, err
	}
	return collectAttendance(rows)
}

const listAttendanceByPartner = `
SELECT partner_id, rider_id, date, amount_cents, status
FROM attendance WHERE partner_id = ? ORDER BY date`

func (q *Queries) ListAttendanceByPartner(ctx context.Context, partnerID string) ([]AttendanceRow, error) {
	rows, err := q.db.QueryContext(ctx, listAttendanceByPartner, partnerID)
	if err != nil {
		return nil, err
	}
	return collectAttendance(rows)
}

const upsertRequest = `
INSERT INTO requests (rider_id, partner_id, date, status)
VALUES (?, ?, ?, ?)
ON CONFLICT (rider_id, partner_id, date) DO UPDATE SET
    status = excluded.status`

func (q *Queries) UpsertRequest(ctx context.Context, p UpsertRequestParams) error {
	_, err := q.db.ExecContext(ctx, upsertRequest, p.RiderID, p.PartnerID, p.Date, p.Status)
	return err
}

const completePendingRequest = `
UPDATE requests SET status = 'completed'
WHERE rider_id = ? AND partner_id = ? AND date = ? AND status = 'pending'`

func (q *Queries) CompletePendingRequest(ctx context.Context, riderID, partnerID, date string) (int64, error) {
	res, err := q.db.ExecContext(ctx, completePendingRequest, riderID, partnerID, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listRequestsByPartner = `
SELECT rider_id, partner_id, date, status
FROM requests WHERE partner_id = ? ORDER BY date`

func (q *Queries) ListRequestsByPartner(ctx context.Context, partnerID string) ([]RequestRow, error) {
	rows, err := q.db.QueryContext(ctx, listRequestsByPartner, partnerID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

const listRequestsByRider = `
SELECT rider_id, partner_id, date, status
FROM requests WHERE rider_id = ? ORDER BY date`

func (q *Queries) ListRequestsByRider(ctx context.Context, riderID string) ([]RequestRow, error) {
	rows, err := q.db.QueryContext(ctx, listRequestsByRider, riderID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

const ignoreStaleRequests = `
UPDATE requests SET status = 'ignored' WHERE status = 'pending' AND date < ?`

func (q *Queries) IgnoreStaleRequests(ctx context.Context, before string) (int64, error) {
	res, err := q.db.ExecContext(ctx, ignoreStaleRequests, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanProfile(row *sql.Row) (ProfileRow, error) {
	var p ProfileRow
	var createdAt string
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Role,
		&p.PairingCode, &p.PairedRiderID, &createdAt)
	if err != nil {
		return ProfileRow{}, err
	}
	p.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return ProfileRow{}, fmt.Errorf("parse profile created_at: %w", err)
	}
	return p, nil
}

func collectAttendance(rows *sql.Rows) ([]AttendanceRow, error) {
	defer rows.Close()
	var out []AttendanceRow
	for rows.Next() {
		var a AttendanceRow
		if err := rows.Scan(&a.PartnerID, &a.RiderID, &a.Date, &a.AmountCents, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func collectRequests(rows *sql.Rows) ([]RequestRow, error) {
	defer rows.Close()
	var out []RequestRow
	for rows.Next() {
		var r RequestRow
		if err := rows.Scan(&r.RiderID, &r.PartnerID, &r.Date, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
