package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleRider   Role = "rider"
	RolePartner Role = "partner"
)

const (
	AttendancePresent   AttendanceStatus = "present"
	AttendanceRequested AttendanceStatus = "requested"
	AttendanceMissed    AttendanceStatus = "missed"
)

const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
	RequestIgnored   RequestStatus = "ignored"
)

// PairingCodeLength is the fixed length of a rider's pairing code.
const PairingCodeLength = 6

// PairingCodeAlphabet is the charset pairing codes are drawn from.
const PairingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type (
	Role             string
	AttendanceStatus string
	RequestStatus    string

	// Profile is the root identity record. PairingCode is set only on
	// rider profiles; PairedRiderID only on partner profiles once paired.
	Profile struct {
		ID            string
		Email         string
		Role          Role
		PairingCode   string
		PairedRiderID string
		CreatedAt     time.Time
	}

	// Settings holds the rider's current daily cost. One row per rider.
	Settings struct {
		RiderID        string
		DailyCostCents int64
		UpdatedAt      time.Time
	}

	// Attendance is a confirmed-travel fact for one day. The amount is
	// copied from the rider's settings at write time, never re-derived.
	Attendance struct {
		PartnerID   string
		RiderID     string
		Date        Date
		AmountCents int64
		Status      AttendanceStatus
	}

	// Request is a rider-initiated reminder asking the partner to confirm
	// today's travel. One row per (rider, partner, date).
	Request struct {
		RiderID   string
		PartnerID string
		Date      Date
		Status    RequestStatus
	}
)

var (
	ErrInvalidCode   = errors.New("pairing code must be 6 uppercase letters or digits")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidWindow = errors.New("invalid chart window")

	ErrRiderNotFound = errors.New("no rider found for pairing code")
	ErrNoSettings    = errors.New("rider has no daily cost configured")
	ErrNotPaired     = errors.New("partner is not paired with a rider")
	ErrNotFound      = errors.New("not found")

	ErrUnauthorized = errors.New("operation not permitted for this account")
)

// MaxDailyCostCents caps the rider's daily cost at 10000.00.
const MaxDailyCostCents int64 = 10000 * 100

func (r Role) Valid() bool {
	return r == RoleRider || r == RolePartner
}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceRequested, AttendanceMissed:
		return true
	}
	return false
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestCompleted, RequestIgnored:
		return true
	}
	return false
}

// ValidPairingCode reports whether s has the exact shape of a pairing
// code: 6 characters, each an uppercase letter or digit. Callers must
// check this before any storage lookup.
func ValidPairingCode(s string) bool {
	if len(s) != PairingCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func (p Profile) Validate() error {
	if !p.Role.Valid() {
		return ErrInvalidRole
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	if p.PairingCode != "" && !ValidPairingCode(p.PairingCode) {
		return ErrInvalidCode
	}
	return nil
}

func (s Settings) Validate() error {
	if s.DailyCostCents <= 0 || s.DailyCostCents > MaxDailyCostCents {
		return ErrInvalidAmount
	}
	return nil
}

func (a Attendance) Validate() error {
	if a.AmountCents < 0 || a.AmountCents > MaxDailyCostCents {
		return ErrInvalidAmount
	}
	if !a.Status.Valid() {
		return errors.New("invalid attendance status")
	}
	if a.Date.IsZero() {
		return errors.New("attendance date cannot be zero")
	}
	return nil
}
