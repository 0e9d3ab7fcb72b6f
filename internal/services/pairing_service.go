package services

import (
	"context"
	"log/slog"
	"time"

	"splitride/internal/auth"
	"splitride/internal/core"
)

// PairingCodeMaxAge bounds how long a rider's code stays redeemable:
// lookups only see rider profiles created within this window.
const PairingCodeMaxAge = 30 * 24 * time.Hour

// PairingService links a partner account to a rider by code. Pairing is
// one-directional: only the partner's profile is mutated, and a later
// call with a different code replaces the earlier pairing.
type PairingService struct {
	profiles ProfileStore
	now      func() time.Time
}

func NewPairingService(profiles ProfileStore) *PairingService {
	return &PairingService{profiles: profiles, now: time.Now}
}

// Pair resolves the code and points the caller's profile at the rider.
// A malformed code fails before any lookup; an unmatched code fails
// without side effects.
func (s *PairingService) Pair(ctx context.Context, sess auth.Session, code string) (core.Profile, error) {
	if err := auth.CanPair(sess); err != nil {
		return core.Profile{}, err
	}
	if !core.ValidPairingCode(code) {
		return core.Profile{}, core.ErrInvalidCode
	}

	cutoff := s.now().UTC().Add(-PairingCodeMaxAge)
	rider, err := s.profiles.FindRiderByCode(ctx, code, cutoff)
	if err != nil {
		return core.Profile{}, err
	}

	if err := s.profiles.SetPairedRider(ctx, sess.UserID, rider.ID); err != nil {
		return core.Profile{}, err
	}

	slog.InfoContext(ctx, "Accounts paired",
		"partner_id", sess.UserID,
		"rider_id", rider.ID)
	return rider, nil
}
