// Package services orchestrates the domain operations across storage,
// the event queue and the session notifier, enforcing the ownership
// rules of internal/auth in front of every mutation.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"splitride/internal/auth"
	"splitride/internal/core"
	"splitride/internal/pairing"
)

// AccountService creates profiles and authenticates them. Riders get a
// unique pairing code at signup; partners never do.
type AccountService struct {
	profiles ProfileStore
	codes    *pairing.Generator
	tokens   *auth.TokenIssuer
	now      func() time.Time
}

func NewAccountService(profiles ProfileStore, codes *pairing.Generator, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{
		profiles: profiles,
		codes:    codes,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Signup creates a profile and returns it with a signed access token.
func (s *AccountService) Signup(ctx context.Context, email, password string, role core.Role) (core.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.Profile{}, "", err
	}

	p := core.Profile{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	if role == core.RoleRider {
		code, err := s.codes.Generate(ctx)
		if err != nil {
			return core.Profile{}, "", fmt.Errorf("generate pairing code: %w", err)
		}
		p.PairingCode = code
	}
	if err := p.Validate(); err != nil {
		return core.Profile{}, "", err
	}

	if err := s.profiles.CreateProfile(ctx, p, hash); err != nil {
		return core.Profile{}, "", fmt.Errorf("signup: %w", err)
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		return core.Profile{}, "", fmt.Errorf("issue token: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "user_id", p.ID, "role", p.Role)
	return p, token, nil
}

// Login verifies credentials and returns the profile with a fresh token.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p, hash, err := s.profiles.GetCredentials(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return core.Profile{}, "", auth.ErrBadCredentials
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return core.Profile{}, "", auth.ErrBadCredentials
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		return core.Profile{}, "", fmt.Errorf("issue token: %w", err)
	}
	return p, token, nil
}

// Me returns the caller's own profile.
func (s *AccountService) Me(ctx context.Context, sess auth.Session) (core.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, sess.UserID)
	if err != nil {
		return core.Profile{}, err
	}
	if err := auth.CanReadProfile(sess, p.ID); err != nil {
		return core.Profile{}, err
	}
	return p, nil
}
