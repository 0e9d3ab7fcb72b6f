// Package pairing produces the short codes riders hand to their partner
// to link the two accounts.
package pairing

import (
	"context"
	"crypto/rand"
	"fmt"

	"splitride/internal/core"
)

// CodeStore is the narrow storage view the generator needs to guarantee
// global uniqueness.
type CodeStore interface {
	PairingCodeExists(ctx context.Context, code string) (bool, error)
}

// Generator creates unique 6-character pairing codes. Codes are drawn
// from [A-Z0-9] via crypto/rand and re-drawn on collision until a free
// code is found; with 36^6 combinations the loop is effectively bounded.
type Generator struct {
	store CodeStore
}

func NewGenerator(store CodeStore) *Generator {
	return &Generator{store: store}
}

// Generate returns a fresh code that no stored profile holds.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("draw pairing code: %w", err)
		}
		exists, err := g.store.PairingCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check pairing code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}

func randomCode() (string, error) {
	buf := make([]byte, core.PairingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = core.PairingCodeAlphabet[int(b)%len(core.PairingCodeAlphabet)]
	}
	return string(buf), nil
}
