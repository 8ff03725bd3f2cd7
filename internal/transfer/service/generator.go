package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"

	identitydomain "festival-companion/backend/internal/identity/domain"
	"festival-companion/backend/internal/transfer/domain"
	"festival-companion/backend/internal/transfer/repository"
)

// DefaultGenerationAttempts bounds retries when a drawn value collides with a live code.
const DefaultGenerationAttempts = 5

var codeSpace = big.NewInt(1_000_000)

// IdentityReader is the minimal identity lookup needed to mint a code.
type IdentityReader interface {
	Get(ctx context.Context, handle string) (*identitydomain.Identity, error)
}

// Generator mints transfer codes bound to a device handle.
type Generator struct {
	codes      repository.Repository
	identities IdentityReader
	ttl        time.Duration
	attempts   int
	now        func() time.Time
	draw       func() (string, error)
}

// NewGenerator returns a Generator. Non-positive ttl or attempts fall back to the defaults.
func NewGenerator(codes repository.Repository, identities IdentityReader, ttl time.Duration, attempts int) *Generator {
	if ttl <= 0 {
		ttl = domain.DefaultCodeTTL
	}
	if attempts <= 0 {
		attempts = DefaultGenerationAttempts
	}
	return &Generator{
		codes:      codes,
		identities: identities,
		ttl:        ttl,
		attempts:   attempts,
		now:        func() time.Time { return time.Now().UTC() },
		draw:       func() (string, error) { return randomValue(rand.Reader) },
	}
}

// Generate persists a new code for handle. The handle must hold a meaningful identity.
// Existing codes for the handle are left alone. Authorization of admin-created codes
// is the caller's job.
func (g *Generator) Generate(ctx context.Context, handle string, createdBy domain.CreatedBy, actorID string) (*domain.Code, error) {
	ident, err := g.identities.Get(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if !ident.Meaningful() {
		return nil, ErrIdentityNotFound
	}

	for attempt := 0; attempt < g.attempts; attempt++ {
		value, err := g.draw()
		if err != nil {
			return nil, fmt.Errorf("draw code: %w", err)
		}
		now := g.now()
		c := &domain.Code{
			ID:                uuid.New().String(),
			Value:             value,
			OwnerDeviceHandle: handle,
			CreatedBy:         createdBy,
			CreatedAt:         now,
			ExpiresAt:         now.Add(g.ttl),
		}
		if createdBy == domain.CreatedByAdmin {
			c.CreatedByAdmin = actorID
		}
		err = g.codes.Insert(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrCodeCollision) {
			return nil, err
		}
	}
	return nil, ErrGenerationExhausted
}

// randomValue draws uniformly from 000000-999999.
func randomValue(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", domain.CodeLength, n.Int64()), nil
}
