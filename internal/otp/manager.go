package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var codeSpace = big.NewInt(1_000_000)

// Manager issues, throttles, verifies, and consumes one-time codes.
type Manager struct {
	store    Store
	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// NewManager builds a challenge manager. ttl bounds how long an issued code
// may verify; cooldown bounds how soon a code may be reissued for the same
// (owner, purpose) scope.
func NewManager(store Store, ttl, cooldown time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, cooldown: cooldown, now: time.Now}
}

// Issue creates a fresh challenge for the scope and returns the plaintext
// code for delivery. Any prior challenge for the scope is superseded. Fails
// with ErrThrottled while the prior challenge is younger than the cool-down.
// The throttle decision is delegated to the store as one atomic step, so
// concurrent issuances for the same scope yield exactly one challenge.
func (m *Manager) Issue(ctx context.Context, ownerID, purpose string) (string, Challenge, error) {
	now := m.now().UTC()

	code, err := generateCode()
	if err != nil {
		return "", Challenge{}, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", Challenge{}, fmt.Errorf("hash code: %w", err)
	}

	challenge := Challenge{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Purpose:  purpose,
		CodeHash: hash,
		IssuedAt: now,
		Duration: m.ttl,
	}
	ok, err := m.store.Supersede(ctx, challenge, now.Add(-m.cooldown))
	if err != nil {
		return "", Challenge{}, fmt.Errorf("save challenge: %w", err)
	}
	if !ok {
		return "", Challenge{}, ErrThrottled
	}

	return code, challenge, nil
}

// Verify consumes the challenge for the scope if the code matches and the
// challenge has not expired. A verified challenge is deleted and can never
// verify again.
func (m *Manager) Verify(ctx context.Context, ownerID, purpose, code string) error {
	if !wellFormed(code) {
		return ErrInvalid
	}

	challenge, ok, err := m.store.Latest(ctx, ownerID, purpose)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if !ok {
		return ErrInvalid
	}

	if m.now().UTC().After(challenge.ExpiresAt()) {
		// Expired challenges are inert; clean up lazily.
		_ = m.store.Delete(ctx, challenge.ID)
		return ErrExpired
	}

	if bcrypt.CompareHashAndPassword(challenge.CodeHash, []byte(code)) != nil {
		return ErrInvalid
	}

	if err := m.store.Delete(ctx, challenge.ID); err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	return nil
}

// RetryAfter reports how long callers should wait before reissuing.
func (m *Manager) RetryAfter() time.Duration {
	return m.cooldown
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

func wellFormed(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
