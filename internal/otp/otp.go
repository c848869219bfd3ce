package otp

import (
	"context"
	"errors"
	"time"
)

// Purposes scope a challenge to the action it authorizes. A code issued for
// sending cannot verify a withdrawal.
const (
	PurposeSending    = "sending"
	PurposeWithdrawal = "withdrawal"
)

// CodeLength is the number of digits in a generated code.
const CodeLength = 6

var (
	// ErrThrottled indicates a still-recent challenge exists for the same
	// scope; the caller must wait out the cool-down before reissuing.
	ErrThrottled = errors.New("otp requested too soon")

	// ErrInvalid indicates no challenge matches the submitted code.
	ErrInvalid = errors.New("otp invalid")

	// ErrExpired indicates the matching challenge outlived its duration.
	ErrExpired = errors.New("otp expired")
)

// Challenge is a single-use, time-boxed verification code scoped to a user
// and purpose. Only the bcrypt hash of the code is stored.
type Challenge struct {
	ID       string
	OwnerID  string
	Purpose  string
	CodeHash []byte
	IssuedAt time.Time
	Duration time.Duration
}

// ExpiresAt returns the instant after which the challenge cannot verify.
func (c Challenge) ExpiresAt() time.Time {
	return c.IssuedAt.Add(c.Duration)
}

// Store persists challenges, at most one per (owner, purpose) scope.
// Consumption is expressed as deletion: a challenge that no longer exists
// can never verify again.
type Store interface {
	// Latest returns the challenge for the scope, if any.
	Latest(ctx context.Context, ownerID, purpose string) (Challenge, bool, error)
	// Supersede atomically replaces the scope's challenge with c, unless a
	// challenge issued after notBefore already holds the scope. Returns
	// false when the younger challenge blocks the replacement. Concurrent
	// callers for one scope see exactly one true.
	Supersede(ctx context.Context, c Challenge, notBefore time.Time) (bool, error)
	// Delete removes a challenge by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}
