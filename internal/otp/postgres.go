package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists challenges in PostgreSQL. A unique constraint on
// (owner_id, purpose) keeps one challenge per scope and makes Supersede's
// cool-down guard atomic under concurrent issuance.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed challenge store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Latest returns the challenge holding the scope, if any.
func (s *PostgresStore) Latest(ctx context.Context, ownerID, purpose string) (Challenge, bool, error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return Challenge{}, false, nil
	}
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, purpose, code_hash, issued_at, duration_seconds
        FROM otp_challenges WHERE owner_id = $1 AND purpose = $2`, ownerUUID, purpose)

	var (
		id       uuid.UUID
		owner    uuid.UUID
		issuedAt time.Time
		seconds  int64
		c        Challenge
	)
	if err := row.Scan(&id, &owner, &c.Purpose, &c.CodeHash, &issuedAt, &seconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, false, nil
		}
		return Challenge{}, false, err
	}
	c.ID = id.String()
	c.OwnerID = owner.String()
	c.IssuedAt = issuedAt.UTC()
	c.Duration = time.Duration(seconds) * time.Second
	return c, true, nil
}

// Supersede replaces the scope's challenge with c unless a challenge issued
// after notBefore already holds it. The ON CONFLICT update only wins when
// the resident row has aged past the cool-down boundary, so two concurrent
// issuances resolve to exactly one stored challenge.
func (s *PostgresStore) Supersede(ctx context.Context, c Challenge, notBefore time.Time) (bool, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return false, err
	}
	owner, err := uuid.Parse(c.OwnerID)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO otp_challenges (id, owner_id, purpose, code_hash, issued_at, duration_seconds)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (owner_id, purpose) DO UPDATE
        SET id = EXCLUDED.id,
            code_hash = EXCLUDED.code_hash,
            issued_at = EXCLUDED.issued_at,
            duration_seconds = EXCLUDED.duration_seconds
        WHERE otp_challenges.issued_at <= $7`,
		id, owner, c.Purpose, c.CodeHash, c.IssuedAt.UTC(), int64(c.Duration/time.Second), notBefore.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a challenge by id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	challengeID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `DELETE FROM otp_challenges WHERE id = $1`, challengeID)
	return err
}

