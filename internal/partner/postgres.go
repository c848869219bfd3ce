package partner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresLinker persists partners in PostgreSQL. A unique constraint on
// (owner_id, lower(counterparty_email)) backs the idempotence guarantee.
type PostgresLinker struct{}

// NewPostgresLinker builds a Postgres partner linker. It carries no pool of
// its own; callers pass the pool or an open transaction per call.
func NewPostgresLinker() *PostgresLinker {
	return &PostgresLinker{}
}

// FindOrCreate returns the existing partner for (owner, email) or inserts a
// new one. Safe under concurrent callers: the insert is ON CONFLICT DO
// NOTHING followed by a re-select.
func (l *PostgresLinker) FindOrCreate(ctx context.Context, db DBTX, p Partner) (Partner, error) {
	ownerUUID, err := uuid.Parse(p.OwnerID)
	if err != nil {
		return Partner{}, fmt.Errorf("parse partner owner id: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))

	existing, err := l.find(ctx, db, ownerUUID, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, err
	}

	_, err = db.Exec(ctx, `INSERT INTO partners (id, owner_id, counterparty_email, counterparty_name, counterparty_avatar_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (owner_id, counterparty_email) DO NOTHING`,
		uuid.New(), ownerUUID, email, p.Name, p.AvatarURL, time.Now().UTC())
	if err != nil {
		return Partner{}, err
	}

	return l.find(ctx, db, ownerUUID, email)
}

func (l *PostgresLinker) find(ctx context.Context, db DBTX, owner uuid.UUID, email string) (Partner, error) {
	row := db.QueryRow(ctx, `SELECT id, owner_id, counterparty_email, counterparty_name, counterparty_avatar_url, created_at
        FROM partners WHERE owner_id = $1 AND counterparty_email = $2`, owner, email)
	var (
		id        uuid.UUID
		ownerID   uuid.UUID
		createdAt time.Time
		p         Partner
	)
	if err := row.Scan(&id, &ownerID, &p.Email, &p.Name, &p.AvatarURL, &createdAt); err != nil {
		return Partner{}, err
	}
	p.ID = id.String()
	p.OwnerID = ownerID.String()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
