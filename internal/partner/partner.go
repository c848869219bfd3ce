package partner

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Partner is a directed address-book entry: a record owned by one user that
// points at a counterparty by email. It is created lazily on first transfer
// between two users and reused afterwards.
type Partner struct {
	ID        string
	OwnerID   string
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
}

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx. It lets the
// ledger run partner linking inside its own transaction. In-memory
// implementations ignore it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Linker finds or creates the partner record owned by p.OwnerID that points
// at p.Email. Re-invocation with the same owner/email pair never creates a
// duplicate.
type Linker interface {
	FindOrCreate(ctx context.Context, db DBTX, p Partner) (Partner, error)
}
