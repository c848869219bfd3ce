package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads user and bank-account records.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	BankAccount(ctx context.Context, ownerID string) (BankAccount, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, name, avatar_url, status, created_at
        FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, name, avatar_url, status, created_at
        FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	return scanUser(row)
}

// BankAccount fetches the user's on-file bank account.
func (r *PostgresRepository) BankAccount(ctx context.Context, ownerID string) (BankAccount, error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return BankAccount{}, ErrNoBankAccount
	}
	row := r.db.QueryRow(ctx, `SELECT owner_id, bank_name, account_number, holder_name
        FROM bank_accounts WHERE owner_id = $1`, ownerUUID)
	var (
		acct  BankAccount
		owner uuid.UUID
	)
	if err := row.Scan(&owner, &acct.BankName, &acct.AccountNumber, &acct.HolderName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrNoBankAccount
		}
		return BankAccount{}, err
	}
	acct.OwnerID = owner.String()
	return acct, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		u         User
	)
	if err := row.Scan(&id, &u.Email, &u.Name, &u.AvatarURL, &u.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.ID = id.String()
	u.CreatedAt = createdAt.UTC()
	return u, nil
}
