package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/partner"
)

// PostgresLedger persists wallets, entries, and withdrawal requests in
// PostgreSQL. Every multi-step mutation runs inside one transaction with the
// affected wallet rows locked, so the daily-limit re-check, balance
// mutation, partner linking, and entry creation commit or roll back
// together.
type PostgresLedger struct {
	db     *pgxpool.Pool
	linker partner.Linker
}

// NewPostgresLedger constructs a Postgres-backed ledger.
func NewPostgresLedger(db *pgxpool.Pool, linker partner.Linker) *PostgresLedger {
	if linker == nil {
		linker = partner.NewPostgresLinker()
	}
	return &PostgresLedger{db: db, linker: linker}
}

// EnsureWallet provisions the owner's wallet if absent and returns it.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, ownerID string) (Wallet, error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse owner id: %w", err)
	}
	_, err = l.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, frozen_balance, currency, created_at)
        VALUES ($1, $2, 0, 0, $3, $4)
        ON CONFLICT (owner_id) DO NOTHING`, uuid.New(), ownerUUID, Currency, time.Now().UTC())
	if err != nil {
		return Wallet{}, err
	}
	return l.WalletByOwner(ctx, ownerID)
}

// WalletByOwner returns the owner's wallet.
func (l *PostgresLedger) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT id, owner_id, balance, frozen_balance, currency, created_at
        FROM wallets WHERE owner_id = $1`, ownerUUID)
	return scanWallet(row)
}

// MovedBetween sums expense entries and requested withdrawals in the window.
func (l *PostgresLedger) MovedBetween(ctx context.Context, ownerID string, window Window) (int64, error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, ErrWalletNotFound
	}
	return movedBetween(ctx, l.db, ownerUUID, window)
}

const movedQuery = `
    SELECT COALESCE((SELECT SUM(e.amount) FROM entries e
            WHERE e.owner_id = $1 AND e.kind = 'expense'
              AND e.created_at >= $2 AND e.created_at < $3), 0)
         + COALESCE((SELECT SUM(w.amount) FROM withdrawal_requests w
            WHERE w.owner_id = $1 AND w.status = 'requested'
              AND w.created_at >= $2 AND w.created_at < $3), 0)`

func movedBetween(ctx context.Context, q partner.DBTX, owner uuid.UUID, window Window) (int64, error) {
	var total int64
	if err := q.QueryRow(ctx, movedQuery, owner, window.From.UTC(), window.To.UTC()).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

type lockedWallet struct {
	id      uuid.UUID
	owner   uuid.UUID
	balance int64
	frozen  int64
}

func lockWallet(ctx context.Context, tx pgx.Tx, owner uuid.UUID) (lockedWallet, error) {
	row := tx.QueryRow(ctx, `SELECT id, owner_id, balance, frozen_balance
        FROM wallets WHERE owner_id = $1 FOR UPDATE`, owner)
	var w lockedWallet
	if err := row.Scan(&w.id, &w.owner, &w.balance, &w.frozen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lockedWallet{}, ErrWalletNotFound
		}
		return lockedWallet{}, err
	}
	return w, nil
}

// Transfer atomically moves value between two wallets and records the ledger
// pair. Wallet rows are locked in a stable order to avoid deadlocks between
// opposite-direction transfers; the sender's row lock serializes concurrent
// sends from the same user, which makes the in-transaction daily-limit
// re-check race-free.
func (l *PostgresLedger) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}
	senderUUID, err := uuid.Parse(input.Sender.UserID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("parse sender id: %w", err)
	}
	receiverUUID, err := uuid.Parse(input.Receiver.UserID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("parse receiver id: %w", err)
	}
	if senderUUID == receiverUUID {
		return TransferResult{}, fmt.Errorf("sender and receiver must differ")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := senderUUID, receiverUUID
	if second.String() < first.String() {
		first, second = second, first
	}
	firstWallet, err := lockWallet(ctx, tx, first)
	if err != nil {
		return TransferResult{}, err
	}
	secondWallet, err := lockWallet(ctx, tx, second)
	if err != nil {
		return TransferResult{}, err
	}
	senderWallet, receiverWallet := firstWallet, secondWallet
	if senderWallet.owner != senderUUID {
		senderWallet, receiverWallet = secondWallet, firstWallet
	}

	if senderWallet.balance < input.Amount {
		return TransferResult{}, ErrInsufficientBalance
	}
	if input.DailyLimit > 0 {
		moved, err := movedBetween(ctx, tx, senderUUID, input.Window)
		if err != nil {
			return TransferResult{}, err
		}
		if moved+input.Amount > input.DailyLimit {
			return TransferResult{}, limits.ErrDailyLimitExceeded
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance - $1 WHERE id = $2`, input.Amount, senderWallet.id); err != nil {
		return TransferResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE id = $2`, input.Amount, receiverWallet.id); err != nil {
		return TransferResult{}, err
	}

	senderPartner, err := l.linker.FindOrCreate(ctx, tx, partner.Partner{
		OwnerID:   input.Sender.UserID,
		Email:     input.Receiver.Email,
		Name:      input.Receiver.Name,
		AvatarURL: input.Receiver.AvatarURL,
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("link sender partner: %w", err)
	}
	receiverPartner, err := l.linker.FindOrCreate(ctx, tx, partner.Partner{
		OwnerID:   input.Receiver.UserID,
		Email:     input.Sender.Email,
		Name:      input.Sender.Name,
		AvatarURL: input.Sender.AvatarURL,
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("link receiver partner: %w", err)
	}

	now := time.Now().UTC()
	expense := Entry{
		ID:        uuid.NewString(),
		OwnerID:   input.Sender.UserID,
		WalletID:  senderWallet.id.String(),
		Kind:      KindExpense,
		Amount:    input.Amount,
		Currency:  Currency,
		PartnerID: senderPartner.ID,
		CreatedAt: now,
	}
	income := Entry{
		ID:        uuid.NewString(),
		OwnerID:   input.Receiver.UserID,
		WalletID:  receiverWallet.id.String(),
		Kind:      KindIncome,
		Amount:    input.Amount,
		Currency:  Currency,
		PartnerID: receiverPartner.ID,
		CreatedAt: now,
	}
	for _, e := range []Entry{expense, income} {
		if err := insertEntry(ctx, tx, e); err != nil {
			return TransferResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		Expense:         expense,
		Income:          income,
		SenderBalance:   senderWallet.balance - input.Amount,
		ReceiverBalance: receiverWallet.balance + input.Amount,
	}, nil
}

// Withdraw atomically converts active balance into frozen balance and
// records a withdrawal request in requested status.
func (l *PostgresLedger) Withdraw(ctx context.Context, input WithdrawInput) (WithdrawResult, error) {
	if input.Amount <= 0 {
		return WithdrawResult{}, fmt.Errorf("amount must be positive")
	}
	ownerUUID, err := uuid.Parse(input.OwnerID)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("parse owner id: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return WithdrawResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, ownerUUID)
	if err != nil {
		return WithdrawResult{}, err
	}
	if w.balance < input.Amount {
		return WithdrawResult{}, ErrInsufficientBalance
	}
	if input.DailyLimit > 0 {
		moved, err := movedBetween(ctx, tx, ownerUUID, input.Window)
		if err != nil {
			return WithdrawResult{}, err
		}
		if moved+input.Amount > input.DailyLimit {
			return WithdrawResult{}, limits.ErrDailyLimitExceeded
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = balance - $1, frozen_balance = frozen_balance + $1
        WHERE id = $2`, input.Amount, w.id); err != nil {
		return WithdrawResult{}, err
	}

	request := WithdrawalRequest{
		ID:        uuid.NewString(),
		OwnerID:   input.OwnerID,
		Amount:    input.Amount,
		Currency:  Currency,
		Status:    WithdrawalStatusRequested,
		Reference: newReference(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `INSERT INTO withdrawal_requests (id, owner_id, amount, currency, status, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.MustParse(request.ID), ownerUUID, request.Amount, request.Currency, request.Status, request.Reference, request.CreatedAt); err != nil {
		return WithdrawResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return WithdrawResult{}, err
	}

	return WithdrawResult{Request: request, Balance: w.balance - input.Amount, Frozen: w.frozen + input.Amount}, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, e Entry) error {
	_, err := tx.Exec(ctx, `INSERT INTO entries (id, owner_id, wallet_id, kind, amount, currency, partner_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.MustParse(e.ID), uuid.MustParse(e.OwnerID), uuid.MustParse(e.WalletID),
		e.Kind, e.Amount, e.Currency, uuid.MustParse(e.PartnerID), e.CreatedAt)
	return err
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		id        uuid.UUID
		owner     uuid.UUID
		createdAt time.Time
		w         Wallet
	)
	if err := row.Scan(&id, &owner, &w.Balance, &w.Frozen, &w.Currency, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = owner.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
