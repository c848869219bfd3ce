package ledger

import (
	"context"
	"errors"
	"time"
)

// Currency is the internal unit of value tracked by wallets. Amounts are
// int64 minor units; money paths never touch floating point.
const Currency = "FX"

// Entry kinds.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

// WithdrawalStatusRequested marks a withdrawal awaiting external settlement.
const WithdrawalStatusRequested = "requested"

var (
	// ErrWalletNotFound indicates no payment wallet exists for the owner.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance occurs when the active balance cannot cover a
	// requested movement, at validation or at commit time.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Wallet is a user's holding of value. Active balance is spendable; frozen
// balance is earmarked for pending withdrawals until settlement.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	Frozen    int64
	Currency  string
	CreatedAt time.Time
}

// Entry is one immutable side of a money movement, referencing the partner
// record appropriate to its direction.
type Entry struct {
	ID        string
	OwnerID   string
	WalletID  string
	Kind      string
	Amount    int64
	Currency  string
	PartnerID string
	CreatedAt time.Time
}

// WithdrawalRequest is a pending request to move value out to a bank
// account. Status transitions past "requested" belong to the external
// settlement process.
type WithdrawalRequest struct {
	ID        string
	OwnerID   string
	Amount    int64
	Currency  string
	Status    string
	Reference string
	CreatedAt time.Time
}

// Window is a half-open [From, To) time range, typically one calendar day.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Party carries the identity and display data needed to link partner
// records for one side of a transfer.
type Party struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
}

// TransferInput describes an atomic peer-to-peer send. DailyLimit and
// Window drive the commit-time limit re-check: the check runs inside the
// same transaction that mutates balances, serialized per sender by the
// wallet row lock. A DailyLimit of zero or less disables the re-check.
type TransferInput struct {
	Sender     Party
	Receiver   Party
	Amount     int64
	DailyLimit int64
	Window     Window
}

// TransferResult captures the committed ledger pair and resulting balances.
type TransferResult struct {
	Expense         Entry
	Income          Entry
	SenderBalance   int64
	ReceiverBalance int64
}

// WithdrawInput describes an atomic balance-to-frozen conversion paired
// with a withdrawal request.
type WithdrawInput struct {
	OwnerID    string
	Amount     int64
	DailyLimit int64
	Window     Window
}

// WithdrawResult captures the created request and the wallet state after it.
type WithdrawResult struct {
	Request WithdrawalRequest
	Balance int64
	Frozen  int64
}

// Ledger is the transactional store for wallets, ledger entries, and
// withdrawal requests. Transfer and Withdraw are all-or-nothing: no partial
// balance mutation or half-created ledger pair is ever observable.
type Ledger interface {
	// EnsureWallet provisions the owner's wallet if absent and returns it.
	EnsureWallet(ctx context.Context, ownerID string) (Wallet, error)
	// WalletByOwner returns the owner's wallet.
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)
	// MovedBetween sums expense entries and requested withdrawal amounts
	// for the owner inside the window.
	MovedBetween(ctx context.Context, ownerID string, window Window) (int64, error)
	// Transfer atomically debits the sender, credits the receiver, links
	// both partner directions, and records the expense/income entry pair.
	Transfer(ctx context.Context, input TransferInput) (TransferResult, error)
	// Withdraw atomically moves amount from active to frozen balance and
	// records a withdrawal request in requested status.
	Withdraw(ctx context.Context, input WithdrawInput) (WithdrawResult, error)
}
