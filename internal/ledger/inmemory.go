package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/partner"
)

type inMemoryLedger struct {
	mu          sync.Mutex
	wallets     map[string]Wallet
	entries     []Entry
	withdrawals []WithdrawalRequest
	linker      partner.Linker
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests. The linker records partner relationships for transfers; pass
// partner.NewMemoryLinker().
func NewInMemory(linker partner.Linker) Ledger {
	if linker == nil {
		linker = partner.NewMemoryLinker()
	}
	return &inMemoryLedger{
		wallets: make(map[string]Wallet),
		linker:  linker,
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.wallets[ownerID]; ok {
		return w, nil
	}
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Currency:  Currency,
		CreatedAt: time.Now().UTC(),
	}
	l.wallets[ownerID] = w
	return w, nil
}

func (l *inMemoryLedger) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (l *inMemoryLedger) MovedBetween(_ context.Context, ownerID string, window Window) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.movedLocked(ownerID, window), nil
}

func (l *inMemoryLedger) movedLocked(ownerID string, window Window) int64 {
	var total int64
	for _, e := range l.entries {
		if e.OwnerID == ownerID && e.Kind == KindExpense && window.Contains(e.CreatedAt) {
			total += e.Amount
		}
	}
	for _, w := range l.withdrawals {
		if w.OwnerID == ownerID && w.Status == WithdrawalStatusRequested && window.Contains(w.CreatedAt) {
			total += w.Amount
		}
	}
	return total
}

func (l *inMemoryLedger) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}
	if input.Sender.UserID == input.Receiver.UserID {
		return TransferResult{}, fmt.Errorf("sender and receiver must differ")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender, ok := l.wallets[input.Sender.UserID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	receiver, ok := l.wallets[input.Receiver.UserID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}

	if sender.Balance < input.Amount {
		return TransferResult{}, ErrInsufficientBalance
	}
	if input.DailyLimit > 0 {
		if l.movedLocked(sender.OwnerID, input.Window)+input.Amount > input.DailyLimit {
			return TransferResult{}, limits.ErrDailyLimitExceeded
		}
	}

	senderPartner, err := l.linker.FindOrCreate(ctx, nil, partner.Partner{
		OwnerID:   input.Sender.UserID,
		Email:     input.Receiver.Email,
		Name:      input.Receiver.Name,
		AvatarURL: input.Receiver.AvatarURL,
	})
	if err != nil {
		return TransferResult{}, err
	}
	receiverPartner, err := l.linker.FindOrCreate(ctx, nil, partner.Partner{
		OwnerID:   input.Receiver.UserID,
		Email:     input.Sender.Email,
		Name:      input.Sender.Name,
		AvatarURL: input.Sender.AvatarURL,
	})
	if err != nil {
		return TransferResult{}, err
	}

	sender.Balance -= input.Amount
	receiver.Balance += input.Amount
	l.wallets[sender.OwnerID] = sender
	l.wallets[receiver.OwnerID] = receiver

	now := time.Now().UTC()
	expense := Entry{
		ID:        uuid.NewString(),
		OwnerID:   sender.OwnerID,
		WalletID:  sender.ID,
		Kind:      KindExpense,
		Amount:    input.Amount,
		Currency:  Currency,
		PartnerID: senderPartner.ID,
		CreatedAt: now,
	}
	income := Entry{
		ID:        uuid.NewString(),
		OwnerID:   receiver.OwnerID,
		WalletID:  receiver.ID,
		Kind:      KindIncome,
		Amount:    input.Amount,
		Currency:  Currency,
		PartnerID: receiverPartner.ID,
		CreatedAt: now,
	}
	l.entries = append(l.entries, expense, income)

	return TransferResult{
		Expense:         expense,
		Income:          income,
		SenderBalance:   sender.Balance,
		ReceiverBalance: receiver.Balance,
	}, nil
}

func (l *inMemoryLedger) Withdraw(_ context.Context, input WithdrawInput) (WithdrawResult, error) {
	if input.Amount <= 0 {
		return WithdrawResult{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[input.OwnerID]
	if !ok {
		return WithdrawResult{}, ErrWalletNotFound
	}
	if w.Balance < input.Amount {
		return WithdrawResult{}, ErrInsufficientBalance
	}
	if input.DailyLimit > 0 {
		if l.movedLocked(w.OwnerID, input.Window)+input.Amount > input.DailyLimit {
			return WithdrawResult{}, limits.ErrDailyLimitExceeded
		}
	}

	w.Balance -= input.Amount
	w.Frozen += input.Amount
	l.wallets[w.OwnerID] = w

	request := WithdrawalRequest{
		ID:        uuid.NewString(),
		OwnerID:   w.OwnerID,
		Amount:    input.Amount,
		Currency:  Currency,
		Status:    WithdrawalStatusRequested,
		Reference: newReference(),
		CreatedAt: time.Now().UTC(),
	}
	l.withdrawals = append(l.withdrawals, request)

	return WithdrawResult{Request: request, Balance: w.Balance, Frozen: w.Frozen}, nil
}

// newReference generates a human-quotable withdrawal reference code.
func newReference() string {
	return "WD-" + strings.ToUpper(uuid.NewString()[:8])
}
