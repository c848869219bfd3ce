package ledger

import "github.com/google/uuid"

// SeedBalance is a test helper that provisions a wallet with the given
// active balance when using the in-memory ledger.
func SeedBalance(l Ledger, ownerID string, amount int64) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	w, exists := mem.wallets[ownerID]
	if !exists {
		w = Wallet{ID: uuid.NewString(), OwnerID: ownerID, Currency: Currency}
	}
	w.Balance = amount
	mem.wallets[ownerID] = w
}

// SeedMoved is a test helper that records a synthetic expense entry so the
// owner appears to have already moved the given amount today.
func SeedMoved(l Ledger, ownerID string, amount int64, window Window) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	mem.entries = append(mem.entries, Entry{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Kind:      KindExpense,
		Amount:    amount,
		Currency:  Currency,
		CreatedAt: window.From.Add(window.To.Sub(window.From) / 2),
	})
}
