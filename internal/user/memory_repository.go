package user

import (
	"context"
	"strings"
	"sync"
)

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]User),
		accounts: make(map[string]BankAccount),
	}
}

// MemoryRepository is an in-memory Repository with seed helpers for tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	accounts map[string]BankAccount
}

// Put stores or replaces a user.
func (r *MemoryRepository) Put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// PutBankAccount stores or replaces a bank account.
func (r *MemoryRepository) PutBankAccount(acct BankAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acct.OwnerID] = acct
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepository) BankAccount(_ context.Context, ownerID string) (BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[ownerID]
	if !ok {
		return BankAccount{}, ErrNoBankAccount
	}
	return acct, nil
}
