package user

import (
	"errors"
	"time"
)

// StatusActive marks users allowed to move funds. Any other status blocks
// both sending and withdrawal.
const StatusActive = "active"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrNoBankAccount indicates the user has no bank account on file.
	ErrNoBankAccount = errors.New("no bank account on file")
)

// User is the read model of an account holder owned by the external identity
// service. This service never creates or mutates users.
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Status    string
	CreatedAt time.Time
}

// Active reports whether the user may participate in funds movement.
func (u User) Active() bool {
	return u.Status == StatusActive
}

// BankAccount is the destination on file for bank withdrawals.
type BankAccount struct {
	OwnerID       string
	BankName      string
	AccountNumber string
	HolderName    string
}
