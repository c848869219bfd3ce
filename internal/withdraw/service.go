package withdraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fiora-pay/fiora_funds/internal/ledger"
	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/notification"
	"github.com/fiora-pay/fiora_funds/internal/otp"
	"github.com/fiora-pay/fiora_funds/internal/user"
)

var (
	// ErrInvalidAmount indicates a missing or non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUserInactive indicates the user may not withdraw.
	ErrUserInactive = errors.New("user is not active")
)

// Service orchestrates bank withdrawals: OTP challenge, limit validation,
// and the atomic balance-to-frozen conversion.
type Service struct {
	users    user.Repository
	ledger   ledger.Ledger
	limits   *limits.Resolver
	otp      *otp.Manager
	notifier notification.Notifier
	inbox    notification.Inbox
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a withdrawal orchestrator.
func NewService(users user.Repository, led ledger.Ledger, resolver *limits.Resolver, manager *otp.Manager, notifier notification.Notifier, inbox notification.Inbox, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		users:    users,
		ledger:   led,
		limits:   resolver,
		otp:      manager,
		notifier: notifier,
		inbox:    inbox,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Overview reports the caller's withdrawal headroom and bank destination.
type Overview struct {
	DailyLimit     int64
	OneTimeLimit   int64
	MovedAmount    int64
	AvailableLimit int64
	Currency       string
	BankAccount    user.BankAccount
}

// Overview resolves limits, the moved-so-far total, and the on-file bank
// account. Available headroom is floored at zero.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return Overview{}, err
	}

	account, err := s.users.BankAccount(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	ml, err := s.limits.MovingLimits(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	moved, err := s.ledger.MovedBetween(ctx, userID, s.window())
	if err != nil {
		return Overview{}, err
	}

	available := ml.Daily.Value - moved
	if available < 0 {
		available = 0
	}

	return Overview{
		DailyLimit:     ml.Daily.Value,
		OneTimeLimit:   ml.OneTime.Value,
		MovedAmount:    moved,
		AvailableLimit: available,
		Currency:       ml.Daily.Currency,
		BankAccount:    account,
	}, nil
}

// RequestOtp issues a withdrawal-scoped OTP after confirming the user is
// active and has a bank account on file. Amount validation happens at
// submission.
func (s *Service) RequestOtp(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Active() {
		return ErrUserInactive
	}

	account, err := s.users.BankAccount(ctx, userID)
	if err != nil {
		return err
	}

	code, _, err := s.otp.Issue(ctx, u.ID, otp.PurposeWithdrawal)
	if err != nil {
		return err
	}

	if err := s.notifier.SendOtpCode(ctx, notification.OtpCode{
		Email:             u.Email,
		Code:              code,
		CounterpartyEmail: account.BankName,
		SenderName:        u.Name,
	}); err != nil {
		s.logger.Error("send otp code", "user_id", u.ID, "error", err)
	}
	return nil
}

// Input carries a withdrawal submission.
type Input struct {
	UserID string
	Amount int64
	Code   string
}

// Result describes a committed withdrawal request.
type Result struct {
	Request ledger.WithdrawalRequest
	Balance int64
	Frozen  int64
}

// Submit verifies and consumes the OTP, re-validates balance and limits,
// then performs the atomic balance shift and records the request.
func (s *Service) Submit(ctx context.Context, in Input) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}

	u, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return Result{}, err
	}
	if !u.Active() {
		return Result{}, ErrUserInactive
	}

	if err := s.otp.Verify(ctx, u.ID, otp.PurposeWithdrawal, in.Code); err != nil {
		return Result{}, err
	}

	wallet, err := s.ledger.WalletByOwner(ctx, u.ID)
	if err != nil {
		return Result{}, err
	}
	if wallet.Balance < in.Amount {
		return Result{}, ledger.ErrInsufficientBalance
	}

	ml, err := s.limits.MovingLimits(ctx, u.ID)
	if err != nil {
		return Result{}, err
	}
	if in.Amount > ml.OneTime.Value {
		return Result{}, limits.ErrOneTimeLimitExceeded
	}

	window := s.window()
	moved, err := s.ledger.MovedBetween(ctx, u.ID, window)
	if err != nil {
		return Result{}, err
	}
	if moved+in.Amount > ml.Daily.Value {
		return Result{}, limits.ErrDailyLimitExceeded
	}

	res, err := s.ledger.Withdraw(ctx, ledger.WithdrawInput{
		OwnerID:    u.ID,
		Amount:     in.Amount,
		DailyLimit: ml.Daily.Value,
		Window:     window,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.inbox.Create(ctx, notification.Notice{
		Title:      "Withdrawal requested",
		Message:    fmt.Sprintf("Your withdrawal of %d %s is being processed (ref %s)", in.Amount, ledger.Currency, res.Request.Reference),
		Recipients: []string{u.ID},
		DeepLink:   "/wallet/withdrawals",
	}); err != nil {
		s.logger.Error("create inbox notice", "user_id", u.ID, "error", err)
	}

	return Result{Request: res.Request, Balance: res.Balance, Frozen: res.Frozen}, nil
}

func (s *Service) window() ledger.Window {
	from, to := limits.DayWindow(s.now(), s.loc)
	return ledger.Window{From: from, To: to}
}
