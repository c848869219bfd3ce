package sending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
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

	// ErrReceiverRequired indicates the receiver email was not provided.
	ErrReceiverRequired = errors.New("receiver email is required")

	// ErrSelfSend indicates sender and receiver are the same account.
	ErrSelfSend = errors.New("cannot send to yourself")

	// ErrUserInactive indicates sender or receiver is not active.
	ErrUserInactive = errors.New("user is not active")
)

// packageAmounts are the preset denominations offered on the sending screen,
// in FX minor units. Suggestions are filtered to fit the remaining limit.
var packageAmounts = []int64{10_000, 20_000, 50_000, 100_000, 200_000, 500_000}

// Service orchestrates peer-to-peer sends: pre-flight validation, OTP
// challenge, the atomic ledger write, and best-effort notifications.
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

// NewService builds a sending orchestrator.
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

// Overview reports the caller's sending headroom for the current day.
type Overview struct {
	DailyLimit       int64
	OneTimeLimit     int64
	MovedAmount      int64
	AvailableLimit   int64
	SuggestedAmounts []int64
	Currency         string
}

// LimitOverview resolves limits and the moved-so-far total for the user.
// Available headroom is floored at zero.
func (s *Service) LimitOverview(ctx context.Context, userID string) (Overview, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
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
		DailyLimit:       ml.Daily.Value,
		OneTimeLimit:     ml.OneTime.Value,
		MovedAmount:      moved,
		AvailableLimit:   available,
		SuggestedAmounts: suggestedAmounts(available, ml.OneTime.Value),
		Currency:         ml.Daily.Currency,
	}, nil
}

// Input carries a send request. Code is only set on submission.
type Input struct {
	UserID        string
	Amount        int64
	ReceiverEmail string
	Code          string
}

// Result describes a committed send.
type Result struct {
	Expense         ledger.Entry
	Income          ledger.Entry
	SenderBalance   int64
	ReceiverBalance int64
	CompletedAt     time.Time
}

// RequestOtp runs the full pre-flight validation and, if it passes, issues a
// sending-scoped OTP and dispatches it to the sender's email. No balance is
// mutated. The first violated precondition short-circuits the request.
func (s *Service) RequestOtp(ctx context.Context, in Input) error {
	pf, err := s.preflight(ctx, in)
	if err != nil {
		return err
	}

	code, _, err := s.otp.Issue(ctx, pf.sender.ID, otp.PurposeSending)
	if err != nil {
		return err
	}

	if err := s.notifier.SendOtpCode(ctx, notification.OtpCode{
		Email:             pf.sender.Email,
		Code:              code,
		Amount:            in.Amount,
		CounterpartyEmail: pf.receiver.Email,
		SenderName:        pf.sender.Name,
	}); err != nil {
		// The challenge stands; the user can retry delivery after the
		// cool-down.
		s.logger.Error("send otp code", "user_id", pf.sender.ID, "error", err)
	}
	return nil
}

// Submit re-runs pre-flight validation, verifies and consumes the OTP, then
// performs the atomic transfer. Notification failures after the commit are
// logged and never fail the request; the money movement is the operation of
// record.
func (s *Service) Submit(ctx context.Context, in Input) (Result, error) {
	pf, err := s.preflight(ctx, in)
	if err != nil {
		return Result{}, err
	}

	if err := s.otp.Verify(ctx, pf.sender.ID, otp.PurposeSending, in.Code); err != nil {
		return Result{}, err
	}

	res, err := s.ledger.Transfer(ctx, ledger.TransferInput{
		Sender: ledger.Party{
			UserID:    pf.sender.ID,
			Email:     pf.sender.Email,
			Name:      pf.sender.Name,
			AvatarURL: pf.sender.AvatarURL,
		},
		Receiver: ledger.Party{
			UserID:    pf.receiver.ID,
			Email:     pf.receiver.Email,
			Name:      pf.receiver.Name,
			AvatarURL: pf.receiver.AvatarURL,
		},
		Amount:     in.Amount,
		DailyLimit: pf.limits.Daily.Value,
		Window:     pf.window,
	})
	if err != nil {
		return Result{}, err
	}

	completedAt := s.now().UTC()
	s.notifyTransfer(ctx, pf, in.Amount, completedAt)

	return Result{
		Expense:         res.Expense,
		Income:          res.Income,
		SenderBalance:   res.SenderBalance,
		ReceiverBalance: res.ReceiverBalance,
		CompletedAt:     completedAt,
	}, nil
}

type preflightState struct {
	sender   user.User
	receiver user.User
	limits   limits.MovingLimits
	window   ledger.Window
}

func (s *Service) preflight(ctx context.Context, in Input) (preflightState, error) {
	if in.Amount <= 0 {
		return preflightState{}, ErrInvalidAmount
	}
	if strings.TrimSpace(in.ReceiverEmail) == "" {
		return preflightState{}, ErrReceiverRequired
	}

	sender, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return preflightState{}, err
	}
	if !sender.Active() {
		return preflightState{}, ErrUserInactive
	}

	receiver, err := s.users.FindByEmail(ctx, in.ReceiverEmail)
	if err != nil {
		return preflightState{}, err
	}
	if !receiver.Active() {
		return preflightState{}, ErrUserInactive
	}
	if receiver.ID == sender.ID {
		return preflightState{}, ErrSelfSend
	}

	senderWallet, err := s.ledger.WalletByOwner(ctx, sender.ID)
	if err != nil {
		return preflightState{}, err
	}
	if _, err := s.ledger.WalletByOwner(ctx, receiver.ID); err != nil {
		return preflightState{}, err
	}
	if senderWallet.Balance < in.Amount {
		return preflightState{}, ledger.ErrInsufficientBalance
	}

	ml, err := s.limits.MovingLimits(ctx, sender.ID)
	if err != nil {
		return preflightState{}, err
	}
	if in.Amount > ml.OneTime.Value {
		return preflightState{}, limits.ErrOneTimeLimitExceeded
	}

	window := s.window()
	moved, err := s.ledger.MovedBetween(ctx, sender.ID, window)
	if err != nil {
		return preflightState{}, err
	}
	if moved+in.Amount > ml.Daily.Value {
		return preflightState{}, limits.ErrDailyLimitExceeded
	}

	return preflightState{sender: sender, receiver: receiver, limits: ml, window: window}, nil
}

func (s *Service) notifyTransfer(ctx context.Context, pf preflightState, amount int64, at time.Time) {
	receipts := []notification.Receipt{
		{Email: pf.sender.Email, SenderName: pf.sender.Name, ReceiverName: pf.receiver.Name, Amount: amount, SentAt: at, IsSender: true},
		{Email: pf.receiver.Email, SenderName: pf.sender.Name, ReceiverName: pf.receiver.Name, Amount: amount, SentAt: at, IsSender: false},
	}
	for _, r := range receipts {
		if err := s.notifier.SendTransferReceipt(ctx, r); err != nil {
			s.logger.Error("send transfer receipt", "email", r.Email, "error", err)
		}
	}

	notices := []notification.Notice{
		{
			Title:      "Transfer sent",
			Message:    fmt.Sprintf("You sent %d %s to %s", amount, ledger.Currency, pf.receiver.Name),
			Recipients: []string{pf.sender.ID},
			DeepLink:   "/wallet/transactions",
		},
		{
			Title:      "Transfer received",
			Message:    fmt.Sprintf("You received %d %s from %s", amount, ledger.Currency, pf.sender.Name),
			Recipients: []string{pf.receiver.ID},
			DeepLink:   "/wallet/transactions",
		},
	}
	for _, n := range notices {
		if err := s.inbox.Create(ctx, n); err != nil {
			s.logger.Error("create inbox notice", "title", n.Title, "error", err)
		}
	}
}

func (s *Service) window() ledger.Window {
	from, to := limits.DayWindow(s.now(), s.loc)
	return ledger.Window{From: from, To: to}
}

func suggestedAmounts(available, oneTime int64) []int64 {
	ceiling := available
	if oneTime < ceiling {
		ceiling = oneTime
	}
	out := make([]int64, 0, len(packageAmounts))
	for _, amount := range packageAmounts {
		if amount <= ceiling {
			out = append(out, amount)
		}
	}
	return out
}
