package sending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fiora-pay/fiora_funds/internal/ledger"
	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/logging"
	"github.com/fiora-pay/fiora_funds/internal/notification"
	"github.com/fiora-pay/fiora_funds/internal/otp"
	"github.com/fiora-pay/fiora_funds/internal/user"
)

type testNotifier struct {
	mu       sync.Mutex
	codes    []notification.OtpCode
	receipts []notification.Receipt
	fail     error
}

func (n *testNotifier) SendOtpCode(_ context.Context, msg notification.OtpCode) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.codes = append(n.codes, msg)
	return nil
}

func (n *testNotifier) SendTransferReceipt(_ context.Context, receipt notification.Receipt) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.receipts = append(n.receipts, receipt)
	return nil
}

func (n *testNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return ""
	}
	return n.codes[len(n.codes)-1].Code
}

type fixture struct {
	svc      *Service
	users    *user.MemoryRepository
	ledger   ledger.Ledger
	notifier *testNotifier
	inbox    *notification.MemoryInbox
	sender   user.User
	receiver user.User
}

func newFixture(t *testing.T, daily, oneTime int64) *fixture {
	t.Helper()

	users := user.NewMemoryRepository()
	sender := user.User{ID: "11111111-1111-1111-1111-111111111111", Email: "sender@example.com", Name: "Sender", Status: user.StatusActive}
	receiver := user.User{ID: "22222222-2222-2222-2222-222222222222", Email: "receiver@example.com", Name: "Receiver", Status: user.StatusActive}
	users.Put(sender)
	users.Put(receiver)

	led := ledger.NewInMemory(nil)
	if _, err := led.EnsureWallet(context.Background(), receiver.ID); err != nil {
		t.Fatalf("ensure receiver wallet: %v", err)
	}

	resolver := limits.NewResolver(limits.StaticBenefitSource{
		limits.BenefitDailyMovingLimit:   {Value: daily, Currency: ledger.Currency},
		limits.BenefitOneTimeMovingLimit: {Value: oneTime, Currency: ledger.Currency},
	})

	manager := otp.NewManager(otp.NewMemoryStore(), 2*time.Minute, 2*time.Minute)
	notifier := &testNotifier{}
	inbox := notification.NewMemoryInbox()

	svc := NewService(users, led, resolver, manager, notifier, inbox, time.UTC, logging.Discard())

	return &fixture{svc: svc, users: users, ledger: led, notifier: notifier, inbox: inbox, sender: sender, receiver: receiver}
}

func (f *fixture) requestCode(t *testing.T, amount int64) string {
	t.Helper()
	if err := f.svc.RequestOtp(context.Background(), Input{UserID: f.sender.ID, Amount: amount, ReceiverEmail: f.receiver.Email}); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := f.notifier.lastCode()
	if code == "" {
		t.Fatalf("no otp code delivered")
	}
	return code
}

func TestSubmitSuccess(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 500)
	from, to := limits.DayWindow(time.Now(), time.UTC)
	ledger.SeedMoved(f.ledger, f.sender.ID, 200, ledger.Window{From: from, To: to})

	code := f.requestCode(t, 300)

	res, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 300, ReceiverEmail: f.receiver.Email, Code: code})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if res.SenderBalance != 200 || res.ReceiverBalance != 300 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.Expense.Amount != 300 || res.Income.Amount != 300 {
		t.Fatalf("entry amounts must equal the sent amount: %+v", res)
	}

	overview, err := f.svc.LimitOverview(ctx, f.sender.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.MovedAmount != 500 {
		t.Fatalf("expected moved 500, got %d", overview.MovedAmount)
	}
	if overview.AvailableLimit != 500 {
		t.Fatalf("expected available 500, got %d", overview.AvailableLimit)
	}

	if len(f.notifier.receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(f.notifier.receipts))
	}
	if len(f.inbox.Notices()) != 2 {
		t.Fatalf("expected 2 inbox notices, got %d", len(f.inbox.Notices()))
	}
}

func TestSubmitDailyLimitExceeded(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 5_000)
	from, to := limits.DayWindow(time.Now(), time.UTC)
	ledger.SeedMoved(f.ledger, f.sender.ID, 200, ledger.Window{From: from, To: to})

	// 200 already moved + 900 breaches the 1000 daily ceiling.
	err := f.svc.RequestOtp(ctx, Input{UserID: f.sender.ID, Amount: 900, ReceiverEmail: f.receiver.Email})
	if !errors.Is(err, limits.ErrDailyLimitExceeded) {
		t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
	}

	w, _ := f.ledger.WalletByOwner(ctx, f.sender.ID)
	if w.Balance != 5_000 {
		t.Fatalf("balance must be unchanged, got %d", w.Balance)
	}
}

func TestSubmitOneTimeLimitExceeded(t *testing.T) {
	f := newFixture(t, 10_000, 500)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 5_000)

	err := f.svc.RequestOtp(ctx, Input{UserID: f.sender.ID, Amount: 600, ReceiverEmail: f.receiver.Email})
	if !errors.Is(err, limits.ErrOneTimeLimitExceeded) {
		t.Fatalf("expected ErrOneTimeLimitExceeded, got %v", err)
	}
}

func TestRequestOtpThrottled(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 500)

	if err := f.svc.RequestOtp(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.receiver.Email}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	err := f.svc.RequestOtp(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.receiver.Email})
	if !errors.Is(err, otp.ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
}

func TestSubmitInvalidOtp(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 500)
	f.requestCode(t, 100)

	_, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.receiver.Email, Code: "000000"})
	if !errors.Is(err, otp.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	w, _ := f.ledger.WalletByOwner(ctx, f.sender.ID)
	if w.Balance != 500 {
		t.Fatalf("balance must be unchanged, got %d", w.Balance)
	}
}

func TestOtpIsSingleUseAcrossSubmits(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 1_000)
	code := f.requestCode(t, 100)

	if _, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.receiver.Email, Code: code}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.receiver.Email, Code: code}); !errors.Is(err, otp.ErrInvalid) {
		t.Fatalf("expected ErrInvalid on reuse, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 0, ReceiverEmail: f.receiver.Email, Code: "123456"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: "  ", Code: "123456"}); !errors.Is(err, ErrReceiverRequired) {
		t.Fatalf("expected ErrReceiverRequired, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.sender.Email, Code: "123456"}); !errors.Is(err, ErrSelfSend) {
		t.Fatalf("expected ErrSelfSend, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: "stranger@example.com", Code: "123456"}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitInactiveReceiver(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 500)
	blocked := f.receiver
	blocked.Status = "suspended"
	f.users.Put(blocked)

	if err := f.svc.RequestOtp(ctx, Input{UserID: f.sender.ID, Amount: 100, ReceiverEmail: f.receiver.Email}); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
}

func TestNotificationFailureDoesNotUndoTransfer(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 1_000)
	code := f.requestCode(t, 400)

	f.notifier.fail = errors.New("smtp down")

	res, err := f.svc.Submit(ctx, Input{UserID: f.sender.ID, Amount: 400, ReceiverEmail: f.receiver.Email, Code: code})
	if err != nil {
		t.Fatalf("submit must succeed despite notifier failure: %v", err)
	}
	if res.SenderBalance != 600 {
		t.Fatalf("expected sender balance 600, got %d", res.SenderBalance)
	}
}

func TestOverviewFloorsAvailableAtZero(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.sender.ID, 10_000)
	from, to := limits.DayWindow(time.Now(), time.UTC)
	ledger.SeedMoved(f.ledger, f.sender.ID, 1_500, ledger.Window{From: from, To: to})

	overview, err := f.svc.LimitOverview(ctx, f.sender.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.AvailableLimit != 0 {
		t.Fatalf("available must floor at zero, got %d", overview.AvailableLimit)
	}
	if len(overview.SuggestedAmounts) != 0 {
		t.Fatalf("no suggestions fit a zero limit, got %v", overview.SuggestedAmounts)
	}
}
