package withdraw

import (
	"context"
	"errors"
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
	codes []notification.OtpCode
}

func (n *testNotifier) SendOtpCode(_ context.Context, msg notification.OtpCode) error {
	n.codes = append(n.codes, msg)
	return nil
}

func (n *testNotifier) SendTransferReceipt(_ context.Context, _ notification.Receipt) error {
	return nil
}

type fixture struct {
	svc      *Service
	users    *user.MemoryRepository
	ledger   ledger.Ledger
	notifier *testNotifier
	inbox    *notification.MemoryInbox
	owner    user.User
}

func newFixture(t *testing.T, daily, oneTime int64) *fixture {
	t.Helper()

	users := user.NewMemoryRepository()
	owner := user.User{ID: "33333333-3333-3333-3333-333333333333", Email: "owner@example.com", Name: "Owner", Status: user.StatusActive}
	users.Put(owner)
	users.PutBankAccount(user.BankAccount{OwnerID: owner.ID, BankName: "First Bank", AccountNumber: "000123456", HolderName: "Owner"})

	led := ledger.NewInMemory(nil)

	resolver := limits.NewResolver(limits.StaticBenefitSource{
		limits.BenefitDailyMovingLimit:   {Value: daily, Currency: ledger.Currency},
		limits.BenefitOneTimeMovingLimit: {Value: oneTime, Currency: ledger.Currency},
	})

	manager := otp.NewManager(otp.NewMemoryStore(), 2*time.Minute, 2*time.Minute)
	notifier := &testNotifier{}
	inbox := notification.NewMemoryInbox()

	svc := NewService(users, led, resolver, manager, notifier, inbox, time.UTC, logging.Discard())

	return &fixture{svc: svc, users: users, ledger: led, notifier: notifier, inbox: inbox, owner: owner}
}

func (f *fixture) requestCode(t *testing.T) string {
	t.Helper()
	if err := f.svc.RequestOtp(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if len(f.notifier.codes) == 0 {
		t.Fatalf("no otp code delivered")
	}
	return f.notifier.codes[len(f.notifier.codes)-1].Code
}

func TestSubmitShiftsBalanceAndCreatesRequest(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.owner.ID, 5_000)
	code := f.requestCode(t)

	res, err := f.svc.Submit(ctx, Input{UserID: f.owner.ID, Amount: 1_500, Code: code})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if res.Balance != 3_500 || res.Frozen != 1_500 {
		t.Fatalf("unexpected wallet state: %+v", res)
	}
	if res.Request.Amount != 1_500 || res.Request.Status != ledger.WithdrawalStatusRequested {
		t.Fatalf("unexpected request: %+v", res.Request)
	}
	if len(f.inbox.Notices()) != 1 {
		t.Fatalf("expected 1 inbox notice, got %d", len(f.inbox.Notices()))
	}
}

func TestSubmitInsufficientBalance(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.owner.ID, 50)
	code := f.requestCode(t)

	if _, err := f.svc.Submit(ctx, Input{UserID: f.owner.ID, Amount: 100, Code: code}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if moved, _ := f.ledger.MovedBetween(ctx, f.owner.ID, window()); moved != 0 {
		t.Fatalf("no request may exist after failure, moved=%d", moved)
	}
}

func TestSubmitDailyLimitExceeded(t *testing.T) {
	f := newFixture(t, 1_000, 1_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.owner.ID, 5_000)
	ledger.SeedMoved(f.ledger, f.owner.ID, 800, window())
	code := f.requestCode(t)

	if _, err := f.svc.Submit(ctx, Input{UserID: f.owner.ID, Amount: 300, Code: code}); !errors.Is(err, limits.ErrDailyLimitExceeded) {
		t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
	}
}

func TestSubmitOneTimeLimitExceeded(t *testing.T) {
	f := newFixture(t, 10_000, 500)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.owner.ID, 5_000)
	code := f.requestCode(t)

	if _, err := f.svc.Submit(ctx, Input{UserID: f.owner.ID, Amount: 600, Code: code}); !errors.Is(err, limits.ErrOneTimeLimitExceeded) {
		t.Fatalf("expected ErrOneTimeLimitExceeded, got %v", err)
	}

	w, _ := f.ledger.WalletByOwner(ctx, f.owner.ID)
	if w.Balance != 5_000 || w.Frozen != 0 {
		t.Fatalf("wallet must be untouched, got %+v", w)
	}
}

func TestRequestOtpWithoutBankAccount(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)
	ctx := context.Background()

	other := user.User{ID: "44444444-4444-4444-4444-444444444444", Email: "nobank@example.com", Name: "No Bank", Status: user.StatusActive}
	f.users.Put(other)

	if err := f.svc.RequestOtp(ctx, other.ID); !errors.Is(err, user.ErrNoBankAccount) {
		t.Fatalf("expected ErrNoBankAccount, got %v", err)
	}
}

func TestOverviewIncludesBankAccount(t *testing.T) {
	f := newFixture(t, 1_000, 500)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.owner.ID, 5_000)
	ledger.SeedMoved(f.ledger, f.owner.ID, 400, window())

	overview, err := f.svc.Overview(ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.AvailableLimit != 600 {
		t.Fatalf("expected available 600, got %d", overview.AvailableLimit)
	}
	if overview.BankAccount.AccountNumber != "000123456" {
		t.Fatalf("missing bank account: %+v", overview.BankAccount)
	}
}

func TestSubmitWrongCode(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)
	ctx := context.Background()

	ledger.SeedBalance(f.ledger, f.owner.ID, 5_000)

	code := f.requestCode(t)
	if _, err := f.svc.Submit(ctx, Input{UserID: f.owner.ID, Amount: 100, Code: mutateCode(code)}); !errors.Is(err, otp.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func window() ledger.Window {
	from, to := limits.DayWindow(time.Now(), time.UTC)
	return ledger.Window{From: from, To: to}
}

// mutateCode flips the last digit so the code no longer matches.
func mutateCode(code string) string {
	last := code[len(code)-1]
	if last == '9' {
		last = '0'
	} else {
		last++
	}
	return code[:len(code)-1] + string(last)
}
