package notification

import (
	"context"
	"log/slog"
	"time"
)

// OtpCode is a one-time code delivery to the account holder's email.
type OtpCode struct {
	Email             string
	Code              string
	Amount            int64
	CounterpartyEmail string
	SenderName        string
}

// Receipt summarizes a committed transfer for one of its parties.
type Receipt struct {
	Email        string
	SenderName   string
	ReceiverName string
	Amount       int64
	SentAt       time.Time
	IsSender     bool
}

// Notifier delivers messages through the external notification system.
// Calls may fail independently of the funds movement; callers log failures
// and never unwind a committed transfer because of them.
type Notifier interface {
	SendOtpCode(ctx context.Context, msg OtpCode) error
	SendTransferReceipt(ctx context.Context, receipt Receipt) error
}

// LoggerNotifier is a stub Notifier that writes deliveries to the logger.
// The code itself is never logged.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// SendOtpCode logs the delivery without the code value.
func (n *LoggerNotifier) SendOtpCode(_ context.Context, msg OtpCode) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("otp code delivery", "email", msg.Email, "amount", msg.Amount, "counterparty", msg.CounterpartyEmail)
	return nil
}

// SendTransferReceipt logs the receipt delivery.
func (n *LoggerNotifier) SendTransferReceipt(_ context.Context, receipt Receipt) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("transfer receipt delivery", "email", receipt.Email, "amount", receipt.Amount, "is_sender", receipt.IsSender)
	return nil
}
