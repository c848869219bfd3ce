package sending

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fiora-pay/fiora_funds/internal/ledger"
	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/otp"
	"github.com/fiora-pay/fiora_funds/internal/user"
)

// Handler exposes the sending endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a sending HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	Amount        int64  `json:"amount"`
	ReceiverEmail string `json:"receiver_email"`
	Otp           string `json:"otp"`
}

// Limits returns the caller's daily sending headroom.
func (h *Handler) Limits(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	overview, err := h.service.LimitOverview(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"daily_limit":       overview.DailyLimit,
		"one_time_limit":    overview.OneTimeLimit,
		"moved_amount":      overview.MovedAmount,
		"available_limit":   overview.AvailableLimit,
		"suggested_amounts": overview.SuggestedAmounts,
		"currency":          overview.Currency,
	})
}

// RequestOtp validates the send and issues a one-time code.
func (h *Handler) RequestOtp(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.RequestOtp(c.UserContext(), Input{
		UserID:        uid,
		Amount:        req.Amount,
		ReceiverEmail: req.ReceiverEmail,
	}); err != nil {
		return mapError(err)
	}

	return c.SendStatus(http.StatusCreated)
}

// Submit verifies the code and performs the transfer.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Submit(c.UserContext(), Input{
		UserID:        uid,
		Amount:        req.Amount,
		ReceiverEmail: req.ReceiverEmail,
		Code:          req.Otp,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": res.Expense.ID,
		"sender_balance": res.SenderBalance,
		"amount":         res.Expense.Amount,
		"completed_at":   res.CompletedAt,
	})
}

// mapError translates domain sentinels into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrReceiverRequired),
		errors.Is(err, ErrSelfSend),
		errors.Is(err, ErrUserInactive),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, otp.ErrInvalid),
		errors.Is(err, otp.ErrExpired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, limits.ErrDailyLimitExceeded),
		errors.Is(err, limits.ErrOneTimeLimitExceeded):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, otp.ErrThrottled):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
