package withdraw

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fiora-pay/fiora_funds/internal/ledger"
	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/otp"
	"github.com/fiora-pay/fiora_funds/internal/user"
)

// Handler exposes the withdrawal endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a withdrawal HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	Amount int64  `json:"amount"`
	Otp    string `json:"otp"`
}

// Overview returns the caller's withdrawal headroom and bank account.
func (h *Handler) Overview(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	overview, err := h.service.Overview(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"daily_limit":     overview.DailyLimit,
		"one_time_limit":  overview.OneTimeLimit,
		"moved_amount":    overview.MovedAmount,
		"available_limit": overview.AvailableLimit,
		"currency":        overview.Currency,
		"bank_account": fiber.Map{
			"bank_name":      overview.BankAccount.BankName,
			"account_number": overview.BankAccount.AccountNumber,
			"holder_name":    overview.BankAccount.HolderName,
		},
	})
}

// RequestOtp issues a withdrawal one-time code.
func (h *Handler) RequestOtp(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.RequestOtp(c.UserContext(), uid); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusCreated)
}

// Submit verifies the code and executes the withdrawal.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Submit(c.UserContext(), Input{UserID: uid, Amount: req.Amount, Code: req.Otp})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"request_id":     res.Request.ID,
		"reference":      res.Request.Reference,
		"status":         res.Request.Status,
		"amount":         res.Request.Amount,
		"balance":        res.Balance,
		"frozen_balance": res.Frozen,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrUserInactive),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, otp.ErrInvalid),
		errors.Is(err, otp.ErrExpired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, user.ErrNoBankAccount),
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
