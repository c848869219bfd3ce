package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fiora-pay/fiora_funds/internal/withdraw"
)

// RegisterWithdrawRoutes wires the bank withdrawal endpoints.
func RegisterWithdrawRoutes(r fiber.Router, h *withdraw.Handler, idem, otpLimit fiber.Handler) {
	r.Get("/withdrawals/overview", h.Overview)
	r.Post("/withdrawals/otp", otpLimit, h.RequestOtp)
	r.Post("/withdrawals", idem, h.Submit)
}
