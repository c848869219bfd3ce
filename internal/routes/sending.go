package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fiora-pay/fiora_funds/internal/sending"
)

// RegisterSendingRoutes wires the peer-to-peer sending endpoints.
func RegisterSendingRoutes(r fiber.Router, h *sending.Handler, idem, otpLimit fiber.Handler) {
	r.Get("/sending/limits", h.Limits)
	r.Post("/sending/otp", otpLimit, h.RequestOtp)
	r.Post("/sending", idem, h.Submit)
}
