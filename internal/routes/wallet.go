package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tronscope/tronscope/internal/wallet"
)

// RegisterWalletRoutes wires the lookup and history endpoints. guards run
// in front of the lookup only, since it is the call that spends upstream quota.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, guards ...fiber.Handler) {
	r.Post("/wallet", append(guards, h.Create)...)
	r.Get("/records", h.List)
}
