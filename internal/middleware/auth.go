package middleware

import (
	"daoverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const walletLocal = "wallet_address"

// RequireWallet ensures a connected wallet address is in the session.
// Returns 401 with the standard error format if not.
func RequireWallet() fiber.Handler {
	return func(c *fiber.Ctx) error {
		addr := c.Locals(walletLocal)
		if addr == nil {
			return response.Unauthorized(c, "Wallet not connected")
		}
		return c.Next()
	}
}

// CallerAddress returns the connected wallet address ("" if none).
func CallerAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(walletLocal).(string)
	return addr
}
