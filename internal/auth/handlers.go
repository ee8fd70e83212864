package auth

import (
	"context"
	"encoding/json"
	"errors"

	"daoverse-backend/internal/middleware"
	"daoverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Rdb    *redis.Client
	Config middleware.SessionConfig
}

// POST /api/v1/auth/connect stores the caller's wallet address in a fresh
// session. No signature challenge; wallet verification is the front end's
// concern.
func (h *Handlers) Connect(c *fiber.Ctx) error {
	var body struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	address, err := NormalizeAddress(body.Address)
	if err != nil {
		if errors.Is(err, ErrAddressRequired) || errors.Is(err, ErrInvalidAddress) {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionAddress(c, address)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sid
	c.Cookie(&cookie)

	return response.Success(c, "Wallet connected", fiber.Map{"address": address}, nil)
}

// GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	address := middleware.CallerAddress(c)
	if address == "" {
		return response.Unauthorized(c, ErrNotConnected.Error())
	}
	return response.Success(c, "Connected wallet", fiber.Map{"address": address}, nil)
}

// DELETE /api/v1/auth/disconnect
func (h *Handlers) Disconnect(c *fiber.Ctx) error {
	sid := middleware.GetSessionID(c)
	if sid != "" && h.Rdb != nil {
		_ = h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sid).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Wallet disconnected", nil, nil)
}
