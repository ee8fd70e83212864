package ledger

import (
	"encoding/json"
	"errors"
	"strconv"

	"daoverse-backend/internal/middleware"
	"daoverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the wallet and chain endpoints.
type Handlers struct {
	Service *Service
	Log     *Log
}

// GET /api/v1/wallet/balance
func (h *Handlers) Balance(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)
	balance, err := h.Service.Balance(c.Context(), caller)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Balance fetched", fiber.Map{
		"address": caller,
		"balance": balance,
	}, nil)
}

// POST /api/v1/wallet/deposit
func (h *Handlers) Deposit(c *fiber.Ctx) error {
	var body struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	wallet, err := h.Service.Deposit(c.Context(), caller, body.Amount)
	if err != nil {
		if errors.Is(err, ErrZeroAmount) {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Deposit credited", wallet, nil)
}

// GET /api/v1/chain/height
func (h *Handlers) Height(c *fiber.Ctx) error {
	height, err := h.Log.Height(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Height fetched", fiber.Map{"height": height}, nil)
}

// GET /api/v1/chain/events?limit=n
func (h *Handlers) Events(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	events, err := h.Log.Events(c.Context(), limit)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Events fetched", events, nil)
}

// POST /api/v1/chain/advance
func (h *Handlers) Advance(c *fiber.Ctx) error {
	var body struct {
		Blocks uint64 `json:"blocks"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.Blocks == 0 || body.Blocks > 100000 {
		return response.Error(c, "blocks must be between 1 and 100000", 400, nil)
	}
	height, err := h.Log.Advance(c.Context(), body.Blocks)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Chain advanced", fiber.Map{"height": height}, nil)
}
