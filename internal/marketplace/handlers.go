package marketplace

import (
	"encoding/json"
	"errors"
	"strconv"

	"daoverse-backend/internal/ledger"
	"daoverse-backend/internal/middleware"
	"daoverse-backend/internal/pkg/response"
	"daoverse-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/market/list-room
func (h *Handlers) ListRoom(c *fiber.Ctx) error {
	var body struct {
		RoomID uint64 `json:"room_id"`
		Price  uint64 `json:"price"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	listing, err := h.Service.ListItem(c.Context(), caller, body.RoomID, body.Price)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Room listed for sale", listing, nil)
}

// POST /api/v1/market/update-listing
func (h *Handlers) UpdateListing(c *fiber.Ctx) error {
	var body struct {
		RoomID uint64 `json:"room_id"`
		Price  uint64 `json:"price"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	listing, err := h.Service.UpdateListing(c.Context(), caller, body.RoomID, body.Price)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Sale listing updated", listing, nil)
}

// POST /api/v1/market/cancel-listing
func (h *Handlers) CancelListing(c *fiber.Ctx) error {
	var body struct {
		RoomID uint64 `json:"room_id"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	if err := h.Service.CancelListing(c.Context(), caller, body.RoomID); err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Sale listing cancelled", fiber.Map{"room_id": body.RoomID}, nil)
}

// POST /api/v1/market/buy
func (h *Handlers) Buy(c *fiber.Ctx) error {
	var body struct {
		RoomID  uint64 `json:"room_id"`
		Payment uint64 `json:"payment"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	room, err := h.Service.BuyItem(c.Context(), caller, body.RoomID, body.Payment)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Room purchased", room, nil)
}

// GET /api/v1/market/listing/:room_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	roomID, err := strconv.ParseUint(c.Params("room_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid room_id", 400, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), roomID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Sale listing fetched", listing, nil)
}

// GET /api/v1/market/fee
func (h *Handlers) GetFee(c *fiber.Ctx) error {
	fee, err := h.Service.GetFeePercentage(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Fee percentage fetched", fiber.Map{"fee_percentage": fee}, nil)
}

// POST /api/v1/market/withdraw-proceeds
func (h *Handlers) WithdrawProceeds(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)
	amount, err := h.Service.WithdrawProceeds(c.Context(), caller)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proceeds withdrawn", fiber.Map{"amount": amount}, nil)
}

// POST /api/v1/market/withdraw-fees
func (h *Handlers) WithdrawFees(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)
	amount, err := h.Service.WithdrawFees(c.Context(), caller)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Fees withdrawn", fiber.Map{"amount": amount}, nil)
}

func mapError(c *fiber.Ctx, err error) error {
	var notOwner NotOwnerError
	if errors.As(err, &notOwner) {
		return response.Error(c, err.Error(), 403, fiber.Map{"room_id": notOwner.RoomID})
	}
	var forRent IsForRentError
	if errors.As(err, &forRent) {
		return response.Error(c, err.Error(), 409, fiber.Map{"room_id": forRent.RoomID})
	}
	var rented IsRentedError
	if errors.As(err, &rented) {
		return response.Error(c, err.Error(), 409, fiber.Map{"room_id": rented.RoomID, "user": rented.User})
	}
	var notListed NotListedError
	if errors.As(err, &notListed) {
		return response.Error(c, err.Error(), 404, fiber.Map{"room_id": notListed.RoomID})
	}
	var priceNotMet PriceNotMetError
	if errors.As(err, &priceNotMet) {
		return response.Error(c, err.Error(), 402, fiber.Map{
			"room_id":        priceNotMet.RoomID,
			"expected_price": priceNotMet.Expected,
		})
	}
	var roomNotFound registry.RoomNotFoundError
	if errors.As(err, &roomNotFound) {
		return response.Error(c, err.Error(), 404, fiber.Map{"room_id": roomNotFound.RoomID})
	}
	switch {
	case errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidFee), errors.Is(err, ErrZeroAddress):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, ErrUnauthorized):
		return response.Error(c, err.Error(), 403, nil)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return response.Error(c, err.Error(), 402, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}
