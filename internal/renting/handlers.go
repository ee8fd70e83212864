package renting

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

// POST /api/v1/renting/list-room
func (h *Handlers) ListRoom(c *fiber.Ctx) error {
	var body struct {
		RoomID         uint64 `json:"room_id"`
		PricePerPeriod uint64 `json:"price_per_period"`
		MaxPeriods     uint64 `json:"max_periods"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	listing, err := h.Service.ListItem(c.Context(), caller, body.RoomID, body.PricePerPeriod, body.MaxPeriods)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Room listed for rent", listing, nil)
}

// POST /api/v1/renting/cancel-listing
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
	return response.Success(c, "Rental listing cancelled", fiber.Map{"room_id": body.RoomID}, nil)
}

// POST /api/v1/renting/rent
func (h *Handlers) Rent(c *fiber.Ctx) error {
	var body struct {
		RoomID  uint64 `json:"room_id"`
		Periods uint64 `json:"periods"`
		Payment uint64 `json:"payment"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	room, err := h.Service.RentNFT(c.Context(), caller, body.RoomID, body.Periods, body.Payment)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Room rented", room, nil)
}

// GET /api/v1/renting/listing/:room_id. Unlisted rooms come back as a
// zero-valued listing, not an error.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	roomID, err := strconv.ParseUint(c.Params("room_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid room_id", 400, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), roomID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Rental listing fetched", listing, nil)
}

// GET /api/v1/renting/fee
func (h *Handlers) GetFee(c *fiber.Ctx) error {
	fee, err := h.Service.GetFeePercentage(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Fee percentage fetched", fiber.Map{"fee_percentage": fee}, nil)
}

// POST /api/v1/renting/withdraw-proceeds
func (h *Handlers) WithdrawProceeds(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)
	amount, err := h.Service.WithdrawProceeds(c.Context(), caller)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proceeds withdrawn", fiber.Map{"amount": amount}, nil)
}

// POST /api/v1/renting/withdraw-fees
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
	var forSale IsForSaleError
	if errors.As(err, &forSale) {
		return response.Error(c, err.Error(), 409, fiber.Map{"room_id": forSale.RoomID})
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
	var badPeriods InvalidPeriodsError
	if errors.As(err, &badPeriods) {
		return response.Error(c, err.Error(), 400, fiber.Map{
			"room_id":     badPeriods.RoomID,
			"periods":     badPeriods.Periods,
			"max_periods": badPeriods.MaxPeriods,
		})
	}
	var roomNotFound registry.RoomNotFoundError
	if errors.As(err, &roomNotFound) {
		return response.Error(c, err.Error(), 404, fiber.Map{"room_id": roomNotFound.RoomID})
	}
	switch {
	case errors.Is(err, ErrInvalidListing), errors.Is(err, ErrInvalidFee), errors.Is(err, ErrZeroAddress):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, ErrUnauthorized):
		return response.Error(c, err.Error(), 403, nil)
	}
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return response.Error(c, err.Error(), 402, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}
