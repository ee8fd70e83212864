package registry

import (
	"encoding/json"
	"errors"
	"strconv"

	"daoverse-backend/internal/middleware"
	"daoverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/rooms/mint
func (h *Handlers) Mint(c *fiber.Ctx) error {
	var body struct {
		URI      string `json:"uri"`
		AreaSize uint64 `json:"area_size"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	room, err := h.Service.Mint(c.Context(), caller, body.URI, body.AreaSize, body.Name)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Room minted", room, nil)
}

// GET /api/v1/rooms
func (h *Handlers) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.Service.Rooms(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Rooms fetched", rooms, nil)
}

// GET /api/v1/rooms/:room_id
func (h *Handlers) GetRoom(c *fiber.Ctx) error {
	roomID, err := roomIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid room_id", 400, nil)
	}
	room, err := h.Service.Room(c.Context(), roomID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Room fetched", room, nil)
}

// GET /api/v1/rooms/:room_id/user returns the rental right holder plus
// expiry, recomputed lazily.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	roomID, err := roomIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid room_id", 400, nil)
	}
	user, err := h.Service.UserOf(c.Context(), roomID)
	if err != nil {
		return mapError(c, err)
	}
	expires, err := h.Service.UserExpires(c.Context(), roomID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Room user fetched", fiber.Map{
		"room_id": roomID,
		"user":    user,
		"expires": expires,
	}, nil)
}

// POST /api/v1/rooms/:room_id/transfer
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	roomID, err := roomIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid room_id", 400, nil)
	}
	var body struct {
		To string `json:"to"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	room, err := h.Service.Transfer(c.Context(), caller, roomID, body.To)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Room transferred", room, nil)
}

// POST /api/v1/rooms/:room_id/set-user
func (h *Handlers) SetUser(c *fiber.Ctx) error {
	roomID, err := roomIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid room_id", 400, nil)
	}
	var body struct {
		User    string `json:"user"`
		Expires int64  `json:"expires"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	if err := h.Service.SetUser(c.Context(), caller, roomID, body.User, body.Expires); err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Room user set", fiber.Map{"room_id": roomID}, nil)
}

// POST /api/v1/rooms/delegate
func (h *Handlers) Delegate(c *fiber.Ctx) error {
	var body struct {
		Delegate string `json:"delegate"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	if err := h.Service.Delegate(c.Context(), caller, body.Delegate); err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Votes delegated", fiber.Map{"delegate": body.Delegate}, nil)
}

// GET /api/v1/rooms/votes/:address
func (h *Handlers) GetVotes(c *fiber.Ctx) error {
	address := c.Params("address")
	votes, err := h.Service.GetVotes(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Votes fetched", fiber.Map{
		"address": address,
		"votes":   votes,
	}, nil)
}

func roomIDParam(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("room_id"), 10, 64)
}

func mapError(c *fiber.Ctx, err error) error {
	var notFound RoomNotFoundError
	if errors.As(err, &notFound) {
		return response.Error(c, err.Error(), 404, fiber.Map{"room_id": notFound.RoomID})
	}
	var notOwner NotOwnerError
	if errors.As(err, &notOwner) {
		return response.Error(c, err.Error(), 403, fiber.Map{"room_id": notOwner.RoomID})
	}
	switch {
	case errors.Is(err, ErrInvalidArea), errors.Is(err, ErrZeroAddress), errors.Is(err, ErrSelfTransfer):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, ErrNotMinter), errors.Is(err, ErrNotAuthorized):
		return response.Error(c, err.Error(), 403, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}
