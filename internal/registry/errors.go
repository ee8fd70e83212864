package registry

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArea   = errors.New("Area size must be positive")
	ErrSelfTransfer  = errors.New("Cannot transfer a room to its current owner")
	ErrZeroAddress   = errors.New("Address is required")
	ErrNotMinter     = errors.New("Caller is not the registry owner")
	ErrNotAuthorized = errors.New("Caller is neither the room owner nor an approved operator")
)

// RoomNotFoundError reports an unknown room id.
type RoomNotFoundError struct {
	RoomID uint64
}

func (e RoomNotFoundError) Error() string {
	return fmt.Sprintf("Room %d not found", e.RoomID)
}

// NotOwnerError reports an ownership-gated operation by a non-owner.
type NotOwnerError struct {
	RoomID uint64
	Caller string
}

func (e NotOwnerError) Error() string {
	return fmt.Sprintf("Caller %s is not the owner of room %d", e.Caller, e.RoomID)
}
