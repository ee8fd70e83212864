package marketplace

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice = errors.New("Price must be positive")
	ErrUnauthorized = errors.New("Caller is not the marketplace owner")
	ErrInvalidFee   = errors.New("Fee percentage must be in [0,100]")
	ErrZeroAddress  = errors.New("Address is required")
)

// NotOwnerError reports a listing mutation by a non-seller.
type NotOwnerError struct {
	RoomID uint64
	Caller string
}

func (e NotOwnerError) Error() string {
	return fmt.Sprintf("Caller %s is not the owner of room %d", e.Caller, e.RoomID)
}

// IsForRentError reports a sale listing attempt on a room listed for rent.
type IsForRentError struct {
	RoomID uint64
}

func (e IsForRentError) Error() string {
	return fmt.Sprintf("Room %d is listed for rent", e.RoomID)
}

// IsRentedError reports a sale listing attempt on a room with an active
// rental user; selling a room out from under a tenant is disallowed.
type IsRentedError struct {
	RoomID uint64
	User   string
}

func (e IsRentedError) Error() string {
	return fmt.Sprintf("Room %d is rented by %s", e.RoomID, e.User)
}

// NotListedError reports a purchase or mutation of a missing sale listing.
type NotListedError struct {
	RoomID uint64
}

func (e NotListedError) Error() string {
	return fmt.Sprintf("Room %d is not listed for sale", e.RoomID)
}

// PriceNotMetError reports a payment below the listed price.
type PriceNotMetError struct {
	RoomID   uint64
	Expected uint64
}

func (e PriceNotMetError) Error() string {
	return fmt.Sprintf("Payment for room %d must be at least %d", e.RoomID, e.Expected)
}
