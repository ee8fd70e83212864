package renting

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidListing = errors.New("Price per period and max periods must be positive")
	ErrUnauthorized   = errors.New("Caller is not the marketplace owner")
	ErrInvalidFee     = errors.New("Fee percentage must be in [0,100]")
	ErrZeroAddress    = errors.New("Address is required")
)

// NotOwnerError reports a listing attempt by a non-owner.
type NotOwnerError struct {
	RoomID uint64
	Caller string
}

func (e NotOwnerError) Error() string {
	return fmt.Sprintf("Caller %s is not the owner of room %d", e.Caller, e.RoomID)
}

// IsForSaleError reports a rental listing attempt on a room listed for sale.
type IsForSaleError struct {
	RoomID uint64
}

func (e IsForSaleError) Error() string {
	return fmt.Sprintf("Room %d is listed for sale", e.RoomID)
}

// IsRentedError reports a listing attempt on a room with an active rental user.
type IsRentedError struct {
	RoomID uint64
	User   string
}

func (e IsRentedError) Error() string {
	return fmt.Sprintf("Room %d is rented by %s", e.RoomID, e.User)
}

// NotListedError reports a rent attempt on a room without an open rental
// listing (or one whose rental right is already taken).
type NotListedError struct {
	RoomID uint64
}

func (e NotListedError) Error() string {
	return fmt.Sprintf("Room %d is not listed for rent", e.RoomID)
}

// PriceNotMetError reports a payment that does not match the required total.
type PriceNotMetError struct {
	RoomID   uint64
	Expected uint64
}

func (e PriceNotMetError) Error() string {
	return fmt.Sprintf("Payment for room %d must equal %d", e.RoomID, e.Expected)
}

// InvalidPeriodsError reports a rent attempt outside the listed period bounds.
type InvalidPeriodsError struct {
	RoomID     uint64
	Periods    uint64
	MaxPeriods uint64
}

func (e InvalidPeriodsError) Error() string {
	return fmt.Sprintf("Room %d allows 1..%d periods, got %d", e.RoomID, e.MaxPeriods, e.Periods)
}
