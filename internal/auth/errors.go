package auth

import "errors"

var (
	ErrAddressRequired = errors.New("Wallet address is required")
	ErrInvalidAddress  = errors.New("Invalid wallet address")
	ErrNotConnected    = errors.New("Wallet not connected")
)
