package renting

import (
	"context"
	"errors"
	"math"
	"time"

	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/ledger"
	"daoverse-backend/internal/registry"

	"gorm.io/gorm"
)

// Service is the rental marketplace: time-bounded rental listings, rent
// collection with the platform fee split, and the pull-payment ledgers.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service

	// PeriodDuration is the length in seconds of one rented period.
	PeriodDuration int64

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListItem creates or overwrites the rental listing for a room. The caller
// must own the room, the room must not be listed for sale, and it must not
// carry an active rental right.
func (s *Service) ListItem(ctx context.Context, caller string, roomID, pricePerPeriod, maxPeriods uint64) (*domain.RentalListing, error) {
	// The price bound keeps pricePerPeriod*periods representable for every
	// allowed period count, so the rent total can never wrap around.
	if pricePerPeriod == 0 || maxPeriods == 0 || pricePerPeriod > math.MaxUint64/maxPeriods {
		return nil, ErrInvalidListing
	}
	var listing domain.RentalListing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return registry.RoomNotFoundError{RoomID: roomID}
			}
			return err
		}
		if room.Owner != caller {
			return NotOwnerError{RoomID: roomID, Caller: caller}
		}

		var sale domain.SaleListing
		if err := tx.Where("room_id = ?", roomID).First(&sale).Error; err == nil {
			return IsForSaleError{RoomID: roomID}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user, err := s.Registry.UserOfTx(tx, roomID)
		if err != nil {
			return err
		}
		if user != domain.ZeroAddress {
			return IsRentedError{RoomID: roomID, User: user}
		}

		listing = domain.RentalListing{
			RoomID:         roomID,
			Owner:          caller,
			PricePerPeriod: pricePerPeriod,
			MaxPeriods:     maxPeriods,
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.RentalListing{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "rent.listed", caller, map[string]interface{}{
			"room_id":          roomID,
			"price_per_period": pricePerPeriod,
			"max_periods":      maxPeriods,
		})
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// CancelListing removes the caller's rental listing.
func (s *Service) CancelListing(ctx context.Context, caller string, roomID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.RentalListing
		if err := tx.Where("room_id = ?", roomID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotListedError{RoomID: roomID}
			}
			return err
		}
		if listing.Owner != caller {
			return NotOwnerError{RoomID: roomID, Caller: caller}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.RentalListing{}).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "rent.unlisted", caller, map[string]interface{}{
			"room_id": roomID,
		})
	})
}

// RentNFT rents a listed room for the given number of periods. Payment must
// match pricePerPeriod*periods exactly; it is debited from the renter's
// wallet, split into platform fee and owner proceeds, and the rental right is
// assigned until now + periods*PeriodDuration.
func (s *Service) RentNFT(ctx context.Context, caller string, roomID, periods, payment uint64) (*domain.Room, error) {
	var room domain.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.RentalListing
		if err := tx.Where("room_id = ?", roomID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotListedError{RoomID: roomID}
			}
			return err
		}

		user, err := s.Registry.UserOfTx(tx, roomID)
		if err != nil {
			return err
		}
		if user != domain.ZeroAddress {
			return NotListedError{RoomID: roomID}
		}

		if periods == 0 || periods > listing.MaxPeriods {
			return InvalidPeriodsError{RoomID: roomID, Periods: periods, MaxPeriods: listing.MaxPeriods}
		}
		total := listing.PricePerPeriod * periods
		if payment != total {
			return PriceNotMetError{RoomID: roomID, Expected: total}
		}

		if err := ledger.DebitTx(tx, caller, total); err != nil {
			return err
		}

		var state domain.MarketState
		if err := tx.Where("market = ?", domain.MarketRenting).First(&state).Error; err != nil {
			return err
		}
		fee := total * state.FeePercentage / 100
		net := total - fee
		if err := tx.Model(&state).Update("fee_balance", state.FeeBalance+fee).Error; err != nil {
			return err
		}
		if err := ledger.CreditProceedsTx(tx, domain.MarketRenting, listing.Owner, net); err != nil {
			return err
		}

		expires := s.now().Unix() + int64(periods)*s.PeriodDuration
		if err := s.Registry.SetUserInTx(tx, domain.RentingMarketAddress, roomID, caller, expires); err != nil {
			return err
		}

		if err := ledger.AppendTx(tx, "rent.rented", caller, map[string]interface{}{
			"room_id": roomID,
			"periods": periods,
			"payment": payment,
			"fee":     fee,
			"net":     net,
			"expires": expires,
		}); err != nil {
			return err
		}
		return tx.Where("room_id = ?", roomID).First(&room).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// WithdrawProceeds pays out the caller's accumulated rental proceeds.
func (s *Service) WithdrawProceeds(ctx context.Context, caller string) (uint64, error) {
	wallets := &ledger.Service{DB: s.DB}
	return wallets.WithdrawProceeds(ctx, domain.MarketRenting, caller)
}

// WithdrawFees pays out the platform fee balance to the marketplace owner.
func (s *Service) WithdrawFees(ctx context.Context, caller string) (uint64, error) {
	var amount uint64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state domain.MarketState
		if err := tx.Where("market = ?", domain.MarketRenting).First(&state).Error; err != nil {
			return err
		}
		if state.Owner != caller {
			return ErrUnauthorized
		}
		amount = state.FeeBalance
		if amount == 0 {
			return nil
		}
		if err := tx.Model(&state).Update("fee_balance", 0).Error; err != nil {
			return err
		}
		if err := ledger.CreditTx(tx, caller, amount); err != nil {
			return err
		}
		return ledger.AppendTx(tx, "rent.fees_withdrawn", caller, map[string]interface{}{
			"amount": amount,
		})
	})
	return amount, err
}

// SetFeePercentage updates the platform fee. Only the marketplace owner
// (ultimately the timelock, once governance setup transfers ownership) may
// call it.
func (s *Service) SetFeePercentage(ctx context.Context, caller string, fee uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.SetFeePercentageInTx(tx, caller, fee)
	})
}

// SetFeePercentageInTx is SetFeePercentage inside an open transaction, for
// timelock execution of governance proposals.
func (s *Service) SetFeePercentageInTx(tx *gorm.DB, caller string, fee uint64) error {
	if fee > 100 {
		return ErrInvalidFee
	}
	var state domain.MarketState
	if err := tx.Where("market = ?", domain.MarketRenting).First(&state).Error; err != nil {
		return err
	}
	if state.Owner != caller {
		return ErrUnauthorized
	}
	if err := tx.Model(&state).Update("fee_percentage", fee).Error; err != nil {
		return err
	}
	return ledger.AppendTx(tx, "rent.fee_changed", caller, map[string]interface{}{
		"fee_percentage": fee,
	})
}

// TransferOwnership hands the marketplace's administrative ownership over
// (governance setup moves it to the timelock).
func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TransferOwnershipInTx(tx, caller, newOwner)
	})
}

// TransferOwnershipInTx is TransferOwnership inside an open transaction.
func (s *Service) TransferOwnershipInTx(tx *gorm.DB, caller, newOwner string) error {
	if newOwner == "" || newOwner == domain.ZeroAddress {
		return ErrZeroAddress
	}
	var state domain.MarketState
	if err := tx.Where("market = ?", domain.MarketRenting).First(&state).Error; err != nil {
		return err
	}
	if state.Owner != caller {
		return ErrUnauthorized
	}
	if err := tx.Model(&state).Update("owner", newOwner).Error; err != nil {
		return err
	}
	return ledger.AppendTx(tx, "rent.ownership_transferred", caller, map[string]interface{}{
		"new_owner": newOwner,
	})
}

// GetListing returns the rental listing, or a zero-value listing when the
// room is not listed.
func (s *Service) GetListing(ctx context.Context, roomID uint64) (domain.RentalListing, error) {
	var listing domain.RentalListing
	err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RentalListing{RoomID: roomID}, nil
	}
	if err != nil {
		return domain.RentalListing{}, err
	}
	return listing, nil
}

// GetFeePercentage returns the current platform fee.
func (s *Service) GetFeePercentage(ctx context.Context) (uint64, error) {
	var state domain.MarketState
	if err := s.DB.WithContext(ctx).Where("market = ?", domain.MarketRenting).First(&state).Error; err != nil {
		return 0, err
	}
	return state.FeePercentage, nil
}

// Owner returns the marketplace's administrative owner.
func (s *Service) Owner(ctx context.Context) (string, error) {
	var state domain.MarketState
	if err := s.DB.WithContext(ctx).Where("market = ?", domain.MarketRenting).First(&state).Error; err != nil {
		return "", err
	}
	return state.Owner, nil
}
