package marketplace

import (
	"context"
	"errors"

	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/ledger"
	"daoverse-backend/internal/registry"

	"gorm.io/gorm"
)

// Service is the sale marketplace: outright sale listings, escrowed purchases
// through the registry operator path, and the pull-payment ledgers.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
}

// ListItem puts a room up for sale. The caller must own the room; rooms
// listed for rent or carrying an active rental right cannot be listed.
func (s *Service) ListItem(ctx context.Context, caller string, roomID, price uint64) (*domain.SaleListing, error) {
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	var listing domain.SaleListing
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

		var rental domain.RentalListing
		if err := tx.Where("room_id = ?", roomID).First(&rental).Error; err == nil {
			return IsForRentError{RoomID: roomID}
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

		listing = domain.SaleListing{
			RoomID: roomID,
			Price:  price,
			Seller: caller,
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.SaleListing{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "sale.listed", caller, map[string]interface{}{
			"room_id": roomID,
			"price":   price,
		})
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateListing changes the asking price of the caller's listing.
func (s *Service) UpdateListing(ctx context.Context, caller string, roomID, newPrice uint64) (*domain.SaleListing, error) {
	if newPrice == 0 {
		return nil, ErrInvalidPrice
	}
	var listing domain.SaleListing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotListedError{RoomID: roomID}
			}
			return err
		}
		if listing.Seller != caller {
			return NotOwnerError{RoomID: roomID, Caller: caller}
		}
		if err := tx.Model(&domain.SaleListing{}).Where("room_id = ?", roomID).
			Update("price", newPrice).Error; err != nil {
			return err
		}
		listing.Price = newPrice
		return ledger.AppendTx(tx, "sale.updated", caller, map[string]interface{}{
			"room_id": roomID,
			"price":   newPrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// CancelListing removes the caller's sale listing.
func (s *Service) CancelListing(ctx context.Context, caller string, roomID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.SaleListing
		if err := tx.Where("room_id = ?", roomID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotListedError{RoomID: roomID}
			}
			return err
		}
		if listing.Seller != caller {
			return NotOwnerError{RoomID: roomID, Caller: caller}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.SaleListing{}).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "sale.unlisted", caller, map[string]interface{}{
			"room_id": roomID,
		})
	})
}

// BuyItem purchases a listed room. Payment must cover the listed price;
// exactly the price is debited from the buyer's wallet, title transfers
// through the registry (clearing any rental right), the listing is deleted,
// and the price is split into seller proceeds and platform fee.
func (s *Service) BuyItem(ctx context.Context, caller string, roomID, payment uint64) (*domain.Room, error) {
	var room *domain.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.SaleListing
		if err := tx.Where("room_id = ?", roomID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotListedError{RoomID: roomID}
			}
			return err
		}
		if payment < listing.Price {
			return PriceNotMetError{RoomID: roomID, Expected: listing.Price}
		}

		if err := ledger.DebitTx(tx, caller, listing.Price); err != nil {
			return err
		}

		var state domain.MarketState
		if err := tx.Where("market = ?", domain.MarketSale).First(&state).Error; err != nil {
			return err
		}
		fee := listing.Price * state.FeePercentage / 100
		net := listing.Price - fee
		if err := tx.Model(&state).Update("fee_balance", state.FeeBalance+fee).Error; err != nil {
			return err
		}
		if err := ledger.CreditProceedsTx(tx, domain.MarketSale, listing.Seller, net); err != nil {
			return err
		}

		// The title transfer also purges the sale listing, so a second buy
		// attempt finds nothing.
		var err error
		room, err = s.Registry.TransferInTx(tx, domain.SaleMarketAddress, roomID, caller)
		if err != nil {
			return err
		}
		return ledger.AppendTx(tx, "sale.sold", caller, map[string]interface{}{
			"room_id": roomID,
			"price":   listing.Price,
			"seller":  listing.Seller,
			"fee":     fee,
			"net":     net,
		})
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// WithdrawProceeds pays out the caller's accumulated sale proceeds.
func (s *Service) WithdrawProceeds(ctx context.Context, caller string) (uint64, error) {
	wallets := &ledger.Service{DB: s.DB}
	return wallets.WithdrawProceeds(ctx, domain.MarketSale, caller)
}

// WithdrawFees pays out the platform fee balance to the marketplace owner.
func (s *Service) WithdrawFees(ctx context.Context, caller string) (uint64, error) {
	var amount uint64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state domain.MarketState
		if err := tx.Where("market = ?", domain.MarketSale).First(&state).Error; err != nil {
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
		return ledger.AppendTx(tx, "sale.fees_withdrawn", caller, map[string]interface{}{
			"amount": amount,
		})
	})
	return amount, err
}

// SetFeePercentage updates the platform fee, gated on the marketplace owner.
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
	if err := tx.Where("market = ?", domain.MarketSale).First(&state).Error; err != nil {
		return err
	}
	if state.Owner != caller {
		return ErrUnauthorized
	}
	if err := tx.Model(&state).Update("fee_percentage", fee).Error; err != nil {
		return err
	}
	return ledger.AppendTx(tx, "sale.fee_changed", caller, map[string]interface{}{
		"fee_percentage": fee,
	})
}

// TransferOwnership hands the marketplace's administrative ownership over.
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
	if err := tx.Where("market = ?", domain.MarketSale).First(&state).Error; err != nil {
		return err
	}
	if state.Owner != caller {
		return ErrUnauthorized
	}
	if err := tx.Model(&state).Update("owner", newOwner).Error; err != nil {
		return err
	}
	return ledger.AppendTx(tx, "sale.ownership_transferred", caller, map[string]interface{}{
		"new_owner": newOwner,
	})
}

// GetListing returns the sale listing, or a zero-value listing when the room
// is not listed.
func (s *Service) GetListing(ctx context.Context, roomID uint64) (domain.SaleListing, error) {
	var listing domain.SaleListing
	err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.SaleListing{RoomID: roomID}, nil
	}
	if err != nil {
		return domain.SaleListing{}, err
	}
	return listing, nil
}

// GetFeePercentage returns the current platform fee.
func (s *Service) GetFeePercentage(ctx context.Context) (uint64, error) {
	var state domain.MarketState
	if err := s.DB.WithContext(ctx).Where("market = ?", domain.MarketSale).First(&state).Error; err != nil {
		return 0, err
	}
	return state.FeePercentage, nil
}

// Owner returns the marketplace's administrative owner.
func (s *Service) Owner(ctx context.Context) (string, error) {
	var state domain.MarketState
	if err := s.DB.WithContext(ctx).Where("market = ?", domain.MarketSale).First(&state).Error; err != nil {
		return "", err
	}
	return state.Owner, nil
}
