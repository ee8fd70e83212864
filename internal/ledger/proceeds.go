package ledger

import (
	"context"
	"errors"

	"daoverse-backend/internal/domain"

	"gorm.io/gorm"
)

// Proceeds ledger: pull-payment balances credited by marketplace revenue and
// debited only by explicit withdrawal. Each marketplace keys its own entries.

// CreditProceedsTx adds to an address's withdrawable balance for one market.
func CreditProceedsTx(tx *gorm.DB, market, address string, amount uint64) error {
	var entry domain.ProceedsEntry
	err := tx.Where("market = ? AND address = ?", market, address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.ProceedsEntry{Market: market, Address: address, Amount: amount}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&entry).Update("amount", entry.Amount+amount).Error
}

// WithdrawProceeds pays out the caller's full balance for one market into the
// caller's wallet, zeroing the ledger entry first so a repeated call transfers
// nothing. Returns the amount moved.
func (s *Service) WithdrawProceeds(ctx context.Context, market, address string) (uint64, error) {
	var amount uint64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry domain.ProceedsEntry
		err := tx.Where("market = ? AND address = ?", market, address).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			amount = 0
			return nil
		}
		if err != nil {
			return err
		}
		amount = entry.Amount
		if amount == 0 {
			return nil
		}
		if err := tx.Model(&entry).Update("amount", 0).Error; err != nil {
			return err
		}
		if err := CreditTx(tx, address, amount); err != nil {
			return err
		}
		return AppendTx(tx, "market.proceeds_withdrawn", address, map[string]interface{}{
			"market": market,
			"amount": amount,
		})
	})
	return amount, err
}

// ProceedsBalance reads an address's withdrawable balance for one market.
func (s *Service) ProceedsBalance(ctx context.Context, market, address string) (uint64, error) {
	var entry domain.ProceedsEntry
	err := s.DB.WithContext(ctx).Where("market = ? AND address = ?", market, address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.Amount, nil
}
