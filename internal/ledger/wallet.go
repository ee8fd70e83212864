package ledger

import (
	"context"
	"errors"

	"daoverse-backend/internal/domain"

	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds = errors.New("Insufficient wallet balance")
	ErrZeroAmount        = errors.New("Amount must be positive")
)

// Service manages wallet balances. Deposits are the ops faucet analog of
// funding a signer; marketplaces debit and credit within their own
// transactions via the Tx helpers.
type Service struct {
	DB *gorm.DB
}

func (s *Service) Deposit(ctx context.Context, address string, amount uint64) (*domain.Wallet, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	var wallet domain.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := CreditTx(tx, address, amount); err != nil {
			return err
		}
		if err := AppendTx(tx, "wallet.deposited", address, map[string]interface{}{
			"amount": amount,
		}); err != nil {
			return err
		}
		return tx.Where("address = ?", address).First(&wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) Balance(ctx context.Context, address string) (uint64, error) {
	var wallet domain.Wallet
	err := s.DB.WithContext(ctx).Where("address = ?", address).First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// CreditTx adds to an address's balance, creating the wallet row on first use.
func CreditTx(tx *gorm.DB, address string, amount uint64) error {
	var wallet domain.Wallet
	err := tx.Where("address = ?", address).First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		return tx.Create(&domain.Wallet{Address: address, Balance: amount}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&wallet).Update("balance", wallet.Balance+amount).Error
}

// DebitTx removes from an address's balance; fails without side effects when
// the balance does not cover the amount.
func DebitTx(tx *gorm.DB, address string, amount uint64) error {
	var wallet domain.Wallet
	err := tx.Where("address = ?", address).First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if wallet.Balance < amount {
		return ErrInsufficientFunds
	}
	return tx.Model(&wallet).Update("balance", wallet.Balance-amount).Error
}
