package registry

import (
	"context"
	"errors"

	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/ledger"

	"gorm.io/gorm"
)

// Voting weight follows ERC721Votes: one room is one vote, weight counts for
// an address only after it has been delegated to (self-delegation included),
// and every change writes a checkpoint so past weights stay answerable.

// Delegate assigns the caller's voting weight to a delegate.
func (s *Service) Delegate(ctx context.Context, caller, to string) error {
	if to == "" || to == domain.ZeroAddress {
		return ErrZeroAddress
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var weight int64
		if err := tx.Model(&domain.Room{}).Where("owner = ?", caller).Count(&weight).Error; err != nil {
			return err
		}

		previous := delegateOfTx(tx, caller)
		var delegation domain.Delegation
		err := tx.Where("address = ?", caller).First(&delegation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(&domain.Delegation{Address: caller, Delegate: to}).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else if err := tx.Model(&delegation).Update("delegate", to).Error; err != nil {
			return err
		}

		if err := ledger.AppendTx(tx, "votes.delegated", caller, map[string]interface{}{
			"delegate": to,
		}); err != nil {
			return err
		}
		block, err := ledger.HeightTx(tx)
		if err != nil {
			return err
		}
		return moveVotesTx(tx, block, previous, to, uint64(weight))
	})
}

// GetVotes returns an address's current voting weight.
func (s *Service) GetVotes(ctx context.Context, address string) (uint64, error) {
	return latestVotes(s.DB.WithContext(ctx), address)
}

// GetPastVotes returns an address's weight as of the given block: the latest
// checkpoint at or before it. Transfers after that block cannot change the
// answer, which is what proposal snapshots rely on.
func (s *Service) GetPastVotes(ctx context.Context, address string, block uint64) (uint64, error) {
	return pastVotes(s.DB.WithContext(ctx), address, block)
}

// PastTotalSupply returns the number of minted rooms as of the given block.
func (s *Service) PastTotalSupply(ctx context.Context, block uint64) (uint64, error) {
	return pastVotes(s.DB.WithContext(ctx), domain.SupplyCheckpointAddress, block)
}

// DelegateOf returns the caller's chosen delegate, or "" when undelegated.
func (s *Service) DelegateOf(ctx context.Context, address string) string {
	return delegateOfTx(s.DB.WithContext(ctx), address)
}

func delegateOfTx(tx *gorm.DB, address string) string {
	var delegation domain.Delegation
	if err := tx.Where("address = ?", address).First(&delegation).Error; err != nil {
		return ""
	}
	return delegation.Delegate
}

func latestVotes(tx *gorm.DB, address string) (uint64, error) {
	var cp domain.VoteCheckpoint
	err := tx.Where("address = ?", address).Order("block DESC, id DESC").First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cp.Votes, nil
}

func pastVotes(tx *gorm.DB, address string, block uint64) (uint64, error) {
	var cp domain.VoteCheckpoint
	err := tx.Where("address = ? AND block <= ?", address, block).Order("block DESC, id DESC").First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cp.Votes, nil
}

// moveVotesTx shifts weight between delegates at the given block. Either side
// may be "" (no delegation), in which case that side is skipped.
func moveVotesTx(tx *gorm.DB, block uint64, from, to string, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	if from != "" {
		current, err := latestVotes(tx, from)
		if err != nil {
			return err
		}
		next := uint64(0)
		if current > amount {
			next = current - amount
		}
		if err := writeCheckpointTx(tx, from, block, next); err != nil {
			return err
		}
	}
	if to != "" {
		current, err := latestVotes(tx, to)
		if err != nil {
			return err
		}
		if err := writeCheckpointTx(tx, to, block, current+amount); err != nil {
			return err
		}
	}
	return nil
}

func adjustSupplyTx(tx *gorm.DB, block uint64, delta uint64) error {
	current, err := latestVotes(tx, domain.SupplyCheckpointAddress)
	if err != nil {
		return err
	}
	return writeCheckpointTx(tx, domain.SupplyCheckpointAddress, block, current+delta)
}

func writeCheckpointTx(tx *gorm.DB, address string, block uint64, votes uint64) error {
	var cp domain.VoteCheckpoint
	err := tx.Where("address = ? AND block = ?", address, block).Order("id DESC").First(&cp).Error
	if err == nil {
		return tx.Model(&cp).Update("votes", votes).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&domain.VoteCheckpoint{Address: address, Block: block, Votes: votes}).Error
}
