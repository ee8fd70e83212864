package ledger

import (
	"context"
	"encoding/json"

	"daoverse-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Log is the append-only transaction log. Every mutating operation appends
// exactly one event inside its own DB transaction, so the sequence number
// totally orders all state transitions and doubles as the block height.
type Log struct {
	DB *gorm.DB
}

// AppendTx appends an event within an already-open transaction. Payload is
// marshaled to JSON; a nil payload stores an empty object.
func AppendTx(tx *gorm.DB, kind, actor string, payload map[string]interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := domain.ChainEvent{
		Kind:    kind,
		Actor:   actor,
		Payload: datatypes.JSON(b),
	}
	return tx.Create(&event).Error
}

// Height returns the current block height (sequence of the latest event;
// zero for an empty log).
func (l *Log) Height(ctx context.Context) (uint64, error) {
	return HeightTx(l.DB.WithContext(ctx))
}

// HeightTx is Height against an open transaction, for services that need the
// height and the append to observe the same log.
func HeightTx(tx *gorm.DB) (uint64, error) {
	var event domain.ChainEvent
	err := tx.Order("seq DESC").First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return event.Seq, nil
}

// Advance appends n block.tick events, moving the block height without any
// state change.
func (l *Log) Advance(ctx context.Context, n uint64) (uint64, error) {
	var height uint64
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := uint64(0); i < n; i++ {
			if err := AppendTx(tx, "block.tick", domain.ZeroAddress, nil); err != nil {
				return err
			}
		}
		var err error
		height, err = HeightTx(tx)
		return err
	})
	return height, err
}

// Events returns the most recent events, newest first, capped at limit.
func (l *Log) Events(ctx context.Context, limit int) ([]domain.ChainEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []domain.ChainEvent
	if err := l.DB.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
