package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ChainEvent is one entry in the append-only transaction log. Seq doubles as
// the block height: every mutating operation appends exactly one event inside
// its own DB transaction, so the log totally orders all state transitions.
type ChainEvent struct {
	Seq       uint64         `gorm:"column:seq;primaryKey;autoIncrement" json:"seq"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	Actor     string         `gorm:"column:actor;not null" json:"actor"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (ChainEvent) TableName() string {
	return "ChainEvents"
}

// Wallet is an address's spendable balance. Marketplace operations debit the
// payer here and credit the pull-payment proceeds ledgers; withdrawals move
// proceeds back into the caller's wallet.
type Wallet struct {
	Address   string    `gorm:"column:address;primaryKey" json:"address"`
	Balance   uint64    `gorm:"column:balance;not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Wallet) TableName() string {
	return "Wallets"
}
