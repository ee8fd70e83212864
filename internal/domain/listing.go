package domain

import (
	"time"
)

// Market keys for MarketStates and ProceedsEntries.
const (
	MarketRenting = "renting"
	MarketSale    = "sale"
)

// Synthetic addresses the marketplaces act under when calling the registry as
// approved operators.
const (
	RentingMarketAddress = "0x000000000000000000000000000000000072656e"
	SaleMarketAddress    = "0x000000000000000000000000000000000073616c"
)

// RentalListing offers a room for time-bounded rental. At most one listing
// (rental or sale) may exist per room.
type RentalListing struct {
	RoomID         uint64    `gorm:"column:room_id;primaryKey;autoIncrement:false" json:"room_id"`
	Owner          string    `gorm:"column:owner;not null;index" json:"owner"`
	PricePerPeriod uint64    `gorm:"column:price_per_period;not null" json:"price_per_period"`
	MaxPeriods     uint64    `gorm:"column:max_periods;not null" json:"max_periods"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (RentalListing) TableName() string {
	return "RentalListings"
}

// SaleListing offers a room for outright sale. Deleted on purchase or cancel.
type SaleListing struct {
	RoomID    uint64    `gorm:"column:room_id;primaryKey;autoIncrement:false" json:"room_id"`
	Price     uint64    `gorm:"column:price;not null" json:"price"`
	Seller    string    `gorm:"column:seller;not null;index" json:"seller"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (SaleListing) TableName() string {
	return "SaleListings"
}

// MarketState holds the administrative state of one marketplace: its Ownable
// owner, the platform fee percentage and the accumulated (unwithdrawn) fees.
type MarketState struct {
	Market        string    `gorm:"column:market;primaryKey" json:"market"`
	Owner         string    `gorm:"column:owner;not null" json:"owner"`
	FeePercentage uint64    `gorm:"column:fee_percentage;not null" json:"fee_percentage"`
	FeeBalance    uint64    `gorm:"column:fee_balance;not null;default:0" json:"fee_balance"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (MarketState) TableName() string {
	return "MarketStates"
}

// ProceedsEntry is one address's withdrawable balance in one marketplace's
// pull-payment ledger.
type ProceedsEntry struct {
	Market    string    `gorm:"column:market;primaryKey" json:"market"`
	Address   string    `gorm:"column:address;primaryKey" json:"address"`
	Amount    uint64    `gorm:"column:amount;not null;default:0" json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ProceedsEntry) TableName() string {
	return "ProceedsEntries"
}
