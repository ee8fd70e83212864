package domain

import (
	"time"
)

// ZeroAddress is the "no address" value used for cleared owners and expired
// rental users, matching the on-chain zero-address convention.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Room is the canonical room token record. Ownership and the expiring rental
// right both live here; the registry is the only writer.
type Room struct {
	RoomID      uint64    `gorm:"column:room_id;primaryKey;autoIncrement:false" json:"room_id"`
	Owner       string    `gorm:"column:owner;not null;index" json:"owner"`
	AreaSize    uint64    `gorm:"column:area_size;not null" json:"area_size"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	URI         string    `gorm:"column:uri;not null" json:"uri"`
	User        string    `gorm:"column:user;not null;default:''" json:"user"`
	UserExpires int64     `gorm:"column:user_expires;not null;default:0" json:"user_expires"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Room) TableName() string {
	return "Rooms"
}

// RegistryState is the registry's Ownable singleton: the designated minter
// (deployer, then the timelock after governance setup) and the next room id.
type RegistryState struct {
	ID         uint8     `gorm:"column:id;primaryKey" json:"id"`
	Owner      string    `gorm:"column:owner;not null" json:"owner"`
	NextRoomID uint64    `gorm:"column:next_room_id;not null;default:0" json:"next_room_id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (RegistryState) TableName() string {
	return "RegistryStates"
}

// Operator is an address authorized to act on rooms on behalf of their owners
// (the marketplaces' approval-for-all analog). Registered once at wiring time.
type Operator struct {
	Address   string    `gorm:"column:address;primaryKey" json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Operator) TableName() string {
	return "Operators"
}
