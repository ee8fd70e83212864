package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Vote support values, matching GovernorCountingSimple.
const (
	SupportAgainst uint8 = 0
	SupportFor     uint8 = 1
	SupportAbstain uint8 = 2
)

// Proposal is a governance proposal. Lifecycle state is not stored; it is
// computed from the block height, the tallies and the timelock fields.
type Proposal struct {
	ProposalID    string         `gorm:"column:proposal_id;primaryKey" json:"proposal_id"`
	Proposer      string         `gorm:"column:proposer;not null" json:"proposer"`
	Description   string         `gorm:"column:description;not null" json:"description"`
	Actions       datatypes.JSON `gorm:"column:actions;not null" json:"actions"`
	SnapshotBlock uint64         `gorm:"column:snapshot_block;not null" json:"snapshot_block"`
	DeadlineBlock uint64         `gorm:"column:deadline_block;not null" json:"deadline_block"`
	ForVotes      uint64         `gorm:"column:for_votes;not null;default:0" json:"for_votes"`
	AgainstVotes  uint64         `gorm:"column:against_votes;not null;default:0" json:"against_votes"`
	AbstainVotes  uint64         `gorm:"column:abstain_votes;not null;default:0" json:"abstain_votes"`
	Queued        bool           `gorm:"column:queued;not null;default:false" json:"queued"`
	ETA           int64          `gorm:"column:eta;not null;default:0" json:"eta"`
	Executed      bool           `gorm:"column:executed;not null;default:false" json:"executed"`
	Canceled      bool           `gorm:"column:canceled;not null;default:false" json:"canceled"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Proposal) TableName() string {
	return "Proposals"
}

// VoteReceipt records one address's vote on one proposal (no double voting).
type VoteReceipt struct {
	ProposalID string    `gorm:"column:proposal_id;primaryKey" json:"proposal_id"`
	Voter      string    `gorm:"column:voter;primaryKey" json:"voter"`
	Support    uint8     `gorm:"column:support;not null" json:"support"`
	Weight     uint64    `gorm:"column:weight;not null" json:"weight"`
	Reason     string    `gorm:"column:reason" json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (VoteReceipt) TableName() string {
	return "VoteReceipts"
}

// Delegation maps a room holder to the address its voting weight counts for.
// Undelegated holders carry no weight, same as ERC721Votes.
type Delegation struct {
	Address   string    `gorm:"column:address;primaryKey" json:"address"`
	Delegate  string    `gorm:"column:delegate;not null" json:"delegate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Delegation) TableName() string {
	return "Delegations"
}

// VoteCheckpoint is one point in an address's voting-weight history. Past
// weights are answered by the latest checkpoint at or before the asked block,
// which is what makes proposal snapshots immune to later transfers.
type VoteCheckpoint struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Address   string    `gorm:"column:address;not null;index:idx_checkpoint_addr_block" json:"address"`
	Block     uint64    `gorm:"column:block;not null;index:idx_checkpoint_addr_block" json:"block"`
	Votes     uint64    `gorm:"column:votes;not null" json:"votes"`
	CreatedAt time.Time `json:"createdAt"`
}

func (VoteCheckpoint) TableName() string {
	return "VoteCheckpoints"
}

// SupplyCheckpointAddress keys the total-supply series in VoteCheckpoints.
const SupplyCheckpointAddress = "__supply__"
