package governance

import (
	"fmt"

	"daoverse-backend/internal/marketplace"
	"daoverse-backend/internal/registry"
	"daoverse-backend/internal/renting"

	"gorm.io/gorm"
)

// Proposals carry tagged admin actions instead of encoded calldata. Each
// action names a target registered with the governor; execution dispatches
// through the AdminTarget interface with the timelock as caller, so targets
// that have not transferred ownership to the timelock reject the call.

// Action kinds.
const (
	ActionSetFeePercentage  = "set_fee_percentage"
	ActionTransferOwnership = "transfer_ownership"
	ActionMintRoom          = "mint_room"
)

// Target names.
const (
	TargetRenting  = "renting"
	TargetSale     = "sale"
	TargetRegistry = "registry"
)

// AdminAction is one administrative call in a proposal.
type AdminAction struct {
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Value    uint64 `json:"value,omitempty"`
	Address  string `json:"address,omitempty"`
	URI      string `json:"uri,omitempty"`
	AreaSize uint64 `json:"area_size,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Validate rejects malformed actions at propose time, before they can reach
// the timelock.
func (a AdminAction) Validate() error {
	switch a.Kind {
	case ActionSetFeePercentage:
		if a.Target != TargetRenting && a.Target != TargetSale {
			return InvalidActionError{Kind: a.Kind, Target: a.Target}
		}
		if a.Value > 100 {
			return InvalidActionError{Kind: a.Kind, Target: a.Target}
		}
	case ActionTransferOwnership:
		if a.Target != TargetRenting && a.Target != TargetSale && a.Target != TargetRegistry {
			return InvalidActionError{Kind: a.Kind, Target: a.Target}
		}
		if a.Address == "" {
			return InvalidActionError{Kind: a.Kind, Target: a.Target}
		}
	case ActionMintRoom:
		if a.Target != TargetRegistry {
			return InvalidActionError{Kind: a.Kind, Target: a.Target}
		}
		if a.AreaSize == 0 {
			return InvalidActionError{Kind: a.Kind, Target: a.Target}
		}
	default:
		return InvalidActionError{Kind: a.Kind, Target: a.Target}
	}
	return nil
}

// AdminTarget executes admin actions inside the governor's transaction.
type AdminTarget interface {
	ExecuteAdminInTx(tx *gorm.DB, caller string, action AdminAction) error
}

// RentingTarget adapts the rental marketplace.
type RentingTarget struct {
	Service *renting.Service
}

func (t RentingTarget) ExecuteAdminInTx(tx *gorm.DB, caller string, action AdminAction) error {
	switch action.Kind {
	case ActionSetFeePercentage:
		return t.Service.SetFeePercentageInTx(tx, caller, action.Value)
	case ActionTransferOwnership:
		return t.Service.TransferOwnershipInTx(tx, caller, action.Address)
	}
	return InvalidActionError{Kind: action.Kind, Target: action.Target}
}

// SaleTarget adapts the sale marketplace.
type SaleTarget struct {
	Service *marketplace.Service
}

func (t SaleTarget) ExecuteAdminInTx(tx *gorm.DB, caller string, action AdminAction) error {
	switch action.Kind {
	case ActionSetFeePercentage:
		return t.Service.SetFeePercentageInTx(tx, caller, action.Value)
	case ActionTransferOwnership:
		return t.Service.TransferOwnershipInTx(tx, caller, action.Address)
	}
	return InvalidActionError{Kind: action.Kind, Target: action.Target}
}

// RegistryTarget adapts the room registry.
type RegistryTarget struct {
	Service *registry.Service
}

func (t RegistryTarget) ExecuteAdminInTx(tx *gorm.DB, caller string, action AdminAction) error {
	switch action.Kind {
	case ActionMintRoom:
		_, err := t.Service.MintInTx(tx, caller, action.URI, action.AreaSize, action.Name)
		return err
	case ActionTransferOwnership:
		return t.Service.TransferRegistryOwnershipInTx(tx, caller, action.Address)
	}
	return InvalidActionError{Kind: action.Kind, Target: action.Target}
}

// InvalidActionError reports an action the governor cannot dispatch.
type InvalidActionError struct {
	Kind   string
	Target string
}

func (e InvalidActionError) Error() string {
	return fmt.Sprintf("Invalid admin action %q for target %q", e.Kind, e.Target)
}
