package governance

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/ledger"
	"daoverse-backend/internal/registry"

	"golang.org/x/crypto/sha3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProposalState is the lifecycle state, computed lazily from the block height
// and the stored tallies; nothing runs in the background.
type ProposalState int

const (
	StatePending ProposalState = iota
	StateActive
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExecuted
)

func (s ProposalState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateActive:
		return "Active"
	case StateCanceled:
		return "Canceled"
	case StateDefeated:
		return "Defeated"
	case StateSucceeded:
		return "Succeeded"
	case StateQueued:
		return "Queued"
	case StateExecuted:
		return "Executed"
	}
	return "Unknown"
}

// Service is the governor plus timelock: proposal lifecycle, snapshot-weighted
// voting and delayed execution of admin actions against registered targets.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
	Targets  map[string]AdminTarget

	// TimelockAddress is the caller identity used when executing passed
	// proposals; targets must have transferred ownership to it first.
	TimelockAddress string

	VotingDelay   uint64 // blocks between propose and snapshot
	VotingPeriod  uint64 // blocks the vote stays open past the snapshot
	MinDelay      int64  // seconds between queue and execute
	QuorumPercent uint64

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ProposalID derives the deterministic id: keccak-256 over the canonical
// actions JSON and the keccak-256 of the description.
func ProposalID(actions []AdminAction, description string) (string, error) {
	encoded, err := json.Marshal(actions)
	if err != nil {
		return "", err
	}
	descHash := sha3.NewLegacyKeccak256()
	descHash.Write([]byte(description))

	h := sha3.NewLegacyKeccak256()
	h.Write(encoded)
	h.Write(descHash.Sum(nil))
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// Propose creates a proposal in Pending. It becomes Active once the voting
// delay has elapsed past the current block.
func (s *Service) Propose(ctx context.Context, caller string, actions []AdminAction, description string) (*domain.Proposal, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	for _, action := range actions {
		if err := action.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.Targets[action.Target]; !ok {
			return nil, InvalidActionError{Kind: action.Kind, Target: action.Target}
		}
	}
	id, err := ProposalID(actions, description)
	if err != nil {
		return nil, err
	}

	var proposal domain.Proposal
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Proposal
		if err := tx.Where("proposal_id = ?", id).First(&existing).Error; err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := ledger.AppendTx(tx, "gov.proposed", caller, map[string]interface{}{
			"proposal_id": id,
		}); err != nil {
			return err
		}
		block, err := ledger.HeightTx(tx)
		if err != nil {
			return err
		}

		encoded, err := json.Marshal(actions)
		if err != nil {
			return err
		}
		proposal = domain.Proposal{
			ProposalID:    id,
			Proposer:      caller,
			Description:   description,
			Actions:       datatypes.JSON(encoded),
			SnapshotBlock: block + s.VotingDelay,
			DeadlineBlock: block + s.VotingDelay + s.VotingPeriod,
		}
		return tx.Create(&proposal).Error
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// CastVote records a vote without a reason.
func (s *Service) CastVote(ctx context.Context, caller, proposalID string, support uint8) (*domain.VoteReceipt, error) {
	return s.CastVoteWithReason(ctx, caller, proposalID, support, "")
}

// CastVoteWithReason records a vote while the proposal is Active. The weight
// is the caller's checkpointed voting power at the snapshot block, so
// transfers after activation cannot change it. One vote per address.
func (s *Service) CastVoteWithReason(ctx context.Context, caller, proposalID string, support uint8, reason string) (*domain.VoteReceipt, error) {
	if support > domain.SupportAbstain {
		return nil, ErrBadSupport
	}
	var receipt domain.VoteReceipt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposal, state, err := s.loadWithStateTx(tx, proposalID)
		if err != nil {
			return err
		}
		if state != StateActive {
			return InvalidStateError{ProposalID: proposalID, State: state, Operation: "vote on"}
		}

		var existing domain.VoteReceipt
		if err := tx.Where("proposal_id = ? AND voter = ?", proposalID, caller).First(&existing).Error; err == nil {
			return AlreadyVotedError{ProposalID: proposalID, Voter: caller}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		weight, err := pastVotesTx(tx, caller, proposal.SnapshotBlock)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		switch support {
		case domain.SupportAgainst:
			updates["against_votes"] = proposal.AgainstVotes + weight
		case domain.SupportFor:
			updates["for_votes"] = proposal.ForVotes + weight
		case domain.SupportAbstain:
			updates["abstain_votes"] = proposal.AbstainVotes + weight
		}
		if err := tx.Model(proposal).Updates(updates).Error; err != nil {
			return err
		}

		receipt = domain.VoteReceipt{
			ProposalID: proposalID,
			Voter:      caller,
			Support:    support,
			Weight:     weight,
			Reason:     reason,
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "gov.voted", caller, map[string]interface{}{
			"proposal_id": proposalID,
			"support":     support,
			"weight":      weight,
		})
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Queue schedules a Succeeded proposal for execution after the timelock's
// minimum delay.
func (s *Service) Queue(ctx context.Context, caller, proposalID string) (*domain.Proposal, error) {
	var proposal *domain.Proposal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, state, err := s.loadWithStateTx(tx, proposalID)
		if err != nil {
			return err
		}
		if state != StateSucceeded {
			return InvalidStateError{ProposalID: proposalID, State: state, Operation: "queue"}
		}
		eta := s.now().Unix() + s.MinDelay
		if err := tx.Model(p).Updates(map[string]interface{}{
			"queued": true,
			"eta":    eta,
		}).Error; err != nil {
			return err
		}
		if err := ledger.AppendTx(tx, "gov.queued", caller, map[string]interface{}{
			"proposal_id": proposalID,
			"eta":         eta,
		}); err != nil {
			return err
		}
		proposal = p
		return tx.Where("proposal_id = ?", proposalID).First(proposal).Error
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Execute runs a Queued proposal's actions once the timelock delay has
// elapsed, acting as the timelock address. Targets still owned by someone
// else fail the call, which is the deployment-sequencing safeguard: passing a
// vote grants nothing until ownership has moved to the timelock.
func (s *Service) Execute(ctx context.Context, caller, proposalID string) (*domain.Proposal, error) {
	var proposal *domain.Proposal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, state, err := s.loadWithStateTx(tx, proposalID)
		if err != nil {
			return err
		}
		if state != StateQueued {
			return InvalidStateError{ProposalID: proposalID, State: state, Operation: "execute"}
		}
		if s.now().Unix() < p.ETA {
			return InvalidStateError{ProposalID: proposalID, State: state, Operation: "execute"}
		}

		var actions []AdminAction
		if err := json.Unmarshal(p.Actions, &actions); err != nil {
			return err
		}
		for _, action := range actions {
			target, ok := s.Targets[action.Target]
			if !ok {
				return InvalidActionError{Kind: action.Kind, Target: action.Target}
			}
			if err := target.ExecuteAdminInTx(tx, s.TimelockAddress, action); err != nil {
				return err
			}
		}

		if err := tx.Model(p).Update("executed", true).Error; err != nil {
			return err
		}
		if err := ledger.AppendTx(tx, "gov.executed", caller, map[string]interface{}{
			"proposal_id": proposalID,
		}); err != nil {
			return err
		}
		proposal = p
		return tx.Where("proposal_id = ?", proposalID).First(proposal).Error
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Cancel aborts a proposal before voting resolves. Proposer only.
func (s *Service) Cancel(ctx context.Context, caller, proposalID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, state, err := s.loadWithStateTx(tx, proposalID)
		if err != nil {
			return err
		}
		if p.Proposer != caller {
			return ErrNotProposer
		}
		if state != StatePending && state != StateActive {
			return InvalidStateError{ProposalID: proposalID, State: state, Operation: "cancel"}
		}
		if err := tx.Model(p).Update("canceled", true).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "gov.canceled", caller, map[string]interface{}{
			"proposal_id": proposalID,
		})
	})
}

// State returns the proposal's current lifecycle state.
func (s *Service) State(ctx context.Context, proposalID string) (ProposalState, error) {
	var state ProposalState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, st, err := s.loadWithStateTx(tx, proposalID)
		state = st
		return err
	})
	return state, err
}

// Proposal returns the stored proposal with its computed state.
func (s *Service) Proposal(ctx context.Context, proposalID string) (*domain.Proposal, ProposalState, error) {
	var proposal *domain.Proposal
	var state ProposalState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, st, err := s.loadWithStateTx(tx, proposalID)
		proposal, state = p, st
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return proposal, state, nil
}

// Proposals lists all proposals, newest first.
func (s *Service) Proposals(ctx context.Context) ([]domain.Proposal, error) {
	var proposals []domain.Proposal
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

// QuorumVotes returns the vote count a proposal needs at its snapshot block.
func (s *Service) QuorumVotes(ctx context.Context, proposalID string) (uint64, error) {
	var quorum uint64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, _, err := s.loadWithStateTx(tx, proposalID)
		if err != nil {
			return err
		}
		quorum, err = s.quorumTx(tx, p.SnapshotBlock)
		return err
	})
	return quorum, err
}

func (s *Service) loadWithStateTx(tx *gorm.DB, proposalID string) (*domain.Proposal, ProposalState, error) {
	var proposal domain.Proposal
	if err := tx.Where("proposal_id = ?", proposalID).First(&proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ProposalNotFoundError{ProposalID: proposalID}
		}
		return nil, 0, err
	}
	block, err := ledger.HeightTx(tx)
	if err != nil {
		return nil, 0, err
	}
	state, err := s.stateTx(tx, &proposal, block)
	if err != nil {
		return nil, 0, err
	}
	return &proposal, state, nil
}

func (s *Service) stateTx(tx *gorm.DB, p *domain.Proposal, block uint64) (ProposalState, error) {
	switch {
	case p.Canceled:
		return StateCanceled, nil
	case p.Executed:
		return StateExecuted, nil
	case p.Queued:
		return StateQueued, nil
	case block <= p.SnapshotBlock:
		return StatePending, nil
	case block <= p.DeadlineBlock:
		return StateActive, nil
	}
	quorum, err := s.quorumTx(tx, p.SnapshotBlock)
	if err != nil {
		return 0, err
	}
	if p.ForVotes >= quorum && p.ForVotes > p.AgainstVotes {
		return StateSucceeded, nil
	}
	return StateDefeated, nil
}

func (s *Service) quorumTx(tx *gorm.DB, snapshot uint64) (uint64, error) {
	supply, err := pastVotesTx(tx, domain.SupplyCheckpointAddress, snapshot)
	if err != nil {
		return 0, err
	}
	return supply * s.QuorumPercent / 100, nil
}

func pastVotesTx(tx *gorm.DB, address string, block uint64) (uint64, error) {
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
