package governance

import (
	"errors"
	"fmt"
)

var (
	ErrNoActions     = errors.New("A proposal needs at least one action")
	ErrAlreadyExists = errors.New("An identical proposal already exists")
	ErrNotProposer   = errors.New("Only the proposer may cancel")
	ErrBadSupport    = errors.New("Support must be 0 (against), 1 (for) or 2 (abstain)")
)

// ProposalNotFoundError reports an unknown proposal id.
type ProposalNotFoundError struct {
	ProposalID string
}

func (e ProposalNotFoundError) Error() string {
	return fmt.Sprintf("Proposal %s not found", e.ProposalID)
}

// AlreadyVotedError reports a second vote by the same address.
type AlreadyVotedError struct {
	ProposalID string
	Voter      string
}

func (e AlreadyVotedError) Error() string {
	return fmt.Sprintf("%s has already voted on proposal %s", e.Voter, e.ProposalID)
}

// InvalidStateError reports an operation attempted outside the required
// lifecycle state (vote outside Active, queue outside Succeeded, execute
// outside Queued or before the timelock delay elapsed).
type InvalidStateError struct {
	ProposalID string
	State      ProposalState
	Operation  string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("Cannot %s proposal %s in state %s", e.Operation, e.ProposalID, e.State)
}
