package governance

import (
	"encoding/json"
	"errors"

	"daoverse-backend/internal/middleware"
	"daoverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/governance/propose
func (h *Handlers) Propose(c *fiber.Ctx) error {
	var body struct {
		Actions     []AdminAction `json:"actions"`
		Description string        `json:"description"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	proposal, err := h.Service.Propose(c.Context(), caller, body.Actions, body.Description)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Proposal created", proposal, nil)
}

// POST /api/v1/governance/vote
func (h *Handlers) Vote(c *fiber.Ctx) error {
	var body struct {
		ProposalID string `json:"proposal_id"`
		Support    uint8  `json:"support"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	receipt, err := h.Service.CastVoteWithReason(c.Context(), caller, body.ProposalID, body.Support, body.Reason)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Vote cast", receipt, nil)
}

// POST /api/v1/governance/queue
func (h *Handlers) Queue(c *fiber.Ctx) error {
	var body struct {
		ProposalID string `json:"proposal_id"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	proposal, err := h.Service.Queue(c.Context(), caller, body.ProposalID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proposal queued", proposal, nil)
}

// POST /api/v1/governance/execute
func (h *Handlers) Execute(c *fiber.Ctx) error {
	var body struct {
		ProposalID string `json:"proposal_id"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	proposal, err := h.Service.Execute(c.Context(), caller, body.ProposalID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proposal executed", proposal, nil)
}

// POST /api/v1/governance/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	var body struct {
		ProposalID string `json:"proposal_id"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	caller := middleware.CallerAddress(c)
	if err := h.Service.Cancel(c.Context(), caller, body.ProposalID); err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proposal cancelled", fiber.Map{"proposal_id": body.ProposalID}, nil)
}

// GET /api/v1/governance/proposals
func (h *Handlers) ListProposals(c *fiber.Ctx) error {
	proposals, err := h.Service.Proposals(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proposals fetched", proposals, nil)
}

// GET /api/v1/governance/proposals/:proposal_id
func (h *Handlers) GetProposal(c *fiber.Ctx) error {
	proposalID := c.Params("proposal_id")
	proposal, state, err := h.Service.Proposal(c.Context(), proposalID)
	if err != nil {
		return mapError(c, err)
	}
	quorum, err := h.Service.QuorumVotes(c.Context(), proposalID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Proposal fetched", fiber.Map{
		"proposal":     proposal,
		"state":        state.String(),
		"quorum_votes": quorum,
	}, nil)
}

func mapError(c *fiber.Ctx, err error) error {
	var notFound ProposalNotFoundError
	if errors.As(err, &notFound) {
		return response.Error(c, err.Error(), 404, fiber.Map{"proposal_id": notFound.ProposalID})
	}
	var voted AlreadyVotedError
	if errors.As(err, &voted) {
		return response.Error(c, err.Error(), 409, fiber.Map{"proposal_id": voted.ProposalID})
	}
	var badState InvalidStateError
	if errors.As(err, &badState) {
		return response.Error(c, err.Error(), 409, fiber.Map{
			"proposal_id": badState.ProposalID,
			"state":       badState.State.String(),
		})
	}
	var badAction InvalidActionError
	if errors.As(err, &badAction) {
		return response.Error(c, err.Error(), 400, nil)
	}
	switch {
	case errors.Is(err, ErrNoActions), errors.Is(err, ErrBadSupport):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, ErrAlreadyExists):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, ErrNotProposer):
		return response.Error(c, err.Error(), 403, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}
