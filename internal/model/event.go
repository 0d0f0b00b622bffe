package model

import "time"

// EventType names a committed state change.
type EventType string

const (
	EventStableDeposited      EventType = "STABLE_DEPOSITED"
	EventStableWithdrawn      EventType = "STABLE_WITHDRAWN"
	EventRewardDeposited      EventType = "REWARD_DEPOSITED"
	EventRewardWithdrawn      EventType = "REWARD_WITHDRAWN"
	EventRewardsFunded        EventType = "REWARDS_FUNDED"
	EventAirdropDistributed   EventType = "AIRDROP_DISTRIBUTED"
	EventAgreementSent        EventType = "AGREEMENT_SENT"
	EventAgreementAccepted    EventType = "AGREEMENT_ACCEPTED"
	EventProposalCreated      EventType = "PROPOSAL_CREATED"
	EventVoteCast             EventType = "VOTE_CAST"
	EventProposalAccepted     EventType = "PROPOSAL_ACCEPTED"
	EventProposalExpired      EventType = "PROPOSAL_EXPIRED"
	EventMembershipGranted    EventType = "MEMBERSHIP_GRANTED"
	EventMembershipForfeited  EventType = "MEMBERSHIP_FORFEITED"
	EventOwnerWithdraw        EventType = "OWNER_WITHDRAW"
	EventOwnerRefund          EventType = "OWNER_REFUND"
	EventOwnershipTransferred EventType = "OWNERSHIP_TRANSFERRED"
	EventRegulationUpdated    EventType = "REGULATION_UPDATED"
)

// Event is one entry of the audit trail. Fields not relevant to a type are zero.
type Event struct {
	Type       EventType `json:"type"`
	User       Address   `json:"user,omitempty"`
	ProposalID uint64    `json:"proposal_id,omitempty"`
	Amount     Amount    `json:"amount"`
	Weight     uint64    `json:"weight,omitempty"`
	Note       string    `json:"note,omitempty"`
	At         time.Time `json:"at"`
}
