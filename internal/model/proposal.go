package model

import "time"

// ProposalKind distinguishes membership votes from activity votes.
type ProposalKind uint8

const (
	ProposalMembership ProposalKind = 1
	ProposalActivity   ProposalKind = 2
)

// String prints the kind as lower-case text for events and logs.
func (k ProposalKind) String() string {
	switch k {
	case ProposalMembership:
		return "membership"
	case ProposalActivity:
		return "activity"
	default:
		return "unspecified"
	}
}

// ProposalState captures a proposal's lifecycle. Accepted and Expired are terminal.
type ProposalState uint8

const (
	ProposalOpen     ProposalState = 1
	ProposalAccepted ProposalState = 2
	ProposalExpired  ProposalState = 3
)

func (s ProposalState) String() string {
	switch s {
	case ProposalOpen:
		return "open"
	case ProposalAccepted:
		return "accepted"
	case ProposalExpired:
		return "expired"
	default:
		return "unspecified"
	}
}

// MembershipDescription is the fixed description of membership proposals.
const MembershipDescription = "New DAO Membership Proposal"

// Proposal is a vote on a membership grant or a treasury activity.
// RequiredWeight is captured at creation and never recomputed.
type Proposal struct {
	ID             uint64        `cbor:"id" json:"id"`
	Proposer       Address       `cbor:"proposer" json:"proposer"`
	Kind           ProposalKind  `cbor:"kind" json:"kind"`
	Description    string        `cbor:"description" json:"description"`
	ForWeight      uint64        `cbor:"for" json:"for_weight"`
	RequiredWeight uint64        `cbor:"required" json:"required_weight"`
	CreatedAt      time.Time     `cbor:"created_at" json:"created_at"`
	EndTime        time.Time     `cbor:"end_time" json:"end_time"`
	State          ProposalState `cbor:"state" json:"state"`
	Voters         []Address     `cbor:"voters" json:"voters"`
}

// HasVoted reports whether addr already cast a vote.
func (p *Proposal) HasVoted(addr Address) bool {
	for _, v := range p.Voters {
		if v == addr {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with p.
func (p *Proposal) Clone() Proposal {
	cp := *p
	cp.Voters = append([]Address(nil), p.Voters...)
	return cp
}

// WithdrawalAuthorization bounds the single treasury draw an accepted
// activity proposal allows.
type WithdrawalAuthorization struct {
	ProposalID uint64 `cbor:"proposal" json:"proposal_id"`
	MaxAmount  Amount `cbor:"max" json:"max_amount"`
	Withdrawn  bool   `cbor:"withdrawn" json:"withdrawn"`
	Refunded   Amount `cbor:"refunded" json:"refunded"`
}
