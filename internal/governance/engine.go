package governance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"SavingsDAO/internal/model"
)

// Accounts is the part of the ledger the engine reads weights from and
// writes membership flags to.
type Accounts interface {
	Balance(user model.Address) model.UserAccount
	SetMembership(user model.Address, member bool, lockExpiry time.Time)
}

// Params are the governance timing constants.
type Params struct {
	MembershipLock      time.Duration
	MembershipWindow    time.Duration
	MinActivityDuration time.Duration
}

// DefaultParams returns one-year locks, a seven-day membership vote and
// a one-day minimum activity vote.
func DefaultParams() Params {
	return Params{
		MembershipLock:      365 * 24 * time.Hour,
		MembershipWindow:    7 * 24 * time.Hour,
		MinActivityDuration: 24 * time.Hour,
	}
}

// Engine owns the proposal registry, the member count and the total
// member weight. Membership flags themselves live on ledger accounts.
//
// Engine is not safe for concurrent use; the dao service serializes access.
type Engine struct {
	params   Params
	accounts Accounts

	proposals    map[uint64]*model.Proposal
	nextID       uint64
	totalWeight  uint64
	memberCount  uint64
	lastAccepted model.Address
}

func NewEngine(params Params, accounts Accounts) *Engine {
	return &Engine{
		params:    params,
		accounts:  accounts,
		proposals: make(map[uint64]*model.Proposal),
		nextID:    1,
	}
}

// VoteOutcome describes what a successful vote did.
type VoteOutcome struct {
	Proposal model.Proposal
	Weight   uint64
	Accepted bool
	// Granted is set when the vote accepted a membership proposal and
	// the proposer became a member.
	Granted    bool
	LockExpiry time.Time
}

// RequiredWeight is the quorum a proposal created now would freeze:
// floor(2 * totalMemberWeight / 3).
func (e *Engine) RequiredWeight() uint64 {
	t := e.totalWeight
	return 2*(t/3) + (2*(t%3))/3
}

func (e *Engine) TotalVotingPower() uint64 { return e.totalWeight }

func (e *Engine) MemberCount() uint64 { return e.memberCount }

// CurrentProposer returns the proposer of the most recently accepted
// proposal of either kind.
func (e *Engine) CurrentProposer() model.Address { return e.lastAccepted }

// OpenMembership creates a membership proposal for an eligible user.
func (e *Engine) OpenMembership(user model.Address, now time.Time) model.Proposal {
	return e.create(user, model.ProposalMembership, model.MembershipDescription, now, now.Add(e.params.MembershipWindow))
}

// ProposeActivity lets a member open an activity proposal lasting duration.
func (e *Engine) ProposeActivity(proposer model.Address, description string, duration time.Duration, now time.Time) (model.Proposal, error) {
	if !e.accounts.Balance(proposer).IsMember {
		return model.Proposal{}, model.ErrNotAMember
	}
	if duration < e.params.MinActivityDuration {
		return model.Proposal{}, fmt.Errorf("%w: %s is shorter than %s", model.ErrInvalidDuration, duration, e.params.MinActivityDuration)
	}
	return e.create(proposer, model.ProposalActivity, strings.TrimSpace(description), now, now.Add(duration)), nil
}

func (e *Engine) create(proposer model.Address, kind model.ProposalKind, description string, now, end time.Time) model.Proposal {
	p := &model.Proposal{
		ID:             e.nextID,
		Proposer:       proposer,
		Kind:           kind,
		Description:    description,
		RequiredWeight: e.RequiredWeight(),
		CreatedAt:      now,
		EndTime:        end,
		State:          model.ProposalOpen,
	}
	e.proposals[p.ID] = p
	e.nextID++
	return p.Clone()
}

// Vote records voter's ballot. Checks run in order: the deadline, the
// proposal state, membership, then double voting. A supporting vote adds
// the voter's current tier weight; reaching the frozen quorum accepts
// the proposal at once.
func (e *Engine) Vote(voter model.Address, id uint64, support bool, now time.Time) (VoteOutcome, error) {
	p, ok := e.proposals[id]
	if !ok {
		return VoteOutcome{}, model.ErrProposalNotFound
	}
	if now.After(p.EndTime) {
		return VoteOutcome{}, model.ErrVotingEnded
	}
	if p.State != model.ProposalOpen {
		return VoteOutcome{}, model.ErrProposalNotActive
	}
	acct := e.accounts.Balance(voter)
	if !acct.IsMember {
		return VoteOutcome{}, model.ErrNotAMember
	}
	if p.HasVoted(voter) {
		return VoteOutcome{}, model.ErrAlreadyVoted
	}

	out := VoteOutcome{Weight: acct.TierWeight}
	p.Voters = append(p.Voters, voter)
	if support {
		p.ForWeight += acct.TierWeight
	}
	if p.ForWeight >= p.RequiredWeight {
		p.State = model.ProposalAccepted
		e.lastAccepted = p.Proposer
		out.Accepted = true
		if p.Kind == model.ProposalMembership && !e.accounts.Balance(p.Proposer).IsMember {
			out.LockExpiry = e.grant(p.Proposer, now)
			out.Granted = true
		}
	}
	out.Proposal = p.Clone()
	return out, nil
}

// Grant makes user a member without a vote.
func (e *Engine) Grant(user model.Address, now time.Time) (time.Time, error) {
	if e.accounts.Balance(user).IsMember {
		return time.Time{}, model.ErrAlreadyMember
	}
	return e.grant(user, now), nil
}

func (e *Engine) grant(user model.Address, now time.Time) time.Time {
	expiry := now.Add(e.params.MembershipLock)
	weight := e.accounts.Balance(user).TierWeight
	e.accounts.SetMembership(user, true, expiry)
	e.totalWeight += weight
	e.memberCount++
	return expiry
}

// Forfeit ends user's membership once the lock has expired and returns
// the weight removed from the total.
func (e *Engine) Forfeit(user model.Address, now time.Time) (uint64, error) {
	acct := e.accounts.Balance(user)
	if !acct.IsMember {
		return 0, model.ErrNotAMember
	}
	if now.Before(acct.MembershipLockExpiry) {
		return 0, fmt.Errorf("%w: locked until %s", model.ErrLockNotExpired, acct.MembershipLockExpiry.UTC().Format(time.RFC3339))
	}
	e.accounts.SetMembership(user, false, time.Time{})
	e.dropWeight(acct.TierWeight)
	return acct.TierWeight, nil
}

// Reweigh moves a member's contribution to the total from before to after.
func (e *Engine) Reweigh(before, after uint64) {
	e.totalWeight = e.totalWeight - before + after
}

// DropMember removes a member whose account was reset to empty.
func (e *Engine) DropMember(weight uint64) {
	e.dropWeight(weight)
}

func (e *Engine) dropWeight(weight uint64) {
	if weight > e.totalWeight {
		weight = e.totalWeight
	}
	e.totalWeight -= weight
	if e.memberCount > 0 {
		e.memberCount--
	}
}

// HasOpenMembership reports whether user has a membership proposal
// still open at now.
func (e *Engine) HasOpenMembership(user model.Address, now time.Time) bool {
	for _, p := range e.proposals {
		if p.Kind == model.ProposalMembership && p.Proposer == user && stateAt(p, now) == model.ProposalOpen {
			return true
		}
	}
	return false
}

// Proposal returns a proposal as seen at now: an open proposal past its
// end time reads as expired.
func (e *Engine) Proposal(id uint64, now time.Time) (model.Proposal, error) {
	p, ok := e.proposals[id]
	if !ok {
		return model.Proposal{}, model.ErrProposalNotFound
	}
	view := p.Clone()
	view.State = stateAt(p, now)
	return view, nil
}

// Proposals lists every proposal in id order, as seen at now.
func (e *Engine) Proposals(now time.Time) []model.Proposal {
	ids := make([]uint64, 0, len(e.proposals))
	for id := range e.proposals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Proposal, 0, len(ids))
	for _, id := range ids {
		view := e.proposals[id].Clone()
		view.State = stateAt(e.proposals[id], now)
		out = append(out, view)
	}
	return out
}

// SweepExpired closes every open proposal whose deadline passed and
// returns them in id order. Expiry has no other effect.
func (e *Engine) SweepExpired(now time.Time) []model.Proposal {
	var expired []model.Proposal
	for _, p := range e.Proposals(now) {
		if p.State != model.ProposalExpired || e.proposals[p.ID].State != model.ProposalOpen {
			continue
		}
		e.proposals[p.ID].State = model.ProposalExpired
		expired = append(expired, p)
	}
	return expired
}

// State is the engine's persisted form.
type State struct {
	Proposals    []model.Proposal `cbor:"proposals"`
	NextID       uint64           `cbor:"next_id"`
	LastAccepted model.Address    `cbor:"last_accepted"`
}

func (e *Engine) Export() State {
	ids := make([]uint64, 0, len(e.proposals))
	for id := range e.proposals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s := State{NextID: e.nextID, LastAccepted: e.lastAccepted}
	for _, id := range ids {
		s.Proposals = append(s.Proposals, e.proposals[id].Clone())
	}
	return s
}

// Restore loads s and recounts membership from the given member accounts.
func (e *Engine) Restore(s State, members []model.UserAccount) {
	e.proposals = make(map[uint64]*model.Proposal, len(s.Proposals))
	for i := range s.Proposals {
		p := s.Proposals[i].Clone()
		e.proposals[p.ID] = &p
	}
	e.nextID = s.NextID
	if e.nextID == 0 {
		e.nextID = 1
	}
	e.lastAccepted = s.LastAccepted
	e.totalWeight, e.memberCount = 0, 0
	for _, m := range members {
		if m.IsMember {
			e.totalWeight += m.TierWeight
			e.memberCount++
		}
	}
}

func stateAt(p *model.Proposal, now time.Time) model.ProposalState {
	if p.State == model.ProposalOpen && now.After(p.EndTime) {
		return model.ProposalExpired
	}
	return p.State
}
