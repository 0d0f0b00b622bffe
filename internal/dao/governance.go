package dao

import (
	"fmt"
	"time"

	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/governance"
	"SavingsDAO/internal/model"
)

// AcceptAgreement records the user's acceptance. An eligible user gets
// a membership proposal right away; calling it again after a membership
// proposal expired opens a new one.
func (s *Service) AcceptAgreement(user model.Address) error {
	return s.run(func(now time.Time) error {
		if user.IsZero() {
			return model.ErrInvalidAddress
		}
		if s.gate.Accept(user) {
			s.emit(now, model.Event{Type: model.EventAgreementAccepted, User: user})
		}
		s.proposeMembership(now, user)
		return nil
	})
}

func (s *Service) IsAccepted(user model.Address) bool {
	var ok bool
	s.view(func(time.Time) { ok = s.gate.IsAccepted(user) })
	return ok
}

// ProposeActivity opens an activity proposal on behalf of a member.
func (s *Service) ProposeActivity(proposer model.Address, description string, duration time.Duration) (model.Proposal, error) {
	var p model.Proposal
	err := s.run(func(now time.Time) error {
		var err error
		p, err = s.gov.ProposeActivity(proposer, description, duration, now)
		if err != nil {
			return err
		}
		s.emit(now, model.Event{
			Type:       model.EventProposalCreated,
			User:       proposer,
			ProposalID: p.ID,
			Weight:     p.RequiredWeight,
			Note:       p.Kind.String(),
		})
		return nil
	})
	return p, err
}

// Vote casts voter's ballot and applies the acceptance effect when the
// vote reaches quorum.
func (s *Service) Vote(voter model.Address, proposalID uint64, support bool) (governance.VoteOutcome, error) {
	var out governance.VoteOutcome
	err := s.run(func(now time.Time) error {
		var err error
		out, err = s.gov.Vote(voter, proposalID, support, now)
		if err != nil {
			return err
		}
		note := "against"
		if support {
			note = "for"
		}
		s.emit(now, model.Event{Type: model.EventVoteCast, User: voter, ProposalID: proposalID, Weight: out.Weight, Note: note})
		if !out.Accepted {
			return nil
		}

		p := out.Proposal
		accepted := model.Event{
			Type:       model.EventProposalAccepted,
			User:       p.Proposer,
			ProposalID: p.ID,
			Weight:     p.ForWeight,
			Note:       p.Kind.String(),
		}
		if p.Kind == model.ProposalActivity {
			auth := s.treasury.Authorize(p.ID, s.gov.MemberCount())
			accepted.Amount = auth.MaxAmount
		}
		s.emit(now, accepted)
		if out.Granted {
			s.emit(now, model.Event{
				Type:   model.EventMembershipGranted,
				User:   p.Proposer,
				Weight: s.ledger.Weight(p.Proposer),
				Note:   "locked until " + out.LockExpiry.UTC().Format(time.RFC3339),
			})
			s.mintBadge(p.Proposer)
		}
		return nil
	})
	return out, err
}

// ForfeitMembership gives up membership once the lock expired. The
// user's weight leaves the voting total and the reserve rule stops
// applying to their withdrawals.
func (s *Service) ForfeitMembership(user model.Address) error {
	return s.run(func(now time.Time) error {
		weight, err := s.gov.Forfeit(user, now)
		if err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventMembershipForfeited, User: user, Weight: weight})
		return nil
	})
}

// AddMember seeds a member without a vote. Owner only.
func (s *Service) AddMember(caller, user model.Address) error {
	return s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		if user.IsZero() {
			return model.ErrInvalidAddress
		}
		expiry, err := s.gov.Grant(user, now)
		if err != nil {
			return err
		}
		s.emit(now, model.Event{
			Type:   model.EventMembershipGranted,
			User:   user,
			Weight: s.ledger.Weight(user),
			Note:   "seeded; locked until " + expiry.UTC().Format(time.RFC3339),
		})
		s.mintBadge(user)
		return nil
	})
}

// SweepExpired closes proposals past their deadline and journals them.
func (s *Service) SweepExpired() ([]model.Proposal, error) {
	var expired []model.Proposal
	err := s.run(func(now time.Time) error {
		expired = s.gov.SweepExpired(now)
		for _, p := range expired {
			s.emit(now, model.Event{
				Type:       model.EventProposalExpired,
				User:       p.Proposer,
				ProposalID: p.ID,
				Weight:     p.ForWeight,
				Note:       p.Kind.String(),
			})
		}
		return nil
	})
	return expired, err
}

func (s *Service) CurrentProposer() model.Address {
	var addr model.Address
	s.view(func(time.Time) { addr = s.gov.CurrentProposer() })
	return addr
}

func (s *Service) TotalVotingPower() uint64 {
	var w uint64
	s.view(func(time.Time) { w = s.gov.TotalVotingPower() })
	return w
}

func (s *Service) MemberCount() uint64 {
	var n uint64
	s.view(func(time.Time) { n = s.gov.MemberCount() })
	return n
}

func (s *Service) IsMember(user model.Address) bool {
	var ok bool
	s.view(func(time.Time) { ok = s.ledger.IsMember(user) })
	return ok
}

// Proposal returns a proposal as of now; a lapsed open proposal reads
// as expired.
func (s *Service) Proposal(id uint64) (model.Proposal, error) {
	var (
		p   model.Proposal
		err error
	)
	s.view(func(now time.Time) { p, err = s.gov.Proposal(id, now) })
	return p, err
}

func (s *Service) Proposals() []model.Proposal {
	var out []model.Proposal
	s.view(func(now time.Time) { out = s.gov.Proposals(now) })
	return out
}

// Regulation returns the disclosure text under key, or "" when absent.
func (s *Service) Regulation(scope compliance.Scope, key string) (string, error) {
	if !scope.Valid() {
		return "", model.ErrInvalidScope
	}
	return s.regs.Get(scope, key)
}

// SetRegulation stores a disclosure text. Owner only. The store write is
// the last step, so a failed write commits nothing.
func (s *Service) SetRegulation(caller model.Address, scope compliance.Scope, key, text string) error {
	return s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		if !scope.Valid() {
			return model.ErrInvalidScope
		}
		if err := s.regs.Set(scope, key, text); err != nil {
			return fmt.Errorf("store regulation %s/%s: %w", scope, key, err)
		}
		s.emit(now, model.Event{Type: model.EventRegulationUpdated, User: caller, Note: string(scope) + "/" + key})
		return nil
	})
}
