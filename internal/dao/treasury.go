package dao

import (
	"fmt"
	"time"

	"SavingsDAO/internal/model"
)

// WithdrawAmount draws amount for an accepted activity proposal and
// pays it to the owner. Owner only, once per proposal.
func (s *Service) WithdrawAmount(caller model.Address, proposalID uint64, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		p, err := s.gov.Proposal(proposalID, now)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrProposalNotAccepted, err)
		}
		if err := s.treasury.Withdraw(p, caller, amount, s.gov.MemberCount()); err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventOwnerWithdraw, User: caller, ProposalID: proposalID, Amount: amount})
		return nil
	})
}

// RefundWithdrawnAmount returns stable funds from the owner to the pool
// against a proposal that was drawn on. Owner only.
func (s *Service) RefundWithdrawnAmount(caller model.Address, proposalID uint64, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		p, err := s.gov.Proposal(proposalID, now)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrProposalNotAccepted, err)
		}
		if err := s.treasury.Refund(p, caller, amount); err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventOwnerRefund, User: caller, ProposalID: proposalID, Amount: amount})
		return nil
	})
}

// Authorization returns the withdrawal authorization of a proposal.
func (s *Service) Authorization(proposalID uint64) (model.WithdrawalAuthorization, bool) {
	var (
		auth model.WithdrawalAuthorization
		ok   bool
	)
	s.view(func(time.Time) { auth, ok = s.treasury.Authorization(proposalID) })
	return auth, ok
}
