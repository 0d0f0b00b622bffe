package dao

import (
	"log"
	"time"

	"SavingsDAO/internal/ledger"
	"SavingsDAO/internal/model"
)

// Deposit pulls amount of the stable asset from user. Crossing into
// weight 1 makes the user eligible for a membership proposal.
func (s *Service) Deposit(user model.Address, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		if user.IsZero() {
			return model.ErrInvalidAddress
		}
		change, err := s.ledger.Deposit(user, amount)
		if err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventStableDeposited, User: user, Amount: amount, Weight: change.After})
		s.applyWeightChange(now, change)
		if change.BecameEligible() {
			s.onEligible(now, user)
		}
		return nil
	})
}

// DepositReward pulls amount of the reward asset from user.
func (s *Service) DepositReward(user model.Address, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		if user.IsZero() {
			return model.ErrInvalidAddress
		}
		if err := s.ledger.DepositReward(user, amount); err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventRewardDeposited, User: user, Amount: amount})
		return nil
	})
}

// Withdraw returns stable funds to user. Members keep one unit locked
// until they forfeit.
func (s *Service) Withdraw(user model.Address, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		change, err := s.ledger.Withdraw(user, amount)
		if err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventStableWithdrawn, User: user, Amount: amount, Weight: change.After})
		s.applyWeightChange(now, change)
		return nil
	})
}

// WithdrawReward returns reward funds to user.
func (s *Service) WithdrawReward(user model.Address, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		change, err := s.ledger.WithdrawReward(user, amount)
		if err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventRewardWithdrawn, User: user, Amount: amount})
		s.applyWeightChange(now, change)
		return nil
	})
}

// FundRewards moves reward tokens from the owner into the pool's
// unallocated reserve, the source of airdrops.
func (s *Service) FundRewards(caller model.Address, amount model.Amount) error {
	return s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		if err := s.ledger.FundRewards(caller, amount); err != nil {
			return err
		}
		s.emit(now, model.Event{Type: model.EventRewardsFunded, User: caller, Amount: amount})
		return nil
	})
}

// DistributeAirdrop splits total across recipients by stable balance.
func (s *Service) DistributeAirdrop(caller model.Address, total model.Amount, recipients []model.Address) ([]ledger.Credit, error) {
	var credits []ledger.Credit
	err := s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		var err error
		credits, err = s.ledger.DistributeAirdrop(total, recipients)
		if err != nil {
			return err
		}
		for _, c := range credits {
			s.emit(now, model.Event{Type: model.EventAirdropDistributed, User: c.User, Amount: c.Amount})
		}
		return nil
	})
	return credits, err
}

func (s *Service) Balance(user model.Address) model.UserAccount {
	var acct model.UserAccount
	s.view(func(time.Time) { acct = s.ledger.Balance(user) })
	return acct
}

func (s *Service) PoolBalance() model.PoolBalance {
	var pool model.PoolBalance
	s.view(func(time.Time) { pool = s.ledger.Pool() })
	return pool
}

// applyWeightChange keeps the member weight total equal to the sum of
// member tier weights.
func (s *Service) applyWeightChange(now time.Time, change ledger.WeightChange) {
	if !change.Member {
		return
	}
	if change.Reset {
		s.gov.DropMember(change.Before)
		s.emit(now, model.Event{Type: model.EventMembershipForfeited, User: change.User, Weight: change.Before, Note: "account emptied"})
		return
	}
	if change.Before != change.After {
		s.gov.Reweigh(change.Before, change.After)
	}
}

// onEligible asks for the agreement or, once accepted, opens the
// membership proposal.
func (s *Service) onEligible(now time.Time, user model.Address) {
	if !s.gate.IsAccepted(user) {
		s.emit(now, model.Event{Type: model.EventAgreementSent, User: user})
		return
	}
	s.proposeMembership(now, user)
}

// proposeMembership opens a membership proposal when the user has
// weight, has accepted, is not a member and has none open.
func (s *Service) proposeMembership(now time.Time, user model.Address) {
	acct := s.ledger.Balance(user)
	if acct.TierWeight < 1 || acct.IsMember || !s.gate.IsAccepted(user) || s.gov.HasOpenMembership(user, now) {
		return
	}
	p := s.gov.OpenMembership(user, now)
	s.emit(now, model.Event{
		Type:       model.EventProposalCreated,
		User:       user,
		ProposalID: p.ID,
		Weight:     p.RequiredWeight,
		Note:       p.Kind.String(),
	})
}

func (s *Service) mintBadge(user model.Address) {
	if err := s.badge.Mint(user); err != nil {
		log.Printf("[WARN] mint membership badge for %s: %v", user, err)
	}
}
