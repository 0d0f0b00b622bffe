package treasury

import (
	"fmt"
	"sort"

	"SavingsDAO/internal/model"
)

// Vault is the ledger's pooled stable funds.
type Vault interface {
	Pool() model.PoolBalance
	Unit() model.Amount
	Payout(to model.Address, amount model.Amount) error
	Refund(from model.Address, amount model.Amount) error
}

// Authorizer turns accepted activity proposals into a single bounded
// draw on the pool. The pool may never fall below one unit per member.
//
// Authorizer is not safe for concurrent use; the dao service serializes access.
type Authorizer struct {
	vault  Vault
	grants map[uint64]*model.WithdrawalAuthorization
}

func NewAuthorizer(vault Vault) *Authorizer {
	return &Authorizer{vault: vault, grants: make(map[uint64]*model.WithdrawalAuthorization)}
}

// Headroom is what the pool holds above the reserve floor of
// unit * memberCount, or zero.
func (a *Authorizer) Headroom(memberCount uint64) model.Amount {
	floor, ok := a.vault.Unit().MulUint64(memberCount)
	if !ok {
		return model.Amount{}
	}
	return a.vault.Pool().Stable.Sub(floor)
}

// Authorize records the authorization for an accepted activity proposal.
func (a *Authorizer) Authorize(proposalID uint64, memberCount uint64) model.WithdrawalAuthorization {
	auth := &model.WithdrawalAuthorization{
		ProposalID: proposalID,
		MaxAmount:  a.Headroom(memberCount),
	}
	a.grants[proposalID] = auth
	return *auth
}

// Authorization returns the authorization for a proposal, if any.
func (a *Authorizer) Authorization(proposalID uint64) (model.WithdrawalAuthorization, bool) {
	auth, ok := a.grants[proposalID]
	if !ok {
		return model.WithdrawalAuthorization{}, false
	}
	return *auth, true
}

// Withdraw draws amount for p and sends it to `to`. The amount is bounded
// by the authorized maximum and by the headroom at the time of the draw.
func (a *Authorizer) Withdraw(p model.Proposal, to model.Address, amount model.Amount, memberCount uint64) error {
	if amount.IsZero() {
		return model.ErrInvalidAmount
	}
	auth, err := a.accepted(p)
	if err != nil {
		return err
	}
	if auth.Withdrawn {
		return model.ErrAlreadyWithdrawn
	}
	if amount.Gt(auth.MaxAmount) {
		return fmt.Errorf("%w: %s > %s", model.ErrExceedsMaximum, amount, auth.MaxAmount)
	}
	if headroom := a.Headroom(memberCount); amount.Gt(headroom) {
		return fmt.Errorf("%w: %s > %s above the reserve floor", model.ErrExceedsMaximum, amount, headroom)
	}
	if err := a.vault.Payout(to, amount); err != nil {
		return err
	}
	auth.Withdrawn = true
	return nil
}

// Refund returns amount from `from` to the pool against a proposal that
// was drawn on. The withdrawn flag stays set.
func (a *Authorizer) Refund(p model.Proposal, from model.Address, amount model.Amount) error {
	if amount.IsZero() {
		return model.ErrInvalidAmount
	}
	auth, err := a.accepted(p)
	if err != nil {
		return err
	}
	if !auth.Withdrawn {
		return model.ErrNotWithdrawn
	}
	total, ok := auth.Refunded.Add(amount)
	if !ok {
		return model.ErrAmountOverflow
	}
	if err := a.vault.Refund(from, amount); err != nil {
		return err
	}
	auth.Refunded = total
	return nil
}

func (a *Authorizer) accepted(p model.Proposal) (*model.WithdrawalAuthorization, error) {
	if p.Kind != model.ProposalActivity || p.State != model.ProposalAccepted {
		return nil, model.ErrProposalNotAccepted
	}
	auth, ok := a.grants[p.ID]
	if !ok {
		return nil, model.ErrProposalNotAccepted
	}
	return auth, nil
}

// Authorizations lists every authorization in proposal order.
func (a *Authorizer) Authorizations() []model.WithdrawalAuthorization {
	out := make([]model.WithdrawalAuthorization, 0, len(a.grants))
	for _, auth := range a.grants {
		out = append(out, *auth)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProposalID < out[j].ProposalID })
	return out
}

// Restore replaces the authorizations, used when loading a snapshot.
func (a *Authorizer) Restore(auths []model.WithdrawalAuthorization) {
	a.grants = make(map[uint64]*model.WithdrawalAuthorization, len(auths))
	for i := range auths {
		auth := auths[i]
		a.grants[auth.ProposalID] = &auth
	}
}
