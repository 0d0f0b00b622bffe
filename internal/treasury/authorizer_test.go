package treasury

import (
	"errors"
	"testing"

	"SavingsDAO/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	pool     model.PoolBalance
	paid     map[model.Address]model.Amount
	failNext bool
}

func newVault(stable model.Amount) *fakeVault {
	return &fakeVault{pool: model.PoolBalance{Stable: stable}, paid: map[model.Address]model.Amount{}}
}

func (v *fakeVault) Pool() model.PoolBalance { return v.pool }
func (v *fakeVault) Unit() model.Amount      { return model.NewAmount(3000) }

func (v *fakeVault) Payout(to model.Address, amount model.Amount) error {
	if v.failNext {
		v.failNext = false
		return errors.New("boom")
	}
	v.pool.Stable = v.pool.Stable.Sub(amount)
	v.paid[to], _ = v.paid[to].Add(amount)
	return nil
}

func (v *fakeVault) Refund(_ model.Address, amount model.Amount) error {
	v.pool.Stable, _ = v.pool.Stable.Add(amount)
	return nil
}

func accepted(id uint64) model.Proposal {
	return model.Proposal{ID: id, Kind: model.ProposalActivity, State: model.ProposalAccepted}
}

func TestAuthorizeCapsAtReserveFloor(t *testing.T) {
	vault := newVault(model.NewAmount(42000))
	a := NewAuthorizer(vault)

	auth := a.Authorize(1, 3)
	assert.Equal(t, "33000", auth.MaxAmount.String())
	assert.False(t, auth.Withdrawn)

	vault.pool.Stable = model.NewAmount(5000)
	auth = a.Authorize(2, 3)
	assert.True(t, auth.MaxAmount.IsZero())
}

func TestWithdrawOnce(t *testing.T) {
	vault := newVault(model.NewAmount(42000))
	a := NewAuthorizer(vault)
	a.Authorize(1, 3)

	err := a.Withdraw(accepted(1), "owner", model.NewAmount(33001), 3)
	require.ErrorIs(t, err, model.ErrExceedsMaximum)

	require.NoError(t, a.Withdraw(accepted(1), "owner", model.NewAmount(33000), 3))
	assert.Equal(t, "9000", vault.pool.Stable.String())
	assert.Equal(t, "33000", vault.paid["owner"].String())

	err = a.Withdraw(accepted(1), "owner", model.NewAmount(1), 3)
	require.ErrorIs(t, err, model.ErrAlreadyWithdrawn)

	auth, ok := a.Authorization(1)
	require.True(t, ok)
	assert.True(t, auth.Withdrawn)
}

func TestWithdrawRespectsCurrentFloor(t *testing.T) {
	vault := newVault(model.NewAmount(42000))
	a := NewAuthorizer(vault)
	a.Authorize(1, 3)
	a.Authorize(2, 3)

	require.NoError(t, a.Withdraw(accepted(1), "owner", model.NewAmount(30000), 3))
	err := a.Withdraw(accepted(2), "owner", model.NewAmount(3001), 3)
	require.ErrorIs(t, err, model.ErrExceedsMaximum)
	require.NoError(t, a.Withdraw(accepted(2), "owner", model.NewAmount(3000), 3))
	assert.Equal(t, "9000", vault.pool.Stable.String())
}

func TestWithdrawNeedsAcceptedActivity(t *testing.T) {
	a := NewAuthorizer(newVault(model.NewAmount(42000)))
	a.Authorize(1, 0)

	open := accepted(1)
	open.State = model.ProposalOpen
	require.ErrorIs(t, a.Withdraw(open, "owner", model.NewAmount(1), 0), model.ErrProposalNotAccepted)

	membership := accepted(1)
	membership.Kind = model.ProposalMembership
	require.ErrorIs(t, a.Withdraw(membership, "owner", model.NewAmount(1), 0), model.ErrProposalNotAccepted)

	require.ErrorIs(t, a.Withdraw(accepted(7), "owner", model.NewAmount(1), 0), model.ErrProposalNotAccepted)
}

func TestFailedPayoutLeavesAuthorizationUnused(t *testing.T) {
	vault := newVault(model.NewAmount(42000))
	a := NewAuthorizer(vault)
	a.Authorize(1, 0)

	vault.failNext = true
	require.Error(t, a.Withdraw(accepted(1), "owner", model.NewAmount(10), 0))
	auth, _ := a.Authorization(1)
	assert.False(t, auth.Withdrawn)

	require.NoError(t, a.Withdraw(accepted(1), "owner", model.NewAmount(10), 0))
}

func TestRefund(t *testing.T) {
	vault := newVault(model.NewAmount(42000))
	a := NewAuthorizer(vault)
	a.Authorize(1, 3)

	require.ErrorIs(t, a.Refund(accepted(1), "owner", model.NewAmount(5)), model.ErrNotWithdrawn)

	require.NoError(t, a.Withdraw(accepted(1), "owner", model.NewAmount(20000), 3))
	require.NoError(t, a.Refund(accepted(1), "owner", model.NewAmount(5000)))
	require.NoError(t, a.Refund(accepted(1), "owner", model.NewAmount(1000)))

	auth, _ := a.Authorization(1)
	assert.True(t, auth.Withdrawn)
	assert.Equal(t, "6000", auth.Refunded.String())
	assert.Equal(t, "28000", vault.pool.Stable.String())

	restored := NewAuthorizer(vault)
	restored.Restore(a.Authorizations())
	got, ok := restored.Authorization(1)
	require.True(t, ok)
	assert.Equal(t, auth, got)
}
