package dao

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"SavingsDAO/internal/badge"
	"SavingsDAO/internal/clock"
	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/governance"
	"SavingsDAO/internal/model"
	"SavingsDAO/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner model.Address = "owner"
	pool  model.Address = "pool"
	day                 = 24 * time.Hour
)

func usdt(v uint64) model.Amount { return model.Scaled(v, 6) }

func blz(v uint64) model.Amount { return model.Scaled(v, 18) }

type harness struct {
	svc    *Service
	clk    *clock.FakeClock
	usdt   *token.Memory
	blz    *token.Memory
	badges *badge.LogMinter
}

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, statePath string) *harness {
	t.Helper()
	h := &harness{
		clk:    clock.Fake(start),
		usdt:   token.NewMemory("USDT", 6),
		blz:    token.NewMemory("BLZ", 18),
		badges: badge.NewLogMinter(),
	}
	for _, u := range []model.Address{owner, "other", "third", "fourth", "fifth", "eighth", "ninth", "tenth"} {
		h.fund(t, u)
	}
	svc, err := New(Config{
		Owner:      owner,
		Pool:       pool,
		Unit:       usdt(3000),
		Governance: governance.DefaultParams(),
		StatePath:  statePath,
	}, Deps{
		Stable: h.usdt.As(pool),
		Reward: h.blz.As(pool),
		Badge:  h.badges,
		Clock:  h.clk,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) fund(t *testing.T, u model.Address) {
	t.Helper()
	require.NoError(t, h.usdt.Mint(u, usdt(1_000_000)))
	h.usdt.Approve(u, pool, usdt(1_000_000))
	require.NoError(t, h.blz.Mint(u, blz(1_000_000)))
	h.blz.Approve(u, pool, blz(1_000_000))
}

// seedMembers deposits 8000, 14000 and 20000 and seeds the three
// depositors as members, weighing 2, 4 and 6.
func (h *harness) seedMembers(t *testing.T) {
	t.Helper()
	require.NoError(t, h.svc.Deposit("eighth", usdt(8000)))
	require.NoError(t, h.svc.Deposit("ninth", usdt(14000)))
	require.NoError(t, h.svc.Deposit("tenth", usdt(20000)))
	for _, m := range []model.Address{"eighth", "ninth", "tenth"} {
		require.NoError(t, h.svc.AddMember(owner, m))
	}
}

type captured struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *captured) Observe(events []model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

func (c *captured) types() []model.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.EventType
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func TestSeededMembersSetQuorum(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)

	assert.Equal(t, uint64(2), h.svc.Balance("eighth").TierWeight)
	assert.Equal(t, uint64(4), h.svc.Balance("ninth").TierWeight)
	assert.Equal(t, uint64(6), h.svc.Balance("tenth").TierWeight)
	assert.Equal(t, uint64(12), h.svc.TotalVotingPower())
	assert.Equal(t, uint64(3), h.svc.MemberCount())
	assert.Equal(t, 3, h.badges.Total())

	p, err := h.svc.ProposeActivity("eighth", "Fund a community garden", 3*day)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), p.RequiredWeight)
}

func TestAddMemberIsOwnerOnly(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.svc.Deposit("eighth", usdt(8000)))

	require.ErrorIs(t, h.svc.AddMember("eighth", "eighth"), model.ErrUnauthorized)
	require.NoError(t, h.svc.AddMember(owner, "eighth"))
	require.ErrorIs(t, h.svc.AddMember(owner, "eighth"), model.ErrAlreadyMember)
}

func TestEarlyAcceptanceStopsLaterVotes(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	p, err := h.svc.ProposeActivity("eighth", "Fund a community garden", 3*day)
	require.NoError(t, err)

	_, err = h.svc.Vote("tenth", p.ID, true)
	require.NoError(t, err)
	out, err := h.svc.Vote("ninth", p.ID, true)
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, uint64(10), out.Proposal.ForWeight)

	_, err = h.svc.Vote("eighth", p.ID, true)
	require.ErrorIs(t, err, model.ErrProposalNotActive)
	assert.Equal(t, model.Address("eighth"), h.svc.CurrentProposer())
}

func TestMixedVotesReachQuorum(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	p, err := h.svc.ProposeActivity("ninth", "Buy a delivery van", 5*day)
	require.NoError(t, err)

	_, err = h.svc.Vote("tenth", p.ID, true)
	require.NoError(t, err)
	_, err = h.svc.Vote("ninth", p.ID, false)
	require.NoError(t, err)
	out, err := h.svc.Vote("eighth", p.ID, true)
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, uint64(8), out.Proposal.ForWeight)
	assert.Equal(t, model.Address("ninth"), h.svc.CurrentProposer())
}

func TestShortActivityDurationRejected(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)

	_, err := h.svc.ProposeActivity("tenth", "x", time.Hour)
	require.ErrorIs(t, err, model.ErrInvalidDuration)
	_, err = h.svc.ProposeActivity("fourth", "x", 3*day)
	require.ErrorIs(t, err, model.ErrNotAMember)
}

func TestTreasuryDrawKeepsReserve(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	p, err := h.svc.ProposeActivity("tenth", "Equipment", 3*day)
	require.NoError(t, err)

	require.ErrorIs(t, h.svc.WithdrawAmount(owner, p.ID, usdt(1)), model.ErrProposalNotAccepted)

	_, err = h.svc.Vote("tenth", p.ID, true)
	require.NoError(t, err)
	_, err = h.svc.Vote("ninth", p.ID, true)
	require.NoError(t, err)

	auth, ok := h.svc.Authorization(p.ID)
	require.True(t, ok)
	assert.Equal(t, usdt(33000).String(), auth.MaxAmount.String())

	require.ErrorIs(t, h.svc.WithdrawAmount("tenth", p.ID, usdt(1)), model.ErrUnauthorized)
	require.ErrorIs(t, h.svc.WithdrawAmount(owner, p.ID, usdt(33001)), model.ErrExceedsMaximum)
	require.NoError(t, h.svc.WithdrawAmount(owner, p.ID, usdt(33000)))
	require.ErrorIs(t, h.svc.WithdrawAmount(owner, p.ID, usdt(1)), model.ErrAlreadyWithdrawn)

	assert.Equal(t, usdt(9000).String(), h.svc.PoolBalance().Stable.String())
	assert.Equal(t, usdt(1_033_000).String(), h.usdt.BalanceOf(owner).String())

	require.NoError(t, h.svc.RefundWithdrawnAmount(owner, p.ID, usdt(10000)))
	assert.Equal(t, usdt(19000).String(), h.svc.PoolBalance().Stable.String())
	auth, _ = h.svc.Authorization(p.ID)
	assert.True(t, auth.Withdrawn)
}

func TestMembershipProposalCannotBeDrawnOn(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	require.NoError(t, h.svc.AcceptAgreement("fourth"))
	require.NoError(t, h.svc.Deposit("fourth", usdt(3000)))

	ps := h.svc.Proposals()
	require.Len(t, ps, 1)
	_, err := h.svc.Vote("tenth", ps[0].ID, true)
	require.NoError(t, err)
	_, err = h.svc.Vote("ninth", ps[0].ID, true)
	require.NoError(t, err)

	require.ErrorIs(t, h.svc.WithdrawAmount(owner, ps[0].ID, usdt(1)), model.ErrProposalNotAccepted)
	require.ErrorIs(t, h.svc.WithdrawAmount(owner, 99, usdt(1)), model.ErrProposalNotAccepted)
}

func TestAirdropSplitsByStableBalance(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.svc.Deposit("other", model.NewAmount(500)))
	require.NoError(t, h.svc.Deposit("third", model.NewAmount(200)))
	require.NoError(t, h.svc.Deposit("fourth", model.NewAmount(100)))
	require.NoError(t, h.svc.FundRewards(owner, blz(100_000)))

	recipients := []model.Address{"other", "third", "fourth"}
	_, err := h.svc.DistributeAirdrop("other", blz(100_000), recipients)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	credits, err := h.svc.DistributeAirdrop(owner, blz(100_000), recipients)
	require.NoError(t, err)
	require.Len(t, credits, 3)
	assert.Equal(t, blz(62_500).String(), h.svc.Balance("other").RewardBalance.String())
	assert.Equal(t, blz(25_000).String(), h.svc.Balance("third").RewardBalance.String())
	assert.Equal(t, blz(12_500).String(), h.svc.Balance("fourth").RewardBalance.String())

	_, err = h.svc.DistributeAirdrop(owner, blz(1), []model.Address{"fifth"})
	require.ErrorIs(t, err, model.ErrEmptyRecipientSet)
}

func TestLockedMemberMustForfeitBeforeWithdrawing(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)

	require.ErrorIs(t, h.svc.Withdraw("tenth", usdt(18000)), model.ErrMembershipLockViolation)
	require.ErrorIs(t, h.svc.ForfeitMembership("tenth"), model.ErrLockNotExpired)

	h.clk.Advance(365 * day)
	require.NoError(t, h.svc.ForfeitMembership("tenth"))
	assert.False(t, h.svc.IsMember("tenth"))
	assert.Equal(t, uint64(6), h.svc.TotalVotingPower())
	assert.Equal(t, uint64(2), h.svc.MemberCount())

	require.NoError(t, h.svc.Withdraw("tenth", usdt(18000)))
	assert.Equal(t, usdt(2000).String(), h.svc.Balance("tenth").StableBalance.String())
	assert.Equal(t, uint64(0), h.svc.Balance("tenth").TierWeight)
}

func TestMemberWeightTracksDeposits(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)

	require.NoError(t, h.svc.Deposit("tenth", usdt(3000)))
	assert.Equal(t, uint64(13), h.svc.TotalVotingPower())

	require.NoError(t, h.svc.Withdraw("ninth", usdt(8000)))
	assert.Equal(t, uint64(2), h.svc.Balance("ninth").TierWeight)
	assert.Equal(t, uint64(11), h.svc.TotalVotingPower())

	var sum uint64
	for _, m := range []model.Address{"eighth", "ninth", "tenth"} {
		sum += h.svc.Balance(m).TierWeight
	}
	assert.Equal(t, sum, h.svc.TotalVotingPower())
}

func TestDepositThenAcceptOpensMembershipProposal(t *testing.T) {
	h := newHarness(t, "")
	obs := &captured{}
	h.svc.Subscribe(obs)

	require.NoError(t, h.svc.Deposit("fourth", usdt(1000)))
	require.NoError(t, h.svc.Deposit("fourth", usdt(1200)))
	assert.Empty(t, h.svc.Proposals())
	require.NoError(t, h.svc.Deposit("fourth", usdt(1300)))
	assert.Contains(t, obs.types(), model.EventAgreementSent)
	assert.Empty(t, h.svc.Proposals())

	require.NoError(t, h.svc.AcceptAgreement("fourth"))
	assert.True(t, h.svc.IsAccepted("fourth"))

	ps := h.svc.Proposals()
	require.Len(t, ps, 1)
	assert.Equal(t, uint64(1), ps[0].ID)
	assert.Equal(t, model.Address("fourth"), ps[0].Proposer)
	assert.Equal(t, model.MembershipDescription, ps[0].Description)
	assert.Equal(t, uint64(0), ps[0].RequiredWeight)
	assert.Equal(t, uint64(0), ps[0].ForWeight)

	require.NoError(t, h.svc.AcceptAgreement("fourth"))
	assert.Len(t, h.svc.Proposals(), 1)
}

func TestAcceptThenDepositOpensMembershipProposal(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.svc.AcceptAgreement("fifth"))
	assert.Empty(t, h.svc.Proposals())

	require.NoError(t, h.svc.Deposit("fifth", usdt(5000)))
	require.Len(t, h.svc.Proposals(), 1)

	// Staying eligible does not open another one.
	require.NoError(t, h.svc.Deposit("fifth", usdt(5000)))
	assert.Len(t, h.svc.Proposals(), 1)
}

func TestExpiredMembershipProposalCanBeRenewed(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	require.NoError(t, h.svc.AcceptAgreement("fifth"))
	require.NoError(t, h.svc.Deposit("fifth", usdt(5000)))

	h.clk.Advance(7*day + time.Second)
	p, err := h.svc.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalExpired, p.State)

	_, err = h.svc.Vote("tenth", 1, true)
	require.ErrorIs(t, err, model.ErrVotingEnded)

	expired, err := h.svc.SweepExpired()
	require.NoError(t, err)
	require.Len(t, expired, 1)

	require.NoError(t, h.svc.AcceptAgreement("fifth"))
	ps := h.svc.Proposals()
	require.Len(t, ps, 2)
	assert.Equal(t, model.ProposalOpen, ps[1].State)
	assert.False(t, h.svc.IsMember("fifth"))
}

func TestMembershipVoteGrantsMembership(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	require.NoError(t, h.svc.AcceptAgreement("fifth"))
	require.NoError(t, h.svc.Deposit("fifth", usdt(3000)))

	ps := h.svc.Proposals()
	require.Len(t, ps, 1)
	assert.Equal(t, uint64(8), ps[0].RequiredWeight)

	_, err := h.svc.Vote("tenth", ps[0].ID, true)
	require.NoError(t, err)
	out, err := h.svc.Vote("eighth", ps[0].ID, true)
	require.NoError(t, err)
	require.True(t, out.Granted)

	assert.True(t, h.svc.IsMember("fifth"))
	assert.True(t, h.svc.Balance("fifth").MembershipLockExpiry.Equal(start.Add(365*day)))
	assert.Equal(t, uint64(13), h.svc.TotalVotingPower())
	assert.Equal(t, 1, h.badges.Count("fifth"))
	assert.Equal(t, model.Address("fifth"), h.svc.CurrentProposer())

	require.ErrorIs(t, h.svc.Withdraw("fifth", usdt(1)), model.ErrMembershipLockViolation)
}

func TestFailedOperationsLeaveStateUntouched(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	obs := &captured{}
	h.svc.Subscribe(obs)
	before := h.svc.StateDigest()

	require.ErrorIs(t, h.svc.Deposit("stranger", usdt(10)), model.ErrTransferFailed)
	require.ErrorIs(t, h.svc.Withdraw("eighth", usdt(9000)), model.ErrInsufficientBalance)
	require.ErrorIs(t, h.svc.Deposit("eighth", model.Amount{}), model.ErrInvalidAmount)
	require.ErrorIs(t, h.svc.RefundWithdrawnAmount(owner, 1, usdt(1)), model.ErrProposalNotAccepted)
	require.ErrorIs(t, h.svc.TransferOwnership("eighth", "eighth"), model.ErrUnauthorized)

	assert.Equal(t, before, h.svc.StateDigest())
	assert.Empty(t, obs.types())
}

func TestReplayProducesSameDigest(t *testing.T) {
	script := func(h *harness) {
		h.seedMembers(t)
		p, err := h.svc.ProposeActivity("tenth", "Equipment", 3*day)
		require.NoError(t, err)
		_, err = h.svc.Vote("tenth", p.ID, true)
		require.NoError(t, err)
		h.clk.Advance(time.Hour)
		_, err = h.svc.Vote("ninth", p.ID, true)
		require.NoError(t, err)
		require.NoError(t, h.svc.WithdrawAmount(owner, p.ID, usdt(1000)))
	}
	a := newHarness(t, "")
	b := newHarness(t, "")
	script(a)
	script(b)
	assert.Equal(t, a.svc.StateDigest(), b.svc.StateDigest())
	assert.Len(t, a.svc.StateDigest(), 64)

	require.NoError(t, b.svc.Deposit("other", usdt(1)))
	assert.NotEqual(t, a.svc.StateDigest(), b.svc.StateDigest())
}

func TestSnapshotRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	h := newHarness(t, path)
	h.seedMembers(t)
	p, err := h.svc.ProposeActivity("tenth", "Equipment", 3*day)
	require.NoError(t, err)
	_, err = h.svc.Vote("tenth", p.ID, true)
	require.NoError(t, err)
	require.NoError(t, h.svc.AcceptAgreement("fifth"))
	require.NoError(t, h.svc.TransferOwnership(owner, "newowner"))
	digest := h.svc.StateDigest()

	restored, err := New(Config{
		Owner:      owner,
		Pool:       pool,
		Unit:       usdt(3000),
		Governance: governance.DefaultParams(),
		StatePath:  path,
	}, Deps{Stable: h.usdt.As(pool), Reward: h.blz.As(pool), Clock: h.clk})
	require.NoError(t, err)

	assert.Equal(t, digest, restored.StateDigest())
	assert.Equal(t, model.Address("newowner"), restored.Owner())
	assert.Equal(t, uint64(12), restored.TotalVotingPower())
	assert.Equal(t, uint64(3), restored.MemberCount())
	assert.True(t, restored.IsAccepted("fifth"))
	assert.Equal(t, usdt(42000).String(), restored.PoolBalance().Stable.String())

	got, err := restored.Proposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), got.ForWeight)
	assert.Equal(t, []model.Address{"tenth"}, got.Voters)

	out, err := restored.Vote("ninth", p.ID, true)
	require.NoError(t, err)
	assert.True(t, out.Accepted)
}

func TestEmptiedMemberAccountLosesMembership(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	require.NoError(t, h.svc.AddMember(owner, "fifth"))
	assert.Equal(t, uint64(4), h.svc.MemberCount())

	require.NoError(t, h.svc.DepositReward("fifth", blz(1)))
	require.NoError(t, h.svc.WithdrawReward("fifth", blz(1)))

	assert.False(t, h.svc.IsMember("fifth"))
	assert.Equal(t, uint64(3), h.svc.MemberCount())
	assert.Equal(t, uint64(12), h.svc.TotalVotingPower())
}

func TestRegulations(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, compliance.SeedDefaults(h.svc.regs))

	text, err := h.svc.Regulation(compliance.ScopeUser, compliance.DefaultUserKey)
	require.NoError(t, err)
	assert.Equal(t, compliance.DefaultUserText, text)

	text, err = h.svc.Regulation(compliance.ScopeDAO, "random")
	require.NoError(t, err)
	assert.Empty(t, text)

	events := &captured{}
	h.svc.Subscribe(events)
	before := h.svc.StateDigest()
	require.ErrorIs(t, h.svc.SetRegulation("other", compliance.ScopeDAO, "k", "v"), model.ErrUnauthorized)
	require.ErrorIs(t, h.svc.SetRegulation(owner, "bogus", "k", "v"), model.ErrInvalidScope)
	assert.Empty(t, events.types())
	assert.Equal(t, before, h.svc.StateDigest())

	require.NoError(t, h.svc.SetRegulation(owner, compliance.ScopeDAO, "k", "v"))
	assert.Equal(t, []model.EventType{model.EventRegulationUpdated}, events.types())
	assert.Equal(t, "dao/k", events.events[0].Note)

	// The previous owner loses the right once ownership moves.
	require.NoError(t, h.svc.TransferOwnership(owner, "newowner"))
	require.ErrorIs(t, h.svc.SetRegulation(owner, compliance.ScopeDAO, "k", "w"), model.ErrUnauthorized)
	text, err = h.svc.Regulation(compliance.ScopeDAO, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", text)

	_, err = h.svc.Regulation("bogus", "k")
	require.ErrorIs(t, err, model.ErrInvalidScope)
}

func TestSummary(t *testing.T) {
	h := newHarness(t, "")
	h.seedMembers(t)
	_, err := h.svc.ProposeActivity("tenth", "Equipment", 3*day)
	require.NoError(t, err)

	sum := h.svc.Summary()
	assert.Equal(t, uint64(3), sum.Members)
	assert.Equal(t, uint64(12), sum.VotingPower)
	assert.Equal(t, uint64(8), sum.RequiredWeight)
	assert.Equal(t, 1, sum.OpenProposals)
	assert.Equal(t, usdt(33000).String(), sum.Headroom.String())
	assert.Equal(t, h.svc.StateDigest(), sum.Digest)
}
