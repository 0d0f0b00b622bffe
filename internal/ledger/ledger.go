package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"SavingsDAO/internal/model"
	"SavingsDAO/internal/token"
)

// Ledger owns per-user balances, tier weights and the pool's holdings
// of both assets. Every operation validates fully before moving tokens
// and mutates state only after the transfer succeeded.
//
// Ledger is not safe for concurrent use; the dao service serializes access.
type Ledger struct {
	unit   model.Amount
	pool   model.Address
	stable token.Token
	reward token.Token

	accounts map[model.Address]*model.UserAccount
	balance  model.PoolBalance
	// allocated is the part of balance.Reward credited to user accounts.
	allocated model.Amount
}

// New creates an empty ledger. unit is the stable amount worth one tier
// weight; stable and reward are bound to the pool address.
func New(unit model.Amount, pool model.Address, stable, reward token.Token) *Ledger {
	return &Ledger{
		unit:     unit,
		pool:     pool,
		stable:   stable,
		reward:   reward,
		accounts: make(map[model.Address]*model.UserAccount),
	}
}

// WeightChange reports how an operation moved a user's tier weight.
type WeightChange struct {
	User   model.Address
	Before uint64
	After  uint64
	// Member is the membership flag before the operation.
	Member bool
	// Reset is set when both balances reached zero and the account was
	// cleared, membership included.
	Reset bool
}

// BecameEligible reports a 0 -> >=1 weight transition.
func (c WeightChange) BecameEligible() bool { return c.Before == 0 && c.After >= 1 }

// Credit is one recipient's share of an airdrop.
type Credit struct {
	User   model.Address
	Amount model.Amount
}

func (l *Ledger) Unit() model.Amount { return l.unit }

func (l *Ledger) Pool() model.PoolBalance { return l.balance }

// UnallocatedReward is reward held by the pool but not credited to anyone.
func (l *Ledger) UnallocatedReward() model.Amount {
	return l.balance.Reward.Sub(l.allocated)
}

// Balance returns a copy of user's account; unknown users get an empty one.
func (l *Ledger) Balance(user model.Address) model.UserAccount {
	if acct, ok := l.accounts[user]; ok {
		return *acct
	}
	return model.UserAccount{Address: user}
}

func (l *Ledger) Weight(user model.Address) uint64 {
	if acct, ok := l.accounts[user]; ok {
		return acct.TierWeight
	}
	return 0
}

func (l *Ledger) IsMember(user model.Address) bool {
	acct, ok := l.accounts[user]
	return ok && acct.IsMember
}

// Deposit pulls amount of the stable asset from user into the pool.
func (l *Ledger) Deposit(user model.Address, amount model.Amount) (WeightChange, error) {
	if amount.IsZero() {
		return WeightChange{}, model.ErrInvalidAmount
	}
	acct := l.Balance(user)
	newBalance, ok := acct.StableBalance.Add(amount)
	if !ok {
		return WeightChange{}, model.ErrAmountOverflow
	}
	newPool, ok := l.balance.Stable.Add(amount)
	if !ok {
		return WeightChange{}, model.ErrAmountOverflow
	}
	if err := l.stable.TransferFrom(user, l.pool, amount); err != nil {
		return WeightChange{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}

	change := WeightChange{User: user, Before: acct.TierWeight, Member: acct.IsMember}
	acct.StableBalance = newBalance
	acct.TierWeight = l.tierWeight(newBalance)
	change.After = acct.TierWeight
	l.balance.Stable = newPool
	l.store(acct)
	return change, nil
}

// DepositReward pulls amount of the reward asset from user into the pool.
func (l *Ledger) DepositReward(user model.Address, amount model.Amount) error {
	if amount.IsZero() {
		return model.ErrInvalidAmount
	}
	acct := l.Balance(user)
	newBalance, ok := acct.RewardBalance.Add(amount)
	if !ok {
		return model.ErrAmountOverflow
	}
	newPool, ok := l.balance.Reward.Add(amount)
	if !ok {
		return model.ErrAmountOverflow
	}
	newAllocated, ok := l.allocated.Add(amount)
	if !ok {
		return model.ErrAmountOverflow
	}
	if err := l.reward.TransferFrom(user, l.pool, amount); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	acct.RewardBalance = newBalance
	l.balance.Reward = newPool
	l.allocated = newAllocated
	l.store(acct)
	return nil
}

// Withdraw sends amount of the user's stable balance back to them.
// A member must keep at least one unit deposited until they forfeit.
func (l *Ledger) Withdraw(user model.Address, amount model.Amount) (WeightChange, error) {
	if amount.IsZero() {
		return WeightChange{}, model.ErrInvalidAmount
	}
	acct := l.Balance(user)
	if amount.Gt(acct.StableBalance) {
		return WeightChange{}, model.ErrInsufficientBalance
	}
	remaining := acct.StableBalance.Sub(amount)
	if acct.IsMember && remaining.Lt(l.unit) {
		return WeightChange{}, model.ErrMembershipLockViolation
	}
	if amount.Gt(l.balance.Stable) {
		return WeightChange{}, fmt.Errorf("%w: pool holds %s", model.ErrInsufficientBalance, l.balance.Stable)
	}
	if err := l.stable.Transfer(user, amount); err != nil {
		return WeightChange{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}

	change := WeightChange{User: user, Before: acct.TierWeight, Member: acct.IsMember}
	acct.StableBalance = remaining
	acct.TierWeight = l.tierWeight(remaining)
	change.After = acct.TierWeight
	l.balance.Stable = l.balance.Stable.Sub(amount)
	change.Reset = l.store(acct)
	return change, nil
}

// WithdrawReward sends amount of the user's reward balance back to them.
func (l *Ledger) WithdrawReward(user model.Address, amount model.Amount) (WeightChange, error) {
	if amount.IsZero() {
		return WeightChange{}, model.ErrInvalidAmount
	}
	acct := l.Balance(user)
	if amount.Gt(acct.RewardBalance) {
		return WeightChange{}, model.ErrInsufficientBalance
	}
	if err := l.reward.Transfer(user, amount); err != nil {
		return WeightChange{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}

	change := WeightChange{User: user, Before: acct.TierWeight, After: acct.TierWeight, Member: acct.IsMember}
	acct.RewardBalance = acct.RewardBalance.Sub(amount)
	l.balance.Reward = l.balance.Reward.Sub(amount)
	l.allocated = l.allocated.Sub(amount)
	change.Reset = l.store(acct)
	return change, nil
}

// FundRewards pulls reward tokens from `from` into the pool without
// crediting any account. Airdrops draw from these funds.
func (l *Ledger) FundRewards(from model.Address, amount model.Amount) error {
	if amount.IsZero() {
		return model.ErrInvalidAmount
	}
	newPool, ok := l.balance.Reward.Add(amount)
	if !ok {
		return model.ErrAmountOverflow
	}
	if err := l.reward.TransferFrom(from, l.pool, amount); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	l.balance.Reward = newPool
	return nil
}

// DistributeAirdrop credits each recipient floor(total * b_i / sum(b)),
// where b is the recipient's current stable balance. Duplicate
// recipients count once. The rounding remainder stays unallocated.
func (l *Ledger) DistributeAirdrop(total model.Amount, recipients []model.Address) ([]Credit, error) {
	if total.IsZero() {
		return nil, model.ErrInvalidAmount
	}
	seen := make(map[model.Address]bool, len(recipients))
	unique := make([]model.Address, 0, len(recipients))
	var sum model.Amount
	for _, r := range recipients {
		if seen[r] {
			continue
		}
		seen[r] = true
		unique = append(unique, r)
		var ok bool
		sum, ok = sum.Add(l.Balance(r).StableBalance)
		if !ok {
			return nil, model.ErrAmountOverflow
		}
	}
	if sum.IsZero() {
		return nil, model.ErrEmptyRecipientSet
	}

	credits := make([]Credit, 0, len(unique))
	var distributed model.Amount
	for _, r := range unique {
		gain, ok := total.MulDiv(l.Balance(r).StableBalance, sum)
		if !ok {
			return nil, model.ErrAmountOverflow
		}
		if gain.IsZero() {
			continue
		}
		if _, ok := l.Balance(r).RewardBalance.Add(gain); !ok {
			return nil, model.ErrAmountOverflow
		}
		distributed, _ = distributed.Add(gain)
		credits = append(credits, Credit{User: r, Amount: gain})
	}
	if distributed.Gt(l.UnallocatedReward()) {
		return nil, fmt.Errorf("%w: airdrop needs %s reward, pool has %s unallocated",
			model.ErrInsufficientBalance, distributed, l.UnallocatedReward())
	}

	for _, c := range credits {
		acct := l.accounts[c.User]
		acct.RewardBalance, _ = acct.RewardBalance.Add(c.Amount)
	}
	l.allocated, _ = l.allocated.Add(distributed)
	return credits, nil
}

// Payout sends amount of pooled stable funds to `to` without touching
// any user balance. Used for treasury draws.
func (l *Ledger) Payout(to model.Address, amount model.Amount) error {
	if amount.IsZero() {
		return model.ErrInvalidAmount
	}
	if amount.Gt(l.balance.Stable) {
		return model.ErrInsufficientBalance
	}
	if err := l.stable.Transfer(to, amount); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	l.balance.Stable = l.balance.Stable.Sub(amount)
	return nil
}

// Refund pulls amount of the stable asset from `from` back into the pool.
func (l *Ledger) Refund(from model.Address, amount model.Amount) error {
	if amount.IsZero() {
		return model.ErrInvalidAmount
	}
	newPool, ok := l.balance.Stable.Add(amount)
	if !ok {
		return model.ErrAmountOverflow
	}
	if err := l.stable.TransferFrom(from, l.pool, amount); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	l.balance.Stable = newPool
	return nil
}

// SetMembership flips the membership flag and lock expiry. Granting
// membership to a user without deposits creates their account.
func (l *Ledger) SetMembership(user model.Address, member bool, lockExpiry time.Time) {
	acct := l.Balance(user)
	acct.IsMember = member
	acct.MembershipLockExpiry = lockExpiry
	if !member {
		acct.MembershipLockExpiry = time.Time{}
	}
	if member || l.accounts[user] != nil {
		l.accounts[user] = &acct
	}
}

// Accounts lists every account in address order.
func (l *Ledger) Accounts() []model.UserAccount {
	out := make([]model.UserAccount, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, *acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Members lists member accounts in address order.
func (l *Ledger) Members() []model.UserAccount {
	var out []model.UserAccount
	for _, acct := range l.Accounts() {
		if acct.IsMember {
			out = append(out, acct)
		}
	}
	return out
}

// Allocated returns the reward credited to accounts.
func (l *Ledger) Allocated() model.Amount { return l.allocated }

// Restore replaces ledger state, used when loading a snapshot. Tier
// weights are recomputed from balances.
func (l *Ledger) Restore(accounts []model.UserAccount, pool model.PoolBalance, allocated model.Amount) {
	l.accounts = make(map[model.Address]*model.UserAccount, len(accounts))
	for i := range accounts {
		acct := accounts[i]
		acct.TierWeight = l.tierWeight(acct.StableBalance)
		l.accounts[acct.Address] = &acct
	}
	l.balance = pool
	l.allocated = allocated
}

// store saves acct, or drops it when both balances are zero. It reports
// whether an existing account was reset.
func (l *Ledger) store(acct model.UserAccount) bool {
	if acct.IsEmpty() {
		_, existed := l.accounts[acct.Address]
		delete(l.accounts, acct.Address)
		return existed
	}
	l.accounts[acct.Address] = &acct
	return false
}

func (l *Ledger) tierWeight(balance model.Amount) uint64 {
	if l.unit.IsZero() {
		return 0
	}
	w, ok := balance.Quo(l.unit).Uint64()
	if !ok {
		return math.MaxUint64
	}
	return w
}
