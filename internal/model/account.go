package model

import (
	"strings"
	"time"
)

// Address identifies a user, the pool or the owner.
type Address string

func (a Address) String() string { return string(a) }

// IsZero reports an empty address.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

// UserAccount is a depositor's position in the pool.
type UserAccount struct {
	Address              Address   `cbor:"address" json:"address"`
	StableBalance        Amount    `cbor:"stable" json:"stable_balance"`
	RewardBalance        Amount    `cbor:"reward" json:"reward_balance"`
	TierWeight           uint64    `cbor:"weight" json:"tier_weight"`
	IsMember             bool      `cbor:"member" json:"is_member"`
	MembershipLockExpiry time.Time `cbor:"lock_expiry" json:"membership_lock_expiry"`
}

// IsEmpty reports whether both balances are zero.
func (u *UserAccount) IsEmpty() bool {
	return u.StableBalance.IsZero() && u.RewardBalance.IsZero()
}

// PoolBalance is the pool's holdings of each asset.
type PoolBalance struct {
	Stable Amount `cbor:"stable" json:"stable"`
	Reward Amount `cbor:"reward" json:"reward"`
}
