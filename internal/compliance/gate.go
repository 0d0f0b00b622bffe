package compliance

import (
	"sort"

	"SavingsDAO/internal/model"
)

// Gate tracks agreement acceptance. A record is write-once-true: once a
// user accepts, the flag never reverts.
//
// Gate is not safe for concurrent use; the dao service serializes access.
type Gate struct {
	accepted map[model.Address]bool
}

func NewGate() *Gate {
	return &Gate{accepted: make(map[model.Address]bool)}
}

// Accept records acceptance for user. It reports whether this call
// flipped the flag; repeated calls are no-ops.
func (g *Gate) Accept(user model.Address) bool {
	if g.accepted[user] {
		return false
	}
	g.accepted[user] = true
	return true
}

func (g *Gate) IsAccepted(user model.Address) bool {
	return g.accepted[user]
}

// Accepted lists accepting users in address order.
func (g *Gate) Accepted() []model.Address {
	out := make([]model.Address, 0, len(g.accepted))
	for addr := range g.accepted {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Restore replaces the gate's records, used when loading a snapshot.
func (g *Gate) Restore(users []model.Address) {
	g.accepted = make(map[model.Address]bool, len(users))
	for _, u := range users {
		g.accepted[u] = true
	}
}
