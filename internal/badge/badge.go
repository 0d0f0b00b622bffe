package badge

import (
	"log"
	"sync"

	"SavingsDAO/internal/model"
)

// Minter issues the membership badge. Mint is fire-and-forget from the
// caller's point of view: a failure is the minter's concern and never
// rolls back a membership grant.
type Minter interface {
	Mint(user model.Address) error
}

// LogMinter records badges in memory and logs each mint. Token ids
// start at 1 and increase with every mint.
type LogMinter struct {
	mu     sync.Mutex
	nextID uint64
	owners map[uint64]model.Address
}

func NewLogMinter() *LogMinter {
	return &LogMinter{nextID: 1, owners: make(map[uint64]model.Address)}
}

func (m *LogMinter) Mint(user model.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.owners[id] = user
	log.Printf("[INFO] membership badge #%d minted for %s", id, user)
	return nil
}

// Count returns how many badges a user holds.
func (m *LogMinter) Count(user model.Address) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, owner := range m.owners {
		if owner == user {
			n++
		}
	}
	return n
}

// Total returns the number of badges minted.
func (m *LogMinter) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owners)
}
