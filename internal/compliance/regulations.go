package compliance

import (
	"fmt"
	"sync"
)

// Scope separates disclosures shown to depositors from those shown to
// DAO members.
type Scope string

const (
	ScopeUser Scope = "user"
	ScopeDAO  Scope = "dao"
)

func (s Scope) Valid() bool { return s == ScopeUser || s == ScopeDAO }

// Keys seeded at startup.
const (
	DefaultUserKey = "Securities"
	DefaultDAOKey  = "New DAO"
)

const (
	DefaultUserText = "Securities regulations govern the sale and distribution of investment products, including digital assets such as tokens. Compliance with these regulations helps protect investors and ensures fair and transparent markets."
	DefaultDAOText  = "A lock period will be initiated for an amount of $3000 for one year. All DAOs gets to share 30% of the total complete on each prize distribution. A DAO can earn more when his proposal is accepted. Before proposing a business idea within the DAO, members should conduct thorough due diligence to assess potential risks and ensure the viability of the proposal. DAO funds are at risk, and improper proposals may lead to losses for the community. Members found to have knowingly proposed fraudulent or risky ventures may face penalties, including loss of tokens or expulsion from the DAO."
)

// RegulationStore holds human-readable disclosure texts. Get returns ""
// with a nil error for an absent key.
type RegulationStore interface {
	Get(scope Scope, key string) (string, error)
	Set(scope Scope, key, text string) error
}

// SeedDefaults writes the default texts unless a text already exists
// under the default keys.
func SeedDefaults(store RegulationStore) error {
	defaults := []struct {
		scope Scope
		key   string
		text  string
	}{
		{ScopeUser, DefaultUserKey, DefaultUserText},
		{ScopeDAO, DefaultDAOKey, DefaultDAOText},
	}
	for _, d := range defaults {
		existing, err := store.Get(d.scope, d.key)
		if err != nil {
			return fmt.Errorf("read %s regulation %q: %w", d.scope, d.key, err)
		}
		if existing != "" {
			continue
		}
		if err := store.Set(d.scope, d.key, d.text); err != nil {
			return fmt.Errorf("seed %s regulation %q: %w", d.scope, d.key, err)
		}
	}
	return nil
}

// MemoryRegulations is a map-backed RegulationStore.
type MemoryRegulations struct {
	mu    sync.RWMutex
	texts map[Scope]map[string]string
}

func NewMemoryRegulations() *MemoryRegulations {
	return &MemoryRegulations{texts: make(map[Scope]map[string]string)}
}

func (m *MemoryRegulations) Get(scope Scope, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.texts[scope][key], nil
}

func (m *MemoryRegulations) Set(scope Scope, key, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.texts[scope] == nil {
		m.texts[scope] = make(map[string]string)
	}
	m.texts[scope][key] = text
	return nil
}
