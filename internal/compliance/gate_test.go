package compliance

import (
	"testing"

	"SavingsDAO/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptIsIdempotent(t *testing.T) {
	g := NewGate()
	assert.False(t, g.IsAccepted("alice"))

	assert.True(t, g.Accept("alice"))
	assert.False(t, g.Accept("alice"))
	assert.True(t, g.IsAccepted("alice"))
	assert.False(t, g.IsAccepted("bob"))
}

func TestRestoreRoundTrip(t *testing.T) {
	g := NewGate()
	g.Accept("carol")
	g.Accept("alice")

	restored := NewGate()
	restored.Restore(g.Accepted())
	assert.Equal(t, []model.Address{"alice", "carol"}, restored.Accepted())
	assert.True(t, restored.IsAccepted("carol"))
}

func TestSeedDefaultsKeepsExistingText(t *testing.T) {
	store := NewMemoryRegulations()
	require.NoError(t, store.Set(ScopeDAO, DefaultDAOKey, "custom"))
	require.NoError(t, SeedDefaults(store))

	dao, err := store.Get(ScopeDAO, DefaultDAOKey)
	require.NoError(t, err)
	assert.Equal(t, "custom", dao)

	user, err := store.Get(ScopeUser, DefaultUserKey)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserText, user)

	missing, err := store.Get(ScopeDAO, "random")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
