package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMinterCountsPerUser(t *testing.T) {
	m := NewLogMinter()
	require.NoError(t, m.Mint("alice"))
	require.NoError(t, m.Mint("bob"))
	require.NoError(t, m.Mint("alice"))

	assert.Equal(t, 2, m.Count("alice"))
	assert.Equal(t, 1, m.Count("bob"))
	assert.Equal(t, 0, m.Count("carol"))
	assert.Equal(t, 3, m.Total())
}
