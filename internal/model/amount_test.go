package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaled(t *testing.T) {
	assert.Equal(t, "3000000000", Scaled(3000, 6).String())
	assert.Equal(t, "100000000000000000000000", Scaled(100_000, 18).String())
}

func TestAddDetectsOverflow(t *testing.T) {
	ceiling := MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	_, ok := ceiling.Add(NewAmount(1))
	assert.False(t, ok)

	sum, ok := NewAmount(2).Add(NewAmount(3))
	require.True(t, ok)
	assert.True(t, sum.Eq(NewAmount(5)))
}

func TestSubFloorsAtZero(t *testing.T) {
	assert.True(t, NewAmount(3).Sub(NewAmount(5)).IsZero())
	assert.True(t, NewAmount(5).Sub(NewAmount(3)).Eq(NewAmount(2)))
}

func TestMulDivFloors(t *testing.T) {
	total := Scaled(100_000, 18)
	out, ok := total.MulDiv(NewAmount(500), NewAmount(800))
	require.True(t, ok)
	assert.True(t, out.Eq(Scaled(62_500, 18)))

	out, ok = NewAmount(10).MulDiv(NewAmount(1), NewAmount(3))
	require.True(t, ok)
	assert.True(t, out.Eq(NewAmount(3)))

	_, ok = NewAmount(10).MulDiv(NewAmount(1), NewAmount(0))
	assert.False(t, ok)
}

func TestAmountJSONIsDecimalString(t *testing.T) {
	data, err := json.Marshal(struct {
		A Amount `json:"a"`
	}{Scaled(62_500, 18)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"62500000000000000000000"}`, string(data))

	var back struct {
		A Amount `json:"a"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.A.Eq(Scaled(62_500, 18)))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"-1"}`), &back))
}

func TestProposalCloneDoesNotShareVoters(t *testing.T) {
	p := Proposal{ID: 1, Voters: []Address{"a"}}
	cp := p.Clone()
	cp.Voters[0] = "b"
	assert.True(t, p.HasVoted("a"))
	assert.False(t, p.HasVoted("b"))
}
