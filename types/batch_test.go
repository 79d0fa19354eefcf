package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumStableForIdenticalContent(t *testing.T) {
	msg, err := NewExecuteMsg("osmo1sender", "osmo1contract",
		map[string]any{"withdraw": map[string]string{"position": "p1"}},
		NewCoin(100, "uosmo"))
	require.NoError(t, err)

	a := NewMessageBatch("osmosis-1", msg)
	b := NewMessageBatch("osmosis-1", msg)
	require.Equal(t, a.Checksum(), b.Checksum())
	require.Equal(t, a.Checksum().String(), b.Checksum().String())
}

func TestChecksumChangesWithContent(t *testing.T) {
	m1, err := NewExecuteMsg("osmo1sender", "osmo1contract", map[string]string{"a": "1"})
	require.NoError(t, err)
	m2, err := NewExecuteMsg("osmo1sender", "osmo1contract", map[string]string{"a": "2"})
	require.NoError(t, err)

	base := NewMessageBatch("osmosis-1", m1)
	assert.NotEqual(t, base.Checksum(), NewMessageBatch("osmosis-1", m2).Checksum())
	// a different chain is different content
	assert.NotEqual(t, base.Checksum(), NewMessageBatch("neutron-1", m1).Checksum())
	// order is significant
	assert.NotEqual(t,
		NewMessageBatch("osmosis-1", m1, m2).Checksum(),
		NewMessageBatch("osmosis-1", m2, m1).Checksum())
}

func TestBatchSender(t *testing.T) {
	assert.Equal(t, "", NewMessageBatch("osmosis-1").Sender())

	msg, err := NewExecuteMsg("osmo1alice", "osmo1contract", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, HumanAddress("osmo1alice"), NewMessageBatch("osmosis-1", msg).Sender())
}

func TestVotePayloadEncoding(t *testing.T) {
	target := VoteTarget{Target: "gauge-1", Weight: "0.25"}

	vote, err := NewVoteMsg("osmo1sender", "osmo1voting", target)
	require.NoError(t, err)
	assert.Equal(t, KindVote, vote.Kind)
	assert.JSONEq(t, `{"vote":{"target":"gauge-1","weight":"0.25"}}`, string(vote.Msg))

	remove, err := NewRemoveVoteMsg("osmo1sender", "osmo1voting", target)
	require.NoError(t, err)
	assert.Equal(t, KindRemoveVote, remove.Kind)
	assert.JSONEq(t, `{"remove_vote":{"target":"gauge-1"}}`, string(remove.Msg))

	// zero-weight votes omit the weight
	vote, err = NewVoteMsg("osmo1sender", "osmo1voting", VoteTarget{Target: "gauge-2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"vote":{"target":"gauge-2"}}`, string(vote.Msg))
}

func TestArrayJSON(t *testing.T) {
	// nil funds must serialize as "[]", contracts reject null vectors
	msg := ChainMessage{Sender: "a", Contract: "b", Kind: KindExecute, Msg: []byte(`{}`)}
	bz, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(bz), `"funds":[]`)

	var arr Array[Coin]
	require.NoError(t, json.Unmarshal([]byte("null"), &arr))
	assert.NotNil(t, arr)
	assert.Len(t, arr, 0)
}

func TestSkipSet(t *testing.T) {
	skip := NewSkipSet("p1", "p3")
	assert.True(t, skip.Has("p1"))
	assert.False(t, skip.Has("p2"))

	var empty SkipSet
	assert.False(t, empty.Has("p1"))
}

func TestSimulationResultPassed(t *testing.T) {
	assert.False(t, SimulationResult{}.Passed())
	assert.False(t, SimulationResult{Err: "boom"}.Passed())
	assert.True(t, SimulationResult{Ok: &SimulationSuccess{}}.Passed())
}

func TestBroadcastErrorMessages(t *testing.T) {
	err := &BroadcastError{Category: CategoryRevert, Reason: "position undercollateralized"}
	assert.Contains(t, err.Error(), "position undercollateralized")

	// non-revert categories keep the raw reason out of the user message
	err = &BroadcastError{Category: CategoryNetwork, Reason: "dial tcp: connection refused"}
	assert.NotContains(t, err.Error(), "dial tcp")
}
