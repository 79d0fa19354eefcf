package txpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CosmWasm/txpipe/types"
)

func TestBuildBatchDeterminism(t *testing.T) {
	candidates := testCandidates(t, 6)
	skip := types.NewSkipSet("position-2", "position-5")

	first := BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, skip, 3)
	for i := 0; i < 10; i++ {
		again := BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, skip, 3)
		require.Equal(t, first.Checksum(), again.Checksum())
		require.Equal(t, first, again)
	}
}

func TestBuildBatchCapIsFIFOPrefix(t *testing.T) {
	candidates := testCandidates(t, 9)

	batch := BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, nil, 4)
	require.Len(t, batch.Messages, 4)
	// truncation keeps the original order, no re-ranking
	for i, msg := range batch.Messages {
		assert.Equal(t, candidates[i].Msg, msg)
	}
}

func TestBuildBatchSkipBeforeCap(t *testing.T) {
	// the worked example: 5 eligible candidates, cap 2, skip candidate #3.
	// Exclusion happens before capping, so the batch is the first 2 of the
	// remaining 4 in original order.
	candidates := testCandidates(t, 5)
	skip := types.NewSkipSet("position-3")

	batch := BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, skip, 2)
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, candidates[0].Msg, batch.Messages[0])
	assert.Equal(t, candidates[1].Msg, batch.Messages[1])

	// skip a candidate inside the would-be prefix and the next eligible one
	// moves up
	batch = BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, types.NewSkipSet("position-1"), 2)
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, candidates[1].Msg, batch.Messages[0])
	assert.Equal(t, candidates[2].Msg, batch.Messages[1])
}

func TestBuildBatchSkipInvariant(t *testing.T) {
	candidates := testCandidates(t, 8)
	skip := types.NewSkipSet("position-1", "position-4", "position-8")

	batch := BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, skip, 9)
	require.Len(t, batch.Messages, 5)
	for _, c := range candidates {
		if !skip.Has(c.ID) {
			continue
		}
		for _, msg := range batch.Messages {
			assert.NotEqual(t, c.Msg, msg)
		}
	}
}

func TestBuildBatchNoEligibleItems(t *testing.T) {
	candidates := testCandidates(t, 3)

	batch := BuildBatch(TESTING_CHAIN_ID, candidates, func(Candidate) bool { return false }, nil, 9)
	require.True(t, batch.Empty())

	// an all-skipped snapshot behaves the same
	batch = BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll,
		types.NewSkipSet("position-1", "position-2", "position-3"), 9)
	require.True(t, batch.Empty())
}

func TestSignerProfileCaps(t *testing.T) {
	assert.Equal(t, 2, SignerHardware.MessageCap())
	assert.Equal(t, 9, SignerSoftware.MessageCap())
	// unknown profiles get the software cap
	assert.Equal(t, 9, SignerProfile("").MessageCap())
}

func TestRateExceeds(t *testing.T) {
	specs := map[string]struct {
		reference string
		rate      string
		margin    string
		included  bool
	}{
		"well above margin":    {"1.20", "1.00", "0.05", true},
		"exactly at margin":    {"1.05", "1.00", "0.05", false},
		"below margin":         {"1.04", "1.00", "0.05", false},
		"below stored rate":    {"0.90", "1.00", "0.05", false},
		"zero margin":          {"1.000001", "1.00", "0", true},
		"malformed rate":       {"1.20", "abc", "0.05", false},
		"malformed reference":  {"", "1.00", "0.05", false},
		"empty candidate rate": {"1.20", "", "0.05", false},
	}

	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			include := RateExceeds(spec.reference, spec.margin)
			got := include(Candidate{ID: "x", Rate: spec.rate})
			assert.Equal(t, spec.included, got)
		})
	}
}

func TestAllocationBelow(t *testing.T) {
	include := AllocationBelow("100")
	assert.True(t, include(Candidate{Rate: "99.5"}))
	assert.False(t, include(Candidate{Rate: "100"}))
	assert.False(t, include(Candidate{Rate: "150"}))
	assert.False(t, include(Candidate{Rate: "not-a-number"}))
}

func TestCompileIntents(t *testing.T) {
	intents := []types.Intent{
		{ID: "i1", Owner: "osmo1alice", Contract: TESTING_CONTRACT, PositionID: "position-1", Rate: "1.00"},
		{ID: "i2", Owner: "osmo1bob", Contract: TESTING_CONTRACT, PositionID: "position-2", Rate: "1.10"},
	}

	candidates, err := CompileIntents(TESTING_SENDER, intents)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// candidate IDs are position IDs so SkipSet exclusion works
	assert.Equal(t, "position-1", candidates[0].ID)
	assert.Equal(t, "1.00", candidates[0].Rate)
	// messages are sent by the fulfiller, addressed to the intent contract
	assert.Equal(t, types.HumanAddress(TESTING_SENDER), candidates[0].Msg.Sender)
	assert.Equal(t, types.HumanAddress(TESTING_CONTRACT), candidates[0].Msg.Contract)
	assert.Equal(t, types.KindExecute, candidates[0].Msg.Kind)
	assert.JSONEq(t, `{"fulfill_intent":{"id":"i1","position":"position-1"}}`, string(candidates[0].Msg.Msg))
}

func TestCompilePositions(t *testing.T) {
	positions := []Position{
		{ID: "p1", Allocation: "40"},
		{ID: "p2", Allocation: "120"},
	}

	candidates, err := CompilePositions(TESTING_SENDER, TESTING_CONTRACT, positions, types.NewCoin(500, "uosmo"))
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.JSONEq(t, `{"top_up":{"position":"p1"}}`, string(candidates[0].Msg.Msg))
	require.Len(t, candidates[0].Msg.Funds, 1)

	// only the under-target position survives the predicate
	batch := BuildBatch(TESTING_CHAIN_ID, candidates, AllocationBelow("100"), nil, 9)
	require.Len(t, batch.Messages, 1)
	assert.JSONEq(t, `{"top_up":{"position":"p1"}}`, string(batch.Messages[0].Msg))
}

func TestSingleMessage(t *testing.T) {
	candidates, err := SingleMessage("lock-7", TESTING_SENDER, TESTING_CONTRACT,
		map[string]any{"extend_lock": map[string]any{"id": 7}})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "lock-7", candidates[0].ID)
	assert.JSONEq(t, `{"extend_lock":{"id":7}}`, string(candidates[0].Msg.Msg))

	batch := BuildBatch(TESTING_CHAIN_ID, candidates, IncludeAll, nil, SignerHardware.MessageCap())
	require.Len(t, batch.Messages, 1)
}
