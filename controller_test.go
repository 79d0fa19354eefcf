package txpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CosmWasm/txpipe/invalidate"
	"github.com/CosmWasm/txpipe/types"
)

func withController(t *testing.T, querier *mockQuerier, signer *mockSigner, sink invalidate.Sink) (*Controller, *Gate) {
	t.Helper()
	if sink == nil {
		sink = invalidate.NewRegistry()
	}
	gate := NewGate(querier, testGasTable(), slog.Default(), time.Hour)
	return NewController(signer, gate, sink, slog.Default()), gate
}

func TestBroadcastRequiresSimulation(t *testing.T) {
	signer := &mockSigner{}
	controller, _ := withController(t, &mockQuerier{gasUsed: 100_000}, signer, nil)

	_, err := controller.Broadcast(context.Background(), "withdraw", testBatch(t, "never simulated"))
	require.ErrorIs(t, err, types.ErrNoSimulation)
	require.Zero(t, signer.broadcastCalls)
}

func TestBroadcastRejectsStaleSimulation(t *testing.T) {
	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{}
	controller, gate := withController(t, querier, signer, nil)

	// simulate batch A, then try to broadcast batch B: its content key has
	// no result, so the broadcast is blocked locally
	_, err := gate.Simulate(context.Background(), testBatch(t, "A"))
	require.NoError(t, err)

	_, err = controller.Broadcast(context.Background(), "withdraw", testBatch(t, "B"))
	require.ErrorIs(t, err, types.ErrNoSimulation)
	require.Zero(t, signer.broadcastCalls)
}

func TestBroadcastRejectsCachedFailureLocally(t *testing.T) {
	// the worked example: simulation for key K fails with "insufficient
	// balance"; broadcasting K is rejected without a network call and
	// surfaces the same reason
	querier := &mockQuerier{simulateErr: errors.New("insufficient balance")}
	signer := &mockSigner{}
	controller, gate := withController(t, querier, signer, nil)
	batch := testBatch(t, "K")

	result, err := gate.Simulate(context.Background(), batch)
	require.NoError(t, err)
	require.False(t, result.Passed())

	_, err = controller.Broadcast(context.Background(), "withdraw", batch)
	var simErr *types.SimulationFailedError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, "insufficient balance", simErr.Reason)
	require.Zero(t, signer.broadcastCalls)
	require.Equal(t, 1, querier.simulateCalls)
}

func TestBroadcastEmptyBatch(t *testing.T) {
	signer := &mockSigner{}
	controller, _ := withController(t, &mockQuerier{gasUsed: 100_000}, signer, nil)

	_, err := controller.Broadcast(context.Background(), "withdraw", types.NewMessageBatch(TESTING_CHAIN_ID))
	require.Error(t, err)
	require.Zero(t, signer.broadcastCalls)
}

func TestBroadcastSettlementInvalidatesScopes(t *testing.T) {
	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{}
	registry := invalidate.NewRegistry()
	controller, gate := withController(t, querier, signer, registry)
	batch := testBatch(t, "x")

	_, err := gate.Simulate(context.Background(), batch)
	require.NoError(t, err)

	res, err := controller.Broadcast(context.Background(), "extend_lock", batch)
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)

	assert.True(t, registry.Stale(invalidate.ScopePositions))
	assert.True(t, registry.Stale(invalidate.ScopeVotes))
	assert.False(t, registry.Stale(invalidate.ScopeBalances))

	// the simulation is spent: a second broadcast needs a fresh cycle
	_, err = controller.Broadcast(context.Background(), "extend_lock", batch)
	require.ErrorIs(t, err, types.ErrNoSimulation)
}

func TestBroadcastFailureDiscardsSimulation(t *testing.T) {
	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{err: errors.New("account sequence mismatch, expected 42 got 41")}
	controller, gate := withController(t, querier, signer, nil)
	batch := testBatch(t, "x")

	_, err := gate.Simulate(context.Background(), batch)
	require.NoError(t, err)

	_, err = controller.Broadcast(context.Background(), "withdraw", batch)
	var bErr *types.BroadcastError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, types.CategoryRevert, bErr.Category)

	// no retry against the stale batch: the simulation is gone
	_, ok := gate.Latest(batch.Checksum())
	require.False(t, ok)
	_, err = controller.Broadcast(context.Background(), "withdraw", batch)
	require.ErrorIs(t, err, types.ErrNoSimulation)
	require.Equal(t, 1, signer.broadcastCalls)
}

func TestBroadcastConcurrentSameBatch(t *testing.T) {
	// one simulation result authorizes exactly one submission: the loser of
	// the sender-lock race finds the result already spent
	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{delay: 50 * time.Millisecond}
	controller, gate := withController(t, querier, signer, nil)
	batch := testBatch(t, "x")

	_, err := gate.Simulate(context.Background(), batch)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = controller.Broadcast(context.Background(), "withdraw", batch)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, signer.broadcastCalls)
	if errs[0] == nil {
		require.ErrorIs(t, errs[1], types.ErrNoSimulation)
	} else {
		require.ErrorIs(t, errs[0], types.ErrNoSimulation)
		require.NoError(t, errs[1])
	}
}

func TestControllerNilSink(t *testing.T) {
	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{}
	gate := NewGate(querier, testGasTable(), slog.Default(), time.Hour)
	controller := NewController(signer, gate, nil, slog.Default())
	batch := testBatch(t, "x")

	_, err := gate.Simulate(context.Background(), batch)
	require.NoError(t, err)

	res, err := controller.Broadcast(context.Background(), "withdraw", batch)
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)
}

func TestSenderLocksEvictedWhenIdle(t *testing.T) {
	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{}
	controller, gate := withController(t, querier, signer, nil)
	batch := testBatch(t, "x")

	_, err := gate.Simulate(context.Background(), batch)
	require.NoError(t, err)
	_, err = controller.Broadcast(context.Background(), "withdraw", batch)
	require.NoError(t, err)

	controller.mu.Lock()
	defer controller.mu.Unlock()
	require.Empty(t, controller.senders)
}

func TestClassify(t *testing.T) {
	specs := map[string]struct {
		err      string
		category types.ErrorCategory
	}{
		"insufficient funds": {"insufficient funds: 100uosmo < 7500uosmo", types.CategoryInsufficientFunds},
		"insufficient fee":   {"insufficient fee; got 10uosmo", types.CategoryInsufficientFunds},
		"wallet rejection":   {"Request rejected", types.CategoryRejected},
		"denied by user":     {"signing denied by user", types.CategoryRejected},
		"timeout":            {"post failed: context deadline exceeded", types.CategoryNetwork},
		"canceled":           {"Post \"http://localhost\": context canceled", types.CategoryNetwork},
		"connection refused": {"dial tcp 127.0.0.1:1317: connection refused", types.CategoryNetwork},
		"contract revert":    {"execute wasm contract failed: position would be undercollateralized", types.CategoryRevert},
		"sequence mismatch":  {"account sequence mismatch", types.CategoryRevert},
	}

	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			bErr := Classify(errors.New(spec.err))
			assert.Equal(t, spec.category, bErr.Category)
			assert.Equal(t, spec.err, bErr.Reason)
			assert.NotContains(t, bErr.Category.Message(), "panic")
		})
	}
}

// TestBroadcastGatingProperty drives random simulate/broadcast sequences and
// checks the gate invariant: the signer is reached only when the latest known
// result for the exact batch content is a success.
func TestBroadcastGatingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	querier := &mockQuerier{gasUsed: 100_000}
	signer := &mockSigner{}
	controller, gate := withController(t, querier, signer, nil)

	batches := make([]types.MessageBatch, 8)
	for i := range batches {
		batches[i] = testBatch(t, fmt.Sprintf("payload-%d", i))
	}

	expectedBroadcasts := 0
	for i := 0; i < 500; i++ {
		batch := batches[rng.Intn(len(batches))]
		if rng.Intn(2) == 0 {
			_, err := gate.Simulate(context.Background(), batch)
			require.NoError(t, err)
			continue
		}

		result, ok := gate.Latest(batch.Checksum())
		allowed := ok && result.Passed()
		if allowed {
			expectedBroadcasts++
		}

		_, err := controller.Broadcast(context.Background(), "withdraw", batch)
		if allowed {
			require.NoError(t, err)
		} else {
			require.Error(t, err)
		}
		require.Equal(t, expectedBroadcasts, signer.broadcastCalls)
	}
}
