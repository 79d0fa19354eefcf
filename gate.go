package txpipe

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/CosmWasm/txpipe/client"
	"github.com/CosmWasm/txpipe/gasconfig"
	"github.com/CosmWasm/txpipe/observability/metrics"
	"github.com/CosmWasm/txpipe/types"
)

const (
	// DefaultSimulationTTL is how long a simulation result stays valid for an
	// unchanged batch. Within the window, repeated calls answer from cache
	// instead of re-triggering network dry-runs.
	DefaultSimulationTTL = 30 * time.Second

	simulationCacheSize = 128
)

// Gate dry-runs batches and keys the results by batch content. A batch that
// fails simulation is never eligible for broadcast; a batch that passes
// carries the buffered fee that must be attached when broadcasting.
type Gate struct {
	querier client.QueryClient
	gas     gasconfig.Table
	log     *slog.Logger
	metrics *metrics.PipelineMetrics

	cache *expirable.LRU[string, types.SimulationResult]
	group singleflight.Group
}

// NewGate builds a gate with the given validity window. A zero ttl falls back
// to DefaultSimulationTTL.
func NewGate(querier client.QueryClient, gas gasconfig.Table, log *slog.Logger, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultSimulationTTL
	}
	return &Gate{
		querier: querier,
		gas:     gas,
		log:     log,
		metrics: metrics.Pipeline(),
		cache:   expirable.NewLRU[string, types.SimulationResult](simulationCacheSize, nil, ttl),
	}
}

// Simulate dry-runs the batch, answering from the content-keyed cache while
// the previous result is still within the validity window. Failures are
// cached too: a batch known to revert is rejected locally until its content
// changes or the window lapses.
//
// An empty batch returns ErrNothingToSimulate without touching the network.
func (g *Gate) Simulate(ctx context.Context, batch types.MessageBatch) (types.SimulationResult, error) {
	if batch.Empty() {
		return types.SimulationResult{}, types.ErrNothingToSimulate
	}

	chainGas, err := g.gas.For(batch.ChainID)
	if err != nil {
		return types.SimulationResult{}, err
	}

	key := batch.Checksum().String()
	if result, ok := g.cache.Get(key); ok {
		g.metrics.ObserveSimulationCacheHit()
		return result, nil
	}

	// Concurrent pipeline runs over identical content share one dry-run.
	v, err, _ := g.group.Do(key, func() (any, error) {
		return g.dryRun(ctx, batch, chainGas, key), nil
	})
	if err != nil {
		return types.SimulationResult{}, err
	}
	return v.(types.SimulationResult), nil
}

func (g *Gate) dryRun(ctx context.Context, batch types.MessageBatch, chainGas gasconfig.ChainGas, key string) types.SimulationResult {
	var result types.SimulationResult

	gasInfo, err := g.querier.Simulate(ctx, batch)
	switch {
	case err != nil:
		// The chain-reported reason goes to the caller verbatim. No retry: a
		// failing simulation usually means a logically invalid batch.
		result = types.SimulationResult{Err: err.Error()}
		g.log.Info("simulation failed", "chain", batch.ChainID, "key", key, "reason", err.Error())
	default:
		fee, feeErr := chainGas.FeeFor(gasInfo.GasUsed)
		if feeErr != nil {
			result = types.SimulationResult{Err: feeErr.Error()}
		} else {
			result = types.SimulationResult{Ok: &types.SimulationSuccess{Gas: *gasInfo, Fee: fee}}
			g.log.Debug("simulation passed",
				"chain", batch.ChainID, "key", key,
				"gas_used", gasInfo.GasUsed, "fee", fee.Amount.Amount+fee.Amount.Denom)
		}
	}

	var gasUsed uint64
	if gasInfo != nil {
		gasUsed = gasInfo.GasUsed
	}
	g.metrics.ObserveSimulation(batch.ChainID, result.Passed(), gasUsed)

	g.cache.Add(key, result)
	return result
}

// Latest returns the cached result for the content key, if one is still
// within the validity window.
func (g *Gate) Latest(key types.Checksum) (types.SimulationResult, bool) {
	return g.cache.Get(key.String())
}

// Discard drops the cached result for the content key. The controller calls
// this after any broadcast so the next attempt recomputes from fresh state.
func (g *Gate) Discard(key types.Checksum) {
	g.cache.Remove(key.String())
}
