// Package txpipe turns application state into gas-estimated, conditionally
// reordered batches of chain messages, gates broadcast on a successful
// dry-run, and reconciles client-side caches with on-chain settlement.
//
// The protocol logic itself (collateral ratios, liquidations, AMM pricing)
// lives in deployed contracts; this package only builds the messages that
// call them.
package txpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CosmWasm/txpipe/client"
	"github.com/CosmWasm/txpipe/gasconfig"
	"github.com/CosmWasm/txpipe/invalidate"
	"github.com/CosmWasm/txpipe/observability/metrics"
	"github.com/CosmWasm/txpipe/types"
)

// ActionConfig parameterizes one action type's trip through the pipeline.
// What used to be dozens of near-duplicate closures in the dashboard is one
// configuration value per action.
type ActionConfig struct {
	// Name keys the action's invalidation scopes and metrics.
	Name string
	// ChainID selects the target chain and its gas configuration.
	ChainID string
	// Sender signs the resulting batch.
	Sender types.HumanAddress
	// Signer bounds the batch size by signing ergonomics.
	Signer SignerProfile
	// Cap overrides the signer profile's message cap when positive.
	Cap int
	// Include is the domain inclusion predicate. Nil admits everything.
	Include IncludeFunc
	// VotingContract, when set, makes the action vote-sensitive: active
	// votes against it are removed before the action and re-applied after,
	// within the same batch.
	VotingContract types.HumanAddress
	// AssumeNoConflictOnUnknownState proceeds unwrapped when the vote state
	// cannot be determined. When false (the safe default), an unknown vote
	// state blocks the action with ErrVoteStateUnknown instead of risking an
	// on-chain revert.
	AssumeNoConflictOnUnknownState bool
}

func (a ActionConfig) messageCap() int {
	if a.Cap > 0 {
		return a.Cap
	}
	return a.Signer.MessageCap()
}

// Config assembles a Pipeline's collaborators.
type Config struct {
	Querier  client.QueryClient
	Signer   client.SigningClient
	GasTable gasconfig.Table
	// Sink receives scope invalidations after settlement. Nil disables
	// invalidation (useful for one-shot tools with no read cache).
	Sink invalidate.Sink
	// SimulationTTL is the validity window of cached simulation results.
	// Zero means DefaultSimulationTTL.
	SimulationTTL time.Duration
	Logger        *slog.Logger
}

// Pipeline is the main entry point to this library: one parameterized
// instance serves every action type. Stages run strictly in sequence per
// call; concurrent calls operate on independent batches keyed by content and
// may safely overlap.
type Pipeline struct {
	querier    client.QueryClient
	gate       *Gate
	controller *Controller
	log        *slog.Logger
	metrics    *metrics.PipelineMetrics
}

// New builds a Pipeline. Querier and Signer are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Querier == nil {
		return nil, errors.New("txpipe: query client is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("txpipe: signing client is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = noopSink{}
	}

	gate := NewGate(cfg.Querier, cfg.GasTable, log, cfg.SimulationTTL)
	return &Pipeline{
		querier:    cfg.Querier,
		gate:       gate,
		controller: NewController(cfg.Signer, gate, sink, log),
		log:        log,
		metrics:    metrics.Pipeline(),
	}, nil
}

type noopSink struct{}

func (noopSink) Invalidate(invalidate.Scope) {}

// Prepare runs the message builder and, for vote-sensitive actions, the
// sandwich wrapper. An empty batch means nothing to do and is not an error;
// downstream stages refuse it separately.
func (p *Pipeline) Prepare(ctx context.Context, action ActionConfig, candidates []Candidate, skip types.SkipSet) (types.MessageBatch, error) {
	batch := BuildBatch(action.ChainID, candidates, action.Include, skip, action.messageCap())
	if batch.Empty() {
		return batch, nil
	}
	p.metrics.ObserveBatchBuilt(action.Name)

	if action.VotingContract == "" {
		return batch, nil
	}

	state, err := QueryVoteState(ctx, p.querier, action.ChainID, action.VotingContract, action.Sender)
	if err != nil {
		if action.AssumeNoConflictOnUnknownState {
			p.log.Warn("vote state unknown, proceeding unwrapped",
				"action", action.Name, "err", err.Error())
			return batch, nil
		}
		return types.MessageBatch{}, fmt.Errorf("%w: %s", types.ErrVoteStateUnknown, err.Error())
	}

	wrapped, err := WrapWithVotes(batch, state, action.Sender, action.VotingContract)
	if err != nil {
		return types.MessageBatch{}, err
	}
	if len(wrapped.Messages) > len(batch.Messages) {
		p.metrics.ObserveSandwichWrap()
		p.log.Debug("batch wrapped with vote sandwich",
			"action", action.Name, "votes", len(state.Targets))
	}
	return wrapped, nil
}

// Simulate dry-runs the batch through the gate.
func (p *Pipeline) Simulate(ctx context.Context, batch types.MessageBatch) (types.SimulationResult, error) {
	return p.gate.Simulate(ctx, batch)
}

// Broadcast submits a simulation-approved batch and reconciles caches.
func (p *Pipeline) Broadcast(ctx context.Context, action ActionConfig, batch types.MessageBatch) (*types.BroadcastResult, error) {
	return p.controller.Broadcast(ctx, action.Name, batch)
}

// ConfirmFunc lets the caller put a user confirmation between simulation and
// broadcast. Returning false abandons the run without error.
type ConfirmFunc func(batch types.MessageBatch, fee types.Fee) bool

// Run drives one full cycle: build, wrap, simulate, confirm, broadcast.
// A nil result with a nil error means there was nothing to do or the caller
// declined.
func (p *Pipeline) Run(ctx context.Context, action ActionConfig, candidates []Candidate, skip types.SkipSet, confirm ConfirmFunc) (*types.BroadcastResult, error) {
	batch, err := p.Prepare(ctx, action, candidates, skip)
	if err != nil {
		return nil, err
	}
	if batch.Empty() {
		return nil, nil
	}

	result, err := p.Simulate(ctx, batch)
	if err != nil {
		return nil, err
	}
	if !result.Passed() {
		return nil, &types.SimulationFailedError{Reason: result.Err}
	}

	if confirm != nil && !confirm(batch, result.Ok.Fee) {
		p.log.Debug("broadcast declined", "action", action.Name)
		return nil, nil
	}

	return p.Broadcast(ctx, action, batch)
}
