package txpipe

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/CosmWasm/txpipe/client"
	"github.com/CosmWasm/txpipe/invalidate"
	"github.com/CosmWasm/txpipe/observability/metrics"
	"github.com/CosmWasm/txpipe/types"
)

// Controller submits simulation-approved batches and reconciles cached state
// afterward. It never retries a failed broadcast; retry is a fresh
// user-initiated cycle through the whole pipeline.
type Controller struct {
	signer  client.SigningClient
	gate    *Gate
	sink    invalidate.Sink
	log     *slog.Logger
	metrics *metrics.PipelineMetrics

	// Broadcasts are serialized per sender. Two batches racing out of one
	// account would trip the chain's sequence numbers, so the second waits.
	mu      sync.Mutex
	senders map[types.HumanAddress]*senderLock
}

// NewController wires the signer, the gate whose verdicts it enforces, and
// the invalidation sink notified after settlement. A nil sink disables
// invalidation.
func NewController(signer client.SigningClient, gate *Gate, sink invalidate.Sink, log *slog.Logger) *Controller {
	if sink == nil {
		sink = noopSink{}
	}
	return &Controller{
		signer:  signer,
		gate:    gate,
		sink:    sink,
		log:     log,
		metrics: metrics.Pipeline(),
		senders: make(map[types.HumanAddress]*senderLock),
	}
}

// Broadcast submits the batch, provided the latest simulation for its exact
// content key is a success. A stale, absent or failed simulation blocks the
// broadcast locally, without a network call; a cached failure re-surfaces the
// original reason.
//
// On success the enumerated scopes for the action are invalidated. On any
// failure the cached simulation is discarded, forcing the next attempt to
// rebuild from fresh state.
func (c *Controller) Broadcast(ctx context.Context, action string, batch types.MessageBatch) (*types.BroadcastResult, error) {
	if batch.Empty() {
		return nil, types.ErrNoSimulation
	}

	key := batch.Checksum()

	unlock := c.lockSender(batch.Sender())
	defer unlock()

	// Checked under the sender lock: a concurrent broadcast of the same batch
	// discards the simulation before releasing, so one result never authorizes
	// two submissions.
	result, ok := c.gate.Latest(key)
	if !ok {
		return nil, types.ErrNoSimulation
	}
	if !result.Passed() {
		return nil, &types.SimulationFailedError{Reason: result.Err}
	}

	res, err := c.signer.Broadcast(ctx, batch, result.Ok.Fee)
	c.metrics.ObserveBroadcast(batch.ChainID, err)

	// The batch and its simulation are spent either way. A failed broadcast
	// must not be retried against the stale batch; a settled one changed the
	// state the simulation was computed from.
	c.gate.Discard(key)

	if err != nil {
		bErr := Classify(err)
		c.metrics.ObserveBroadcastError(string(bErr.Category))
		c.log.Warn("broadcast failed",
			"action", action, "chain", batch.ChainID,
			"category", string(bErr.Category), "reason", bErr.Reason)
		return nil, bErr
	}

	c.log.Info("broadcast settled",
		"action", action, "chain", batch.ChainID, "tx_hash", res.TxHash)

	for _, scope := range invalidate.ScopesForAction(action) {
		c.sink.Invalidate(scope)
		c.metrics.ObserveInvalidation(string(scope))
	}

	return res, nil
}

// senderLock serializes broadcasts for one sender. The refcount lets idle
// entries be evicted so the map stays bounded by in-flight senders, not by
// every account ever seen.
type senderLock struct {
	mu   sync.Mutex
	refs int
}

func (c *Controller) lockSender(sender types.HumanAddress) func() {
	c.mu.Lock()
	l, ok := c.senders[sender]
	if !ok {
		l = &senderLock{}
		c.senders[sender] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.senders, sender)
		}
		c.mu.Unlock()
	}
}

// Classify converts any broadcast failure into one of the user-facing
// categories. The boundary here is the single point that turns raw
// chain/wallet errors into something a UI may show.
func Classify(err error) *types.BroadcastError {
	if bErr, ok := err.(*types.BroadcastError); ok {
		return bErr
	}

	reason := err.Error()
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "insufficient funds"),
		strings.Contains(lower, "insufficient fee"):
		return &types.BroadcastError{Category: types.CategoryInsufficientFunds, Reason: reason}
	case strings.Contains(lower, "request rejected"),
		strings.Contains(lower, "denied by user"),
		strings.Contains(lower, "rejected by user"):
		return &types.BroadcastError{Category: types.CategoryRejected, Reason: reason}
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"),
		strings.Contains(lower, "context canceled"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"):
		return &types.BroadcastError{Category: types.CategoryNetwork, Reason: reason}
	default:
		// Post-simulation reverts (including sequence mismatches) land here;
		// the reason is the chain's own words.
		return &types.BroadcastError{Category: types.CategoryRevert, Reason: reason}
	}
}
