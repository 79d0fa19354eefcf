// Package client defines the chain RPC boundary the pipeline talks through.
// The contract side is a black box: queries and dry-runs are side-effect-free,
// broadcasts are submitted exactly once by the underlying signer.
package client

import (
	"context"

	"github.com/CosmWasm/txpipe/types"
)

// QueryClient performs read-only chain calls. Implementations must be
// idempotent and side-effect free.
type QueryClient interface {
	// SmartQuery runs a contract smart query and decodes the JSON response
	// into result.
	SmartQuery(ctx context.Context, chainID string, contract types.HumanAddress, query any, result any) error

	// Simulate dry-runs the batch. A chain-rejected batch returns a nil
	// GasInfo and an error carrying the revert reason.
	Simulate(ctx context.Context, batch types.MessageBatch) (*types.GasInfo, error)
}

// SigningClient signs and submits a batch. Exactly-once submission semantics
// are the signer's responsibility; the pipeline performs no internal dedup.
type SigningClient interface {
	Broadcast(ctx context.Context, batch types.MessageBatch, fee types.Fee) (*types.BroadcastResult, error)
}
