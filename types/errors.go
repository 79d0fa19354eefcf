package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToSimulate is returned when an empty batch reaches the
	// simulation gate. It is distinct from a failing simulation: there is
	// simply nothing to do.
	ErrNothingToSimulate = errors.New("nothing to simulate: batch is empty")

	// ErrVoteStateUnknown is returned when a vote-sensitive action cannot
	// determine the account's vote state. The pipeline blocks ("not ready")
	// rather than guessing, because proceeding unwrapped while votes are
	// active would revert on-chain.
	ErrVoteStateUnknown = errors.New("vote state unknown: action is not ready")

	// ErrNoSimulation is returned when broadcast is attempted without a
	// current simulation for the batch's content key. Editing a batch changes
	// its key, so an edited batch surfaces this until re-simulated.
	ErrNoSimulation = errors.New("no current simulation result for batch")

	// ErrUnknownChain is returned when no gas configuration exists for the
	// batch's chain.
	ErrUnknownChain = errors.New("no gas configuration for chain")
)

// SimulationFailedError reports a dry-run the chain rejected. Reason carries
// the chain-reported revert reason verbatim.
type SimulationFailedError struct {
	Reason string
}

var _ error = (*SimulationFailedError)(nil)

func (e *SimulationFailedError) Error() string {
	return "simulation failed: " + e.Reason
}

// ErrorCategory is the small set of user-facing broadcast failure classes.
type ErrorCategory string

const (
	CategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	CategoryRejected          ErrorCategory = "rejected_by_user"
	CategoryRevert            ErrorCategory = "contract_revert"
	CategoryNetwork           ErrorCategory = "network"
)

// Message returns the concise user-facing text for the category.
func (c ErrorCategory) Message() string {
	switch c {
	case CategoryInsufficientFunds:
		return "insufficient funds to pay for the transaction"
	case CategoryRejected:
		return "transaction rejected in wallet"
	case CategoryRevert:
		return "transaction failed on-chain"
	case CategoryNetwork:
		return "network error, transaction status unknown"
	default:
		return "transaction failed"
	}
}

// BroadcastError classifies a failed broadcast into one user-facing category.
// Reason keeps the underlying detail for logs; user surfaces show
// Category.Message() plus the revert reason for CategoryRevert.
type BroadcastError struct {
	Category ErrorCategory
	Reason   string
}

var _ error = (*BroadcastError)(nil)

func (e *BroadcastError) Error() string {
	if e.Category == CategoryRevert && e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Category.Message(), e.Reason)
	}
	return e.Category.Message()
}
