package txpipe

import (
	"github.com/CosmWasm/txpipe/types"
)

// SignerProfile bounds batch size by signing ergonomics. Hardware wallets
// render every message on-device and impose a stricter cap than software
// wallets.
type SignerProfile string

const (
	SignerHardware SignerProfile = "hardware"
	SignerSoftware SignerProfile = "software"
)

const (
	hardwareMessageCap = 2
	softwareMessageCap = 9
)

// MessageCap returns the per-batch message cap for the profile.
func (p SignerProfile) MessageCap() int {
	if p == SignerHardware {
		return hardwareMessageCap
	}
	return softwareMessageCap
}

// Candidate is one item a message builder considers for inclusion.
type Candidate struct {
	// ID identifies the candidate for SkipSet exclusion.
	ID string
	// Msg is the message emitted if the candidate is included.
	Msg types.ChainMessage
	// Rate is an optional decimal string consulted by rate-threshold
	// predicates. Empty when no rate applies.
	Rate string
}

// IncludeFunc is the domain inclusion predicate. Candidates failing it are
// silently dropped, not reported as errors.
type IncludeFunc func(Candidate) bool

// IncludeAll admits every candidate.
func IncludeAll(Candidate) bool { return true }

// RateExceeds admits candidates whose stored rate lies more than margin below
// the reference rate, i.e. reference > candidate rate + margin.
func RateExceeds(reference, margin string) IncludeFunc {
	return func(c Candidate) bool {
		return rateExceedsBy(reference, c.Rate, margin)
	}
}

// AllocationBelow admits candidates whose current allocation (carried in
// Rate) is still below target.
func AllocationBelow(target string) IncludeFunc {
	return func(c Candidate) bool {
		return rateBelow(c.Rate, target)
	}
}

// BuildBatch assembles a batch from candidates, in order of precedence:
// the inclusion predicate, SkipSet exclusion, then the cap. Truncation at the
// cap is FIFO over the original iteration order, a deliberate
// simplicity/predictability choice over value-based ranking.
//
// BuildBatch is deterministic: the same snapshot and skip set always produce
// an identical ordered batch. There is no error path for "no eligible items";
// an empty batch means nothing to do and downstream stages treat it that way.
func BuildBatch(chainID string, candidates []Candidate, include IncludeFunc, skip types.SkipSet, limit int) types.MessageBatch {
	if include == nil {
		include = IncludeAll
	}
	msgs := make(types.Array[types.ChainMessage], 0, limit)
	for _, c := range candidates {
		if len(msgs) >= limit {
			break
		}
		if skip.Has(c.ID) {
			continue
		}
		if !include(c) {
			continue
		}
		msgs = append(msgs, c.Msg)
	}
	return types.MessageBatch{ChainID: chainID, Messages: msgs}
}
