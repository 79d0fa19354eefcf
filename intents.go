package txpipe

import (
	"fmt"

	"github.com/CosmWasm/txpipe/types"
)

// fulfillPayload is the execute message sent to the intent contract when an
// intent's condition is met.
type fulfillPayload struct {
	FulfillIntent struct {
		ID       string `json:"id"`
		Position string `json:"position"`
	} `json:"fulfill_intent"`
}

// CompileIntents turns intents into builder candidates. Each candidate's ID
// is the intent's position ID, so SkipSet entries can exclude individually
// broken positions. Eligibility is not decided here; pair the result with a
// RateExceeds predicate in BuildBatch.
//
// The sender of the emitted messages is the fulfilling account, not the
// intent owner: anyone may trigger a fulfillment, the contract settles with
// the owner.
func CompileIntents(sender types.HumanAddress, intents []types.Intent) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(intents))
	for _, intent := range intents {
		var payload fulfillPayload
		payload.FulfillIntent.ID = intent.ID
		payload.FulfillIntent.Position = intent.PositionID

		msg, err := types.NewExecuteMsg(sender, intent.Contract, payload)
		if err != nil {
			return nil, fmt.Errorf("compile intent %s: %w", intent.ID, err)
		}
		candidates = append(candidates, Candidate{
			ID:   intent.PositionID,
			Msg:  msg,
			Rate: intent.Rate,
		})
	}
	return candidates, nil
}

// Position is a snapshot of one on-chain position considered for an
// allocation top-up.
type Position struct {
	ID string `json:"id"`
	// Allocation is the position's current allocation as a decimal string.
	Allocation string `json:"allocation"`
}

// topUpPayload tops up a single position's allocation.
type topUpPayload struct {
	TopUp struct {
		Position string `json:"position"`
	} `json:"top_up"`
}

// CompilePositions turns position snapshots into top-up candidates, one
// message per position. Pair with an AllocationBelow predicate so only
// under-target positions are included.
func CompilePositions(sender, contract types.HumanAddress, positions []Position, funds ...types.Coin) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(positions))
	for _, pos := range positions {
		var payload topUpPayload
		payload.TopUp.Position = pos.ID

		msg, err := types.NewExecuteMsg(sender, contract, payload, funds...)
		if err != nil {
			return nil, fmt.Errorf("compile position %s: %w", pos.ID, err)
		}
		candidates = append(candidates, Candidate{
			ID:   pos.ID,
			Msg:  msg,
			Rate: pos.Allocation,
		})
	}
	return candidates, nil
}

// SingleMessage wraps one prebuilt message as the sole candidate of an
// action, e.g. a withdraw or lock extension.
func SingleMessage(id string, sender, contract types.HumanAddress, payload any, funds ...types.Coin) ([]Candidate, error) {
	msg, err := types.NewExecuteMsg(sender, contract, payload, funds...)
	if err != nil {
		return nil, err
	}
	return []Candidate{{ID: id, Msg: msg}}, nil
}
