package types

import (
	"encoding/json"
	"time"
)

// Intent is a conditional instruction to act once a condition is met, e.g.
// "fulfill my conversion once the reference rate exceeds mine by more than
// the yield margin". Intents are owned by the account that created them; the
// pipeline only reads them and compiles them into messages. Mutation happens
// solely through a broadcast message the contract itself processes.
type Intent struct {
	// ID uniquely identifies the intent within its owner's set.
	ID string `json:"id"`
	// Owner is the account the intent belongs to.
	Owner HumanAddress `json:"owner"`
	// Contract is the contract that processes the fulfillment.
	Contract HumanAddress `json:"contract"`
	// PositionID names the on-chain position the intent acts on. It is the
	// identifier matched against a SkipSet.
	PositionID string `json:"position_id"`
	// Rate is the intent's stored conversion rate as a decimal string.
	Rate string `json:"rate"`
	// Msg is the json-encoded execute payload replayed on fulfillment.
	Msg json.RawMessage `json:"msg"`
}

// SignedIntent is an intent signed once by its owner's wallet and persisted
// off the hot path for replay.
type SignedIntent struct {
	Intent    Intent    `json:"intent"`
	Signature []byte    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}
