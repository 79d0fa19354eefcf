package types

import (
	"encoding/json"
	"fmt"
)

//------- Messages -------------

// MsgKind tags how a ChainMessage entered a batch. The tag is client-side
// metadata only; it is not part of what the chain executes.
type MsgKind string

const (
	// KindExecute is a plain contract execution produced by a message builder.
	KindExecute MsgKind = "execute"
	// KindVote re-applies a previously held vote after a sandwiched action.
	KindVote MsgKind = "vote"
	// KindRemoveVote clears an active vote ahead of a sandwiched action.
	KindRemoveVote MsgKind = "remove_vote"
)

// ChainMessage is a single instruction addressed to a specific contract.
// It is immutable once constructed; order within a batch is significant and
// preserved end-to-end.
type ChainMessage struct {
	// Sender is the bech32 address of the account signing the batch.
	Sender HumanAddress `json:"sender"`
	// Contract is the bech32 address of the target contract.
	Contract HumanAddress `json:"contract"`
	// Kind tags the message's origin within the pipeline.
	Kind MsgKind `json:"kind"`
	// Msg is a json-encoded execute message, passed to the contract verbatim.
	Msg json.RawMessage `json:"msg"`
	// Funds is an optional amount of coins sent along with the execution.
	Funds Array[Coin] `json:"funds"`
}

// NewExecuteMsg encodes payload as JSON and wraps it in a ChainMessage of
// KindExecute.
func NewExecuteMsg(sender, contract HumanAddress, payload any, funds ...Coin) (ChainMessage, error) {
	bz, err := json.Marshal(payload)
	if err != nil {
		return ChainMessage{}, fmt.Errorf("encode execute payload: %w", err)
	}
	return ChainMessage{
		Sender:   sender,
		Contract: contract,
		Kind:     KindExecute,
		Msg:      bz,
		Funds:    funds,
	}, nil
}

// VotePayload is the execute message understood by the voting contract.
// Exactly one of the fields is set.
type VotePayload struct {
	Vote       *VoteBody       `json:"vote,omitempty"`
	RemoveVote *RemoveVoteBody `json:"remove_vote,omitempty"`
}

// VoteBody casts (or re-casts) a vote for a single target.
type VoteBody struct {
	Target string `json:"target"`
	// Weight is a decimal string, e.g. "0.25" for 25%
	Weight string `json:"weight,omitempty"`
}

// RemoveVoteBody clears the sender's vote for a single target.
type RemoveVoteBody struct {
	Target string `json:"target"`
}

// NewVoteMsg builds a KindVote message re-applying the given vote target.
func NewVoteMsg(sender, votingContract HumanAddress, target VoteTarget) (ChainMessage, error) {
	payload := VotePayload{Vote: &VoteBody{Target: target.Target, Weight: target.Weight}}
	bz, err := json.Marshal(payload)
	if err != nil {
		return ChainMessage{}, fmt.Errorf("encode vote payload: %w", err)
	}
	return ChainMessage{
		Sender:   sender,
		Contract: votingContract,
		Kind:     KindVote,
		Msg:      bz,
		Funds:    Array[Coin]{},
	}, nil
}

// NewRemoveVoteMsg builds a KindRemoveVote message clearing the given vote target.
func NewRemoveVoteMsg(sender, votingContract HumanAddress, target VoteTarget) (ChainMessage, error) {
	payload := VotePayload{RemoveVote: &RemoveVoteBody{Target: target.Target}}
	bz, err := json.Marshal(payload)
	if err != nil {
		return ChainMessage{}, fmt.Errorf("encode remove_vote payload: %w", err)
	}
	return ChainMessage{
		Sender:   sender,
		Contract: votingContract,
		Kind:     KindRemoveVote,
		Msg:      bz,
		Funds:    Array[Coin]{},
	}, nil
}
