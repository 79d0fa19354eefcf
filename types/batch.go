package types

import (
	"crypto/sha256"
	"encoding/json"
)

// MessageBatch is an ordered sequence of ChainMessage submitted atomically in
// one transaction. A batch with zero messages is never eligible for
// simulation or broadcast.
type MessageBatch struct {
	// ChainID selects the target chain and its gas configuration.
	ChainID string `json:"chain_id"`
	// Messages execute in order within a single transaction.
	Messages Array[ChainMessage] `json:"messages"`
}

// NewMessageBatch builds a batch for the given chain.
func NewMessageBatch(chainID string, msgs ...ChainMessage) MessageBatch {
	return MessageBatch{
		ChainID:  chainID,
		Messages: msgs,
	}
}

// Empty reports whether the batch carries no messages.
func (b MessageBatch) Empty() bool {
	return len(b.Messages) == 0
}

// Sender returns the signing account of the batch. All messages of a batch
// share one sender; the first message is authoritative.
func (b MessageBatch) Sender() HumanAddress {
	if len(b.Messages) == 0 {
		return ""
	}
	return b.Messages[0].Sender
}

// Checksum derives the stable content key of the batch.
//
// encoding/json marshals struct fields in declaration order, so two batches
// with identical chain, message order and message content always hash to the
// same key.
func (b MessageBatch) Checksum() Checksum {
	bz, err := json.Marshal(b)
	if err != nil {
		// MessageBatch contains only marshallable fields; RawMessage payloads
		// were validated when the message was constructed.
		panic(err)
	}
	return Checksum(sha256.Sum256(bz))
}
