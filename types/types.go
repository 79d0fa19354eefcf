// Package types provides core types used throughout the txpipe package.
package types

import (
	"encoding/json"
	"strconv"
)

// HumanAddress is a printable (typically bech32 encoded) address string. Just use it as a label for developers.
type HumanAddress = string

// Coin is a string representation of the sdk.Coin type (more portable than sdk.Int)
type Coin struct {
	Denom  string `json:"denom"`  // type, eg. "OSMO"
	Amount string `json:"amount"` // string encoding of an integer amount in base units, eg. "120000"
}

func NewCoin(amount uint64, denom string) Coin {
	return Coin{
		Denom:  denom,
		Amount: strconv.FormatUint(amount, 10),
	}
}

// Array is a wrapper around a slice that ensures that we get "[]" JSON for nil values.
// When unmarshalling, we get an empty slice for "[]" and "null".
//
// This is needed for fields that are "Vec<C>" on the contract side because `null`
// values will result in an error there.
type Array[C any] []C

// MarshalJSON ensures that we get "[]" for nil arrays
func (a Array[C]) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	var raw []C = a
	return json.Marshal(raw)
}

// UnmarshalJSON ensures that we get an empty slice for "[]" and "null"
func (a *Array[C]) UnmarshalJSON(data []byte) error {
	var raw []C
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// make sure we deserialize [] back to empty slice
	if len(raw) == 0 {
		raw = []C{}
	}
	*a = raw
	return nil
}

// SkipSet is a caller-supplied set of candidate identifiers to exclude from
// message generation. It lets a caller work around items that are individually
// known to fail on-chain without discarding the rest of the batch.
type SkipSet map[string]struct{}

// NewSkipSet builds a SkipSet from the given identifiers.
func NewSkipSet(ids ...string) SkipSet {
	s := make(SkipSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is excluded.
func (s SkipSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
