// Package intentstore persists wallet-signed intents for replay. The pipeline
// only reads records; intents change on-chain solely through broadcast
// messages the contract processes.
package intentstore

import (
	"errors"
	"fmt"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/google/uuid"
	"github.com/shamaton/msgpack/v2"

	"github.com/CosmWasm/txpipe/types"
)

// ErrNotFound is returned when no intent exists under the given owner and ID.
var ErrNotFound = errors.New("intent not found")

// Store keeps signed intents in a key-value database, keyed by owner then
// intent ID so one owner's set iterates contiguously.
type Store struct {
	db dbm.DB
}

// New wraps an open database. The caller owns the database lifecycle.
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// NewIntentID mints a fresh intent identifier.
func NewIntentID() string {
	return uuid.NewString()
}

// record is the persisted encoding of a SignedIntent.
type record struct {
	ID         string `msgpack:"id"`
	Owner      string `msgpack:"owner"`
	Contract   string `msgpack:"contract"`
	PositionID string `msgpack:"position_id"`
	Rate       string `msgpack:"rate"`
	Msg        []byte `msgpack:"msg"`
	Signature  []byte `msgpack:"signature"`
	CreatedAt  int64  `msgpack:"created_at"`
}

func toRecord(si types.SignedIntent) record {
	return record{
		ID:         si.Intent.ID,
		Owner:      si.Intent.Owner,
		Contract:   si.Intent.Contract,
		PositionID: si.Intent.PositionID,
		Rate:       si.Intent.Rate,
		Msg:        si.Intent.Msg,
		Signature:  si.Signature,
		CreatedAt:  si.CreatedAt.Unix(),
	}
}

func fromRecord(r record) types.SignedIntent {
	return types.SignedIntent{
		Intent: types.Intent{
			ID:         r.ID,
			Owner:      r.Owner,
			Contract:   r.Contract,
			PositionID: r.PositionID,
			Rate:       r.Rate,
			Msg:        r.Msg,
		},
		Signature: r.Signature,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}

func intentKey(owner, id string) []byte {
	return []byte(fmt.Sprintf("intent/%s/%s", owner, id))
}

func ownerPrefix(owner string) []byte {
	return []byte(fmt.Sprintf("intent/%s/", owner))
}

// Put stores the signed intent, overwriting any previous version.
func (s *Store) Put(si types.SignedIntent) error {
	if si.Intent.ID == "" || si.Intent.Owner == "" {
		return errors.New("intent must carry an ID and an owner")
	}
	bz, err := msgpack.Marshal(toRecord(si))
	if err != nil {
		return fmt.Errorf("encode intent %s: %w", si.Intent.ID, err)
	}
	return s.db.SetSync(intentKey(si.Intent.Owner, si.Intent.ID), bz)
}

// Get loads one intent.
func (s *Store) Get(owner, id string) (types.SignedIntent, error) {
	bz, err := s.db.Get(intentKey(owner, id))
	if err != nil {
		return types.SignedIntent{}, err
	}
	if bz == nil {
		return types.SignedIntent{}, ErrNotFound
	}
	var r record
	if err := msgpack.Unmarshal(bz, &r); err != nil {
		return types.SignedIntent{}, fmt.Errorf("decode intent %s: %w", id, err)
	}
	return fromRecord(r), nil
}

// ListByOwner returns all of an owner's intents in key order.
func (s *Store) ListByOwner(owner string) ([]types.SignedIntent, error) {
	prefix := ownerPrefix(owner)
	it, err := s.db.Iterator(prefix, prefixEnd(prefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var intents []types.SignedIntent
	for ; it.Valid(); it.Next() {
		var r record
		if err := msgpack.Unmarshal(it.Value(), &r); err != nil {
			return nil, fmt.Errorf("decode intent at %s: %w", it.Key(), err)
		}
		intents = append(intents, fromRecord(r))
	}
	return intents, it.Error()
}

// Delete removes one intent. Deleting a missing intent is a no-op.
func (s *Store) Delete(owner, id string) error {
	return s.db.DeleteSync(intentKey(owner, id))
}

// prefixEnd returns the smallest key greater than every key with the prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
