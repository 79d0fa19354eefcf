package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Checksum identifies the content of a message batch.
// It is the SHA-256 hash of the batch's canonical JSON encoding and keys
// simulation results so that an unchanged batch is never dry-run twice
// within the validity window.
type Checksum [ChecksumLen]byte

func (cs Checksum) String() string {
	return hex.EncodeToString(cs[:])
}

// MarshalJSON implements the json.Marshaler interface for Checksum.
// It converts the checksum to a hex-encoded string.
func (cs Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(cs[:]))
}

// UnmarshalJSON implements the json.Unmarshaler interface for Checksum.
// It parses a hex-encoded string into a checksum.
func (cs *Checksum) UnmarshalJSON(input []byte) error {
	var hexString string
	err := json.Unmarshal(input, &hexString)
	if err != nil {
		return err
	}

	data, err := hex.DecodeString(hexString)
	if err != nil {
		return err
	}
	if len(data) != ChecksumLen {
		return fmt.Errorf("got wrong number of bytes for checksum")
	}
	copy(cs[:], data)
	return nil
}

// ChecksumLen is the length of a checksum in bytes.
const ChecksumLen = 32
