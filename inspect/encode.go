package inspect

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so equal snapshots always encode
// to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("inspect: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a snapshot to CBOR bytes.
func Marshal(s *ProgramSnapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a snapshot from CBOR bytes.
func Unmarshal(data []byte) (*ProgramSnapshot, error) {
	var s ProgramSnapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("inspect: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
