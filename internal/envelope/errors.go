package envelope

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrEncryption is returned when any part of building an envelope fails.
	// No partial envelope is ever produced.
	ErrEncryption = errors.New("envelope encryption failed")

	// ErrMissingKey is returned when the metadata carries no wrapped key at all.
	ErrMissingKey = errors.New("no wrapped key present")

	// ErrKeyMismatch is returned when the private key cannot unwrap any
	// available wrapped key.
	ErrKeyMismatch = errors.New("wrapped key does not match private key")
)

// ChunkDecryptError reports which chunk failed during reconstruction.
// Reconstruction aborts entirely on the first failure; no partial plaintext
// is returned.
type ChunkDecryptError struct {
	Index int
	Err   error
}

func (e *ChunkDecryptError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkDecryptError) Unwrap() error { return e.Err }
