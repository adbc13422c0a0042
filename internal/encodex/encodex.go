// Package encodex holds the binary-safe text encoding used for ciphertext
// and IV fields on the wire. Everything binary crosses the API base64-encoded
// and is validated strictly before it is persisted.
package encodex

import (
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/common"
)

// Encode renders raw bytes in the wire encoding.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode parses a wire-encoded binary field. Malformed input is a client
// error and is reported as common.ErrEncoding, never silently coerced.
func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncoding, err)
	}
	return b, nil
}

// DecodeNonEmpty is Decode plus a rejection of empty payloads, for fields
// like chunk ciphertext and IV where an empty value is never valid.
func DecodeNonEmpty(s string) ([]byte, error) {
	b, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty binary field", common.ErrValidation)
	}
	return b, nil
}
