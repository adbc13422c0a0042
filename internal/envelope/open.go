package envelope

import (
	"context"
	"crypto/cipher"
	"crypto/rsa"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/common"
)

// Metadata is the attachment record as fetched from the server, minus chunk
// payloads.
type Metadata struct {
	EncryptedFilename      []byte
	FilenameIV             []byte
	WrappedKeyOwner        []byte
	WrappedKeyCounterparty []byte
	MimeType               string
	TotalSize              int64
	TotalChunks            int
}

// Metadata returns the opener-side view of a freshly built envelope.
func (e *Envelope) Metadata() *Metadata {
	return &Metadata{
		EncryptedFilename:      e.EncryptedFilename,
		FilenameIV:             e.FilenameIV,
		WrappedKeyOwner:        e.WrappedKeyOwner,
		WrappedKeyCounterparty: e.WrappedKeyCounterparty,
		MimeType:               e.MimeType,
		TotalSize:              e.TotalSize,
		TotalChunks:            e.TotalChunks,
	}
}

// ChunkFetcher retrieves one encrypted chunk by index. Implementations may
// fetch over the network; Open calls it once per index in order.
type ChunkFetcher interface {
	FetchChunk(ctx context.Context, index int) (*Chunk, error)
}

// ChunkFetcherFunc adapts a function to the ChunkFetcher interface.
type ChunkFetcherFunc func(ctx context.Context, index int) (*Chunk, error)

func (f ChunkFetcherFunc) FetchChunk(ctx context.Context, index int) (*Chunk, error) {
	return f(ctx, index)
}

// Opened is the result of opening an envelope. When FilenameErr is set the
// content is still valid and Filename is empty; the caller should show a
// fallback name. Filename and content decryption are independent failure
// paths.
type Opened struct {
	Data        []byte
	Filename    string
	FilenameErr error
}

type openOptions struct {
	keyFallback bool
}

// OpenOption customizes Open.
type OpenOption func(*openOptions)

// WithKeyFallback makes Open retry the alternate wrapped key when the one
// matching the reader role fails to unwrap. This is a compatibility shim for
// legacy records whose keys were tagged with the wrong role, not a security
// control (authorization is enforced server-side). Off by default since it
// can mask genuine key-mismatch bugs.
func WithKeyFallback() OpenOption {
	return func(o *openOptions) { o.keyFallback = true }
}

// Open unwraps the content key for the given reader role, decrypts the
// filename, and fetches and decrypts all chunks in index order. Any chunk
// failure aborts reconstruction with a ChunkDecryptError naming the index.
func Open(ctx context.Context, meta *Metadata, fetcher ChunkFetcher, role Role, priv *rsa.PrivateKey, opts ...OpenOption) (*Opened, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	key, err := unwrapForRole(meta, role, priv, o.keyFallback)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}

	out := &Opened{}

	// Filename failure must not block content download.
	if len(meta.EncryptedFilename) > 0 {
		name, err := openWithIV(aead, meta.EncryptedFilename, meta.FilenameIV)
		if err != nil {
			out.FilenameErr = fmt.Errorf("filename: %w", err)
		} else {
			out.Filename = string(name)
		}
	}

	data := make([]byte, 0, meta.TotalSize)
	for index := 0; index < meta.TotalChunks; index++ {
		chunk, err := fetcher.FetchChunk(ctx, index)
		if err != nil {
			return nil, &ChunkDecryptError{Index: index, Err: err}
		}
		plaintext, err := openWithIV(aead, chunk.Ciphertext, chunk.IV)
		if err != nil {
			return nil, &ChunkDecryptError{Index: index, Err: err}
		}
		data = append(data, plaintext...)
	}
	out.Data = data

	return out, nil
}

// unwrapForRole picks the wrapped key matching the role, falling back to the
// other copy when the matching one is absent. A retry after a failed unwrap
// only happens when fallback is enabled.
func unwrapForRole(meta *Metadata, role Role, priv *rsa.PrivateKey, fallback bool) ([]byte, error) {
	primary, alternate := meta.WrappedKeyOwner, meta.WrappedKeyCounterparty
	if role == RoleCounterparty {
		primary, alternate = alternate, primary
	}
	if len(primary) == 0 {
		primary, alternate = alternate, nil
	}
	if len(primary) == 0 {
		return nil, ErrMissingKey
	}

	key, err := UnwrapKey(priv, primary)
	if err == nil {
		return key, nil
	}
	if fallback && len(alternate) > 0 {
		if key, altErr := UnwrapKey(priv, alternate); altErr == nil {
			return key, nil
		}
	}
	return nil, err
}

// openWithIV decrypts a single AEAD payload, applying the legacy-IV shim:
// IVs longer than 12 bytes are truncated to the first 12, shorter ones are
// rejected.
func openWithIV(aead cipher.AEAD, ciphertext, iv []byte) ([]byte, error) {
	if len(iv) < NonceSize {
		return nil, fmt.Errorf("iv too short: %d bytes", len(iv))
	}
	return aead.Open(nil, iv[:NonceSize], ciphertext, nil)
}
