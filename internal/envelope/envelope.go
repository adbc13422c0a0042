// Package envelope implements the client side of the encrypted attachment
// scheme: splitting plaintext into fixed-size chunks, AEAD-encrypting each
// chunk and the filename with a fresh AES-256 key, and wrapping that key for
// both parties with RSA-OAEP. Building and opening are pure functions; the
// server never sees any of the plaintext handled here.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/common"
)

const (
	// ChunkSize is the fixed plaintext chunk size. The final chunk carries
	// the remainder; a zero-length file has no chunks at all.
	ChunkSize = 5 * 1024 * 1024

	// NonceSize is the AES-GCM nonce length. Every chunk and the filename
	// get their own random nonce; none is ever reused.
	NonceSize = 12

	// KeySize is the AES-256 content key length.
	KeySize = 32
)

// Role identifies which wrapped key a reader should open.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCounterparty Role = "counterparty"
)

// Chunk is one encrypted slice of the attachment content. Size is the
// ciphertext length including the AEAD tag.
type Chunk struct {
	Index      int
	Ciphertext []byte
	IV         []byte
	Size       int64
}

// Envelope is the complete encrypted form of one attachment: the chunk
// sequence, the encrypted filename, and the two wrapped copies of the
// content key. Both wrapped copies are produced at build time; there is no
// later re-wrap.
type Envelope struct {
	Chunks                 []Chunk
	EncryptedFilename      []byte
	FilenameIV             []byte
	WrappedKeyOwner        []byte
	WrappedKeyCounterparty []byte
	MimeType               string
	TotalSize              int64
	TotalChunks            int
}

// ChunkCount returns how many chunks a plaintext of the given size splits
// into. Zero bytes means zero chunks.
func ChunkCount(size int64) int {
	return int((size + ChunkSize - 1) / ChunkSize)
}

// Build encrypts fileBytes and filename under a fresh AES-256 key and wraps
// that key for both the owner and the counterparty. Any failure aborts the
// whole build; no partial envelope is returned.
func Build(fileBytes []byte, filename, mimeType string, ownerKey, counterpartyKey *rsa.PublicKey) (*Envelope, error) {
	if ownerKey == nil || counterpartyKey == nil {
		return nil, fmt.Errorf("%w: both recipient public keys are required", ErrEncryption)
	}

	key := common.GenerateRandByteArray(KeySize)
	defer common.WipeByteArray(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	encName, nameIV := seal(aead, []byte(filename))

	env := &Envelope{
		EncryptedFilename: encName,
		FilenameIV:        nameIV,
		MimeType:          mimeType,
		TotalSize:         int64(len(fileBytes)),
		TotalChunks:       ChunkCount(int64(len(fileBytes))),
	}

	for index := 0; index*ChunkSize < len(fileBytes); index++ {
		end := (index + 1) * ChunkSize
		if end > len(fileBytes) {
			end = len(fileBytes)
		}
		ciphertext, iv := seal(aead, fileBytes[index*ChunkSize:end])
		env.Chunks = append(env.Chunks, Chunk{
			Index:      index,
			Ciphertext: ciphertext,
			IV:         iv,
			Size:       int64(len(ciphertext)),
		})
	}

	if env.WrappedKeyOwner, err = WrapKey(ownerKey, key); err != nil {
		return nil, err
	}
	if env.WrappedKeyCounterparty, err = WrapKey(counterpartyKey, key); err != nil {
		return nil, err
	}

	return env, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext with a fresh random nonce and returns both.
func seal(aead cipher.AEAD, plaintext []byte) (ciphertext, nonce []byte) {
	nonce = common.GenerateRandByteArray(NonceSize)
	return aead.Seal(nil, nonce, plaintext, nil), nonce
}
