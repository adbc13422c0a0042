// Package chunkstore abstracts where chunk ciphertext bytes live. By
// default they sit in the chunks table; an S3-compatible store (MinIO) can
// be plugged in instead, keeping only chunk metadata in the database.
// Either way the bytes are opaque ciphertext; no presigned URLs are ever
// handed to clients.
package chunkstore

import "context"

type Store interface {
	// Put stores the ciphertext for one chunk.
	Put(ctx context.Context, attachmentID string, index int, ciphertext []byte) error

	// Get returns the ciphertext for one chunk.
	Get(ctx context.Context, attachmentID string, index int) ([]byte, error)

	// DeleteAll removes every stored chunk of the attachment.
	DeleteAll(ctx context.Context, attachmentID string) error
}
