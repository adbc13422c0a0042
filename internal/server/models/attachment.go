// Package models defines server-side data models persisted in the database.
package models

import "time"

// AttachmentStatus is the lifecycle state of an attachment upload.
// Transitions are monotonic: Init -> Uploading -> Completed, never backward.
type AttachmentStatus string

const (
	// StatusInit is the state right after initUpload, before any chunk.
	StatusInit AttachmentStatus = "init"
	// StatusUploading means at least one chunk has been accepted.
	StatusUploading AttachmentStatus = "uploading"
	// StatusCompleted means the owner confirmed all chunks are present.
	// Terminal: no transition leaves it.
	StatusCompleted AttachmentStatus = "completed"
)

const (
	// MaxAttachmentSize caps declared attachment size at 1 GiB.
	MaxAttachmentSize = int64(1) << 30
)

// Attachment is the server-side record of one encrypted attachment. The
// server stores only ciphertext: content key material arrives pre-wrapped by
// the client and is never unwrapped here. The two wrapped copies are set
// once at creation and never updated.
type Attachment struct {
	ID          string
	OwnerID     string
	Status      AttachmentStatus
	TotalSize   int64
	TotalChunks int

	EncryptedFilename      []byte
	FilenameIV             []byte
	WrappedKeyOwner        []byte
	WrappedKeyCounterparty []byte
	MimeType               string

	// QuotaReserved is set exactly once at creation and cleared exactly
	// once when the reservation is released (delete or reap).
	QuotaReserved bool
	Deleted       bool
	CreatedAt     time.Time
}
