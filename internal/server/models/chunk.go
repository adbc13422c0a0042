package models

// Chunk is one stored ciphertext slice of an attachment. ChunkIndex is
// unique per attachment; a chunk is written once and never overwritten.
type Chunk struct {
	ID           string
	AttachmentID string
	ChunkIndex   int
	Ciphertext   []byte
	IV           []byte
	Size         int64
}
