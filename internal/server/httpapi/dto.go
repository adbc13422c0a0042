package httpapi

import (
	"time"

	"github.com/dmitrijs2005/mailseal/internal/encodex"
	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

// Binary fields in all DTOs are base64 strings (encodex wire encoding).

type InitUploadRequest struct {
	TotalSize              int64  `json:"total_size"`
	TotalChunks            int    `json:"total_chunks"`
	MimeType               string `json:"mime_type,omitempty"`
	EncryptedFilename      string `json:"encrypted_filename,omitempty"`
	FilenameIV             string `json:"filename_iv,omitempty"`
	WrappedKeyOwner        string `json:"wrapped_key_owner,omitempty"`
	WrappedKeyCounterparty string `json:"wrapped_key_counterparty,omitempty"`
}

type InitUploadResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	TotalChunks int    `json:"total_chunks"`
}

type UploadChunkRequest struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Size       int64  `json:"size"`
}

type StatusResponse struct {
	Status          string `json:"status"`
	TotalChunks     int    `json:"total_chunks"`
	UploadedIndices []int  `json:"uploaded_indices"`
}

type ChunkResponse struct {
	ChunkIndex int    `json:"chunk_index"`
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Size       int64  `json:"size"`
}

type MetadataResponse struct {
	ID                     string    `json:"id"`
	OwnerID                string    `json:"owner_id"`
	Status                 string    `json:"status"`
	TotalSize              int64     `json:"total_size"`
	TotalChunks            int       `json:"total_chunks"`
	MimeType               string    `json:"mime_type,omitempty"`
	EncryptedFilename      string    `json:"encrypted_filename,omitempty"`
	FilenameIV             string    `json:"filename_iv,omitempty"`
	WrappedKeyOwner        string    `json:"wrapped_key_owner,omitempty"`
	WrappedKeyCounterparty string    `json:"wrapped_key_counterparty,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

type QuotaResponse struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"`
}

// Error codes carried in ErrorResponse.Code. Clients map on these, not on
// the human-readable message.
const (
	CodeValidation       = "validation"
	CodeEncoding         = "encoding"
	CodeInvalidToken     = "invalid_token"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeAlreadyCompleted = "already_completed"
	CodeIncompleteUpload = "incomplete_upload"
	CodeQuotaExceeded    = "quota_exceeded"
	CodeInternal         = "internal"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// toInitParams decodes the optional envelope fields. Empty strings stay nil;
// malformed base64 is a client error.
func (r *InitUploadRequest) toInitParams() (attachments.InitParams, error) {
	p := attachments.InitParams{
		TotalSize:   r.TotalSize,
		TotalChunks: r.TotalChunks,
		MimeType:    r.MimeType,
	}

	var err error
	if r.EncryptedFilename != "" {
		if p.EncryptedFilename, err = encodex.Decode(r.EncryptedFilename); err != nil {
			return p, err
		}
	}
	if r.FilenameIV != "" {
		if p.FilenameIV, err = encodex.Decode(r.FilenameIV); err != nil {
			return p, err
		}
	}
	if r.WrappedKeyOwner != "" {
		if p.WrappedKeyOwner, err = encodex.Decode(r.WrappedKeyOwner); err != nil {
			return p, err
		}
	}
	if r.WrappedKeyCounterparty != "" {
		if p.WrappedKeyCounterparty, err = encodex.Decode(r.WrappedKeyCounterparty); err != nil {
			return p, err
		}
	}
	return p, nil
}

func metadataToResponse(a *models.Attachment) *MetadataResponse {
	resp := &MetadataResponse{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Status:      string(a.Status),
		TotalSize:   a.TotalSize,
		TotalChunks: a.TotalChunks,
		MimeType:    a.MimeType,
		CreatedAt:   a.CreatedAt,
	}
	if len(a.EncryptedFilename) > 0 {
		resp.EncryptedFilename = encodex.Encode(a.EncryptedFilename)
	}
	if len(a.FilenameIV) > 0 {
		resp.FilenameIV = encodex.Encode(a.FilenameIV)
	}
	if len(a.WrappedKeyOwner) > 0 {
		resp.WrappedKeyOwner = encodex.Encode(a.WrappedKeyOwner)
	}
	if len(a.WrappedKeyCounterparty) > 0 {
		resp.WrappedKeyCounterparty = encodex.Encode(a.WrappedKeyCounterparty)
	}
	return resp
}

func chunkToResponse(c *models.Chunk) *ChunkResponse {
	return &ChunkResponse{
		ChunkIndex: c.ChunkIndex,
		Ciphertext: encodex.Encode(c.Ciphertext),
		IV:         encodex.Encode(c.IV),
		Size:       c.Size,
	}
}
