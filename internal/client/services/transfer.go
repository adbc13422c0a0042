// Package services implements the client-side attachment workflows on top
// of the API client: sealing a file into an envelope and uploading it chunk
// by chunk, resuming interrupted uploads, and downloading and opening
// received attachments.
package services

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/client/api"
	"github.com/dmitrijs2005/mailseal/internal/encodex"
	"github.com/dmitrijs2005/mailseal/internal/envelope"
	"github.com/dmitrijs2005/mailseal/internal/server/httpapi"
)

type TransferService struct {
	api *api.Client
}

func NewTransferService(c *api.Client) *TransferService {
	return &TransferService{api: c}
}

// UploadResult identifies a finished upload.
type UploadResult struct {
	ID          string
	TotalChunks int
	TotalSize   int64
}

// Upload seals the file client-side and pushes it to the server: init,
// every chunk, then complete. The server never sees plaintext or an
// unwrapped key.
func (s *TransferService) Upload(ctx context.Context, data []byte, filename, mimeType string, ownerKey, counterpartyKey *rsa.PublicKey) (*UploadResult, error) {

	env, err := envelope.Build(data, filename, mimeType, ownerKey, counterpartyKey)
	if err != nil {
		return nil, fmt.Errorf("error building envelope: %w", err)
	}

	id, err := s.api.InitUpload(ctx, &httpapi.InitUploadRequest{
		TotalSize:              env.TotalSize,
		TotalChunks:            env.TotalChunks,
		MimeType:               env.MimeType,
		EncryptedFilename:      encodex.Encode(env.EncryptedFilename),
		FilenameIV:             encodex.Encode(env.FilenameIV),
		WrappedKeyOwner:        encodex.Encode(env.WrappedKeyOwner),
		WrappedKeyCounterparty: encodex.Encode(env.WrappedKeyCounterparty),
	})
	if err != nil {
		return nil, err
	}

	if err := s.uploadMissing(ctx, id, env); err != nil {
		return nil, err
	}

	if err := s.api.CompleteUpload(ctx, id); err != nil {
		return nil, err
	}

	return &UploadResult{ID: id, TotalChunks: env.TotalChunks, TotalSize: env.TotalSize}, nil
}

// ResumeUpload finishes an interrupted upload of a previously built
// envelope. The same envelope must be reused: chunks already on the server
// are sealed under its content key, and the server never overwrites them.
func (s *TransferService) ResumeUpload(ctx context.Context, id string, env *envelope.Envelope) error {

	if err := s.uploadMissing(ctx, id, env); err != nil {
		return err
	}
	return s.api.CompleteUpload(ctx, id)
}

// uploadMissing consults the server's resume view and uploads only the
// chunks it does not have yet.
func (s *TransferService) uploadMissing(ctx context.Context, id string, env *envelope.Envelope) error {

	status, err := s.api.GetStatus(ctx, id)
	if err != nil {
		return err
	}

	uploaded := make(map[int]struct{}, len(status.UploadedIndices))
	for _, i := range status.UploadedIndices {
		uploaded[i] = struct{}{}
	}

	for _, chunk := range env.Chunks {
		if _, ok := uploaded[chunk.Index]; ok {
			continue
		}
		if err := s.api.UploadChunk(ctx, id, chunk.Index, chunk.Ciphertext, chunk.IV); err != nil {
			return fmt.Errorf("error uploading chunk %d: %w", chunk.Index, err)
		}
	}
	return nil
}

// Download fetches the metadata and all chunks and opens the envelope for
// the given reader role.
func (s *TransferService) Download(ctx context.Context, id string, role envelope.Role, priv *rsa.PrivateKey, opts ...envelope.OpenOption) (*envelope.Opened, error) {

	resp, err := s.api.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	meta, err := metadataFromResponse(resp)
	if err != nil {
		return nil, err
	}

	return envelope.Open(ctx, meta, s.api.ChunkFetcher(id), role, priv, opts...)
}

func metadataFromResponse(resp *httpapi.MetadataResponse) (*envelope.Metadata, error) {

	meta := &envelope.Metadata{
		MimeType:    resp.MimeType,
		TotalSize:   resp.TotalSize,
		TotalChunks: resp.TotalChunks,
	}

	var err error
	if resp.EncryptedFilename != "" {
		if meta.EncryptedFilename, err = encodex.Decode(resp.EncryptedFilename); err != nil {
			return nil, err
		}
	}
	if resp.FilenameIV != "" {
		if meta.FilenameIV, err = encodex.Decode(resp.FilenameIV); err != nil {
			return nil, err
		}
	}
	if resp.WrappedKeyOwner != "" {
		if meta.WrappedKeyOwner, err = encodex.Decode(resp.WrappedKeyOwner); err != nil {
			return nil, err
		}
	}
	if resp.WrappedKeyCounterparty != "" {
		if meta.WrappedKeyCounterparty, err = encodex.Decode(resp.WrappedKeyCounterparty); err != nil {
			return nil, err
		}
	}
	return meta, nil
}
