// Package api is the HTTP client for the attachment server. It speaks the
// same JSON wire format as the server's httpapi package and translates HTTP
// status codes back into the shared sentinel errors, so callers can use
// errors.Is on both sides of the wire.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/encodex"
	"github.com/dmitrijs2005/mailseal/internal/envelope"
	"github.com/dmitrijs2005/mailseal/internal/server/httpapi"
)

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends one JSON request and decodes the response into out (when out is
// non-nil and the response has a body).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {

	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// errorFromResponse maps an error response back to the sentinel the server
// mapped it from. The machine-readable error code decides the mapping; the
// HTTP status is the fallback for responses without one. The server message
// is carried along for display.
func errorFromResponse(resp *http.Response) error {

	var body httpapi.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	var sentinel error
	switch body.Code {
	case httpapi.CodeValidation:
		sentinel = common.ErrValidation
	case httpapi.CodeEncoding:
		sentinel = common.ErrEncoding
	case httpapi.CodeInvalidToken:
		sentinel = common.ErrInvalidToken
	case httpapi.CodeForbidden:
		sentinel = common.ErrForbidden
	case httpapi.CodeNotFound:
		sentinel = common.ErrNotFound
	case httpapi.CodeAlreadyCompleted:
		sentinel = common.ErrAlreadyCompleted
	case httpapi.CodeIncompleteUpload:
		sentinel = common.ErrIncompleteUpload
	case httpapi.CodeQuotaExceeded:
		sentinel = common.ErrQuotaExceeded
	case httpapi.CodeInternal:
		sentinel = common.ErrInternal
	default:
		sentinel = sentinelFromStatus(resp.StatusCode)
	}

	return fmt.Errorf("%w: %s", sentinel, msg)
}

// sentinelFromStatus covers error responses without a code field, such as
// ones produced by intermediary proxies.
func sentinelFromStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return common.ErrValidation
	case http.StatusUnauthorized:
		return common.ErrInvalidToken
	case http.StatusForbidden:
		return common.ErrForbidden
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		return common.ErrIncompleteUpload
	case http.StatusRequestEntityTooLarge:
		return common.ErrQuotaExceeded
	default:
		return common.ErrInternal
	}
}

// InitUpload declares a new attachment and returns its server-assigned id.
func (c *Client) InitUpload(ctx context.Context, req *httpapi.InitUploadRequest) (string, error) {
	var resp httpapi.InitUploadResponse
	if err := c.do(ctx, http.MethodPost, "/api/attachments", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) UploadChunk(ctx context.Context, id string, index int, ciphertext, iv []byte) error {
	req := &httpapi.UploadChunkRequest{
		Ciphertext: encodex.Encode(ciphertext),
		IV:         encodex.Encode(iv),
		Size:       int64(len(ciphertext)),
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/attachments/%s/chunks/%d", id, index), req, nil)
}

func (c *Client) GetStatus(ctx context.Context, id string) (*httpapi.StatusResponse, error) {
	var resp httpapi.StatusResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/attachments/%s/status", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CompleteUpload(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/attachments/%s/complete", id), nil, nil)
}

func (c *Client) GetMetadata(ctx context.Context, id string) (*httpapi.MetadataResponse, error) {
	var resp httpapi.MetadataResponse
	if err := c.do(ctx, http.MethodGet, "/api/attachments/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetChunk(ctx context.Context, id string, index int) (*httpapi.ChunkResponse, error) {
	var resp httpapi.ChunkResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/attachments/%s/chunks/%d", id, index), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/attachments/"+id, nil, nil)
}

func (c *Client) GetQuota(ctx context.Context) (*httpapi.QuotaResponse, error) {
	var resp httpapi.QuotaResponse
	if err := c.do(ctx, http.MethodGet, "/api/quota", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChunkFetcher adapts the client to the envelope opener for one attachment.
func (c *Client) ChunkFetcher(id string) envelope.ChunkFetcher {
	return envelope.ChunkFetcherFunc(func(ctx context.Context, index int) (*envelope.Chunk, error) {
		resp, err := c.GetChunk(ctx, id, index)
		if err != nil {
			return nil, err
		}
		ciphertext, err := encodex.Decode(resp.Ciphertext)
		if err != nil {
			return nil, err
		}
		iv, err := encodex.Decode(resp.IV)
		if err != nil {
			return nil, err
		}
		return &envelope.Chunk{
			Index:      resp.ChunkIndex,
			Ciphertext: ciphertext,
			IV:         iv,
			Size:       resp.Size,
		}, nil
	})
}
