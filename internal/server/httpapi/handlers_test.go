package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/encodex"
	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/access"
	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/auth"
	"github.com/dmitrijs2005/mailseal/internal/server/messages"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"
const testQuotaLimit = int64(1) << 30

type fixture struct {
	handler  http.Handler
	messages *messages.InMemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	attachRepo := attachments.NewInMemoryRepository()
	quotaRepo := quota.NewInMemoryRepository(testQuotaLimit)
	msgRepo := messages.NewInMemoryRepository()

	qs := quota.NewService(quotaRepo, logger)
	guard := access.NewGuard(msgRepo)
	as := attachments.NewService(attachRepo, qs, guard, logger)

	srv, err := NewServer(":0", logger, as, qs, testSecret)
	require.NoError(t, err)

	return &fixture{handler: srv.Handler(), messages: msgRepo}
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *fixture) do(t *testing.T, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) *T {
	t.Helper()
	v := new(T)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	return v
}

func (f *fixture) initUpload(t *testing.T, authHeader string, req *InitUploadRequest) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/attachments", authHeader, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[InitUploadResponse](t, rec)
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "init", resp.Status)
	require.Equal(t, req.TotalChunks, resp.TotalChunks)
	return resp.ID
}

func (f *fixture) uploadChunk(t *testing.T, authHeader, id string, index int, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	iv := bytes.Repeat([]byte{0x24}, 12)
	return f.do(t, http.MethodPut, fmt.Sprintf("/api/attachments/%s/chunks/%d", id, index), authHeader, &UploadChunkRequest{
		Ciphertext: encodex.Encode(payload),
		IV:         encodex.Encode(iv),
		Size:       int64(len(payload)),
	})
}

func TestAuth_MissingOrInvalidToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/quota", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/quota", "Bearer not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/quota", "Basic dXNlcg==", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := bearerFor(t, "alice")

	payload0 := []byte("first chunk ciphertext")
	payload1 := []byte("second chunk ciphertext")
	totalSize := int64(len(payload0) + len(payload1))

	id := f.initUpload(t, owner, &InitUploadRequest{
		TotalSize:   totalSize,
		TotalChunks: 2,
		MimeType:    "application/pdf",
	})

	// resume view before any chunk
	rec := f.do(t, http.MethodGet, "/api/attachments/"+id+"/status", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[StatusResponse](t, rec)
	assert.Equal(t, "init", status.Status)
	assert.Equal(t, 2, status.TotalChunks)
	assert.Empty(t, status.UploadedIndices)

	// completing early must fail
	rec = f.do(t, http.MethodPost, "/api/attachments/"+id+"/complete", owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeIncompleteUpload, decodeBody[ErrorResponse](t, rec).Code)

	rec = f.uploadChunk(t, owner, id, 0, payload0)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = f.uploadChunk(t, owner, id, 1, payload1)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/attachments/"+id+"/status", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeBody[StatusResponse](t, rec)
	assert.Equal(t, "uploading", status.Status)
	assert.ElementsMatch(t, []int{0, 1}, status.UploadedIndices)

	rec = f.do(t, http.MethodPost, "/api/attachments/"+id+"/complete", owner, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// uploads after completion are rejected
	rec = f.uploadChunk(t, owner, id, 0, payload0)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeAlreadyCompleted, decodeBody[ErrorResponse](t, rec).Code)

	// chunk readback round-trips the ciphertext
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id+"/chunks/1", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chunk := decodeBody[ChunkResponse](t, rec)
	assert.Equal(t, 1, chunk.ChunkIndex)
	assert.Equal(t, encodex.Encode(payload1), chunk.Ciphertext)
	assert.Equal(t, int64(len(payload1)), chunk.Size)

	rec = f.do(t, http.MethodGet, "/api/attachments/"+id, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	meta := decodeBody[MetadataResponse](t, rec)
	assert.Equal(t, "completed", meta.Status)
	assert.Equal(t, "alice", meta.OwnerID)
	assert.Equal(t, totalSize, meta.TotalSize)
	assert.Equal(t, "application/pdf", meta.MimeType)

	// quota reflects the reservation
	rec = f.do(t, http.MethodGet, "/api/quota", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decodeBody[QuotaResponse](t, rec)
	assert.Equal(t, totalSize, q.UsedBytes)
	assert.Equal(t, testQuotaLimit, q.LimitBytes)

	rec = f.do(t, http.MethodDelete, "/api/attachments/"+id, owner, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/attachments/"+id, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/quota", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	q = decodeBody[QuotaResponse](t, rec)
	assert.Equal(t, int64(0), q.UsedBytes)
}

func TestInitUpload_Validation(t *testing.T) {
	f := newFixture(t)
	owner := bearerFor(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/attachments", owner, &InitUploadRequest{TotalSize: 0, TotalChunks: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/attachments", owner, &InitUploadRequest{TotalSize: 100, TotalChunks: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed base64 in an envelope field
	rec = f.do(t, http.MethodPost, "/api/attachments", owner, &InitUploadRequest{
		TotalSize: 100, TotalChunks: 1, WrappedKeyOwner: "%%%not-base64%%%",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// body that is not JSON at all
	req := httptest.NewRequest(http.MethodPost, "/api/attachments", bytes.NewReader([]byte("{nope")))
	req.Header.Set("Authorization", owner)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadChunk_Validation(t *testing.T) {
	f := newFixture(t)
	owner := bearerFor(t, "alice")

	id := f.initUpload(t, owner, &InitUploadRequest{TotalSize: 1024, TotalChunks: 1})

	// non-numeric index
	rec := f.do(t, http.MethodPut, "/api/attachments/"+id+"/chunks/one", owner, &UploadChunkRequest{
		Ciphertext: encodex.Encode([]byte("x")), IV: encodex.Encode(bytes.Repeat([]byte{1}, 12)), Size: 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed base64 ciphertext
	rec = f.do(t, http.MethodPut, "/api/attachments/"+id+"/chunks/0", owner, &UploadChunkRequest{
		Ciphertext: "***", IV: encodex.Encode(bytes.Repeat([]byte{1}, 12)), Size: 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// empty ciphertext
	rec = f.do(t, http.MethodPut, "/api/attachments/"+id+"/chunks/0", owner, &UploadChunkRequest{
		Ciphertext: "", IV: encodex.Encode(bytes.Repeat([]byte{1}, 12)), Size: 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// declared size disagrees with payload
	rec = f.do(t, http.MethodPut, "/api/attachments/"+id+"/chunks/0", owner, &UploadChunkRequest{
		Ciphertext: encodex.Encode([]byte("payload")), IV: encodex.Encode(bytes.Repeat([]byte{1}, 12)), Size: 999,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown attachment
	rec = f.uploadChunk(t, owner, "no-such-id", 0, []byte("payload"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccessControl(t *testing.T) {
	f := newFixture(t)
	owner := bearerFor(t, "alice")
	counterparty := bearerFor(t, "bob")
	stranger := bearerFor(t, "mallory")

	payload := []byte("ciphertext")
	id := f.initUpload(t, owner, &InitUploadRequest{TotalSize: int64(len(payload)), TotalChunks: 1})
	rec := f.uploadChunk(t, owner, id, 0, payload)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/attachments/"+id+"/complete", owner, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// nobody but the owner can read yet
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id, counterparty, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.messages.Add(messages.Message{
		ID: "m1", SenderID: "alice", RecipientID: "bob", AttachmentIDs: []string{id},
	})

	// linked counterparty can read metadata and chunks
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id, counterparty, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id+"/chunks/0", counterparty, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// but the upload-side endpoints stay owner-only
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id+"/status", counterparty, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/attachments/"+id, counterparty, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a stranger gets nothing
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/attachments/"+id+"/chunks/0", stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	owner := bearerFor(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/attachments", owner, &InitUploadRequest{
		TotalSize: testQuotaLimit, TotalChunks: 205, MimeType: "application/zip",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/attachments", owner, &InitUploadRequest{TotalSize: 1, TotalChunks: 1})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeQuotaExceeded, decodeBody[ErrorResponse](t, rec).Code)
}
