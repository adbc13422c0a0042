package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/encodex"
)

// writeJSON serializes v with the given status. Encoding failures at this
// point are logged only; the header is already out.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "response encoding error", "error", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, &ErrorResponse{Error: msg, Code: code})
}

// writeError maps service errors to HTTP status codes and error codes.
// Anything unmapped is a 500 with a generic body; the real error stays
// server-side.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrEncoding):
		s.writeJSONError(w, http.StatusBadRequest, CodeEncoding, err.Error())
	case errors.Is(err, common.ErrValidation):
		s.writeJSONError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, common.ErrInvalidToken):
		s.writeJSONError(w, http.StatusUnauthorized, CodeInvalidToken, "invalid token")
	case errors.Is(err, common.ErrForbidden):
		s.writeJSONError(w, http.StatusForbidden, CodeForbidden, "forbidden")
	case errors.Is(err, common.ErrNotFound):
		s.writeJSONError(w, http.StatusNotFound, CodeNotFound, "not found")
	case errors.Is(err, common.ErrAlreadyCompleted):
		s.writeJSONError(w, http.StatusConflict, CodeAlreadyCompleted, err.Error())
	case errors.Is(err, common.ErrIncompleteUpload):
		s.writeJSONError(w, http.StatusConflict, CodeIncompleteUpload, err.Error())
	case errors.Is(err, common.ErrQuotaExceeded):
		s.writeJSONError(w, http.StatusRequestEntityTooLarge, CodeQuotaExceeded, "quota exceeded")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		s.writeJSONError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

// chunkIndex parses the {index} path segment. Indices are non-negative
// integers; anything else is a validation error.
func chunkIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid chunk index %q", common.ErrValidation, raw)
	}
	return n, nil
}

func (s *Server) handleInitUpload(w http.ResponseWriter, r *http.Request) {

	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	params, err := req.toInitParams()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.attachments.InitUpload(r.Context(), RequesterID(r.Context()), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, &InitUploadResponse{
		ID:          a.ID,
		Status:      string(a.Status),
		TotalChunks: a.TotalChunks,
	})
}

func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {

	index, err := chunkIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req UploadChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	ciphertext, err := encodex.DecodeNonEmpty(req.Ciphertext)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	iv, err := encodex.DecodeNonEmpty(req.IV)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	err = s.attachments.UploadChunk(r.Context(), RequesterID(r.Context()), r.PathValue("id"), index, ciphertext, iv, req.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {

	status, err := s.attachments.GetStatus(r.Context(), RequesterID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &StatusResponse{
		Status:          string(status.Status),
		TotalChunks:     status.TotalChunks,
		UploadedIndices: status.UploadedIndices,
	})
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {

	err := s.attachments.CompleteUpload(r.Context(), RequesterID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {

	index, err := chunkIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	chunk, err := s.attachments.GetChunk(r.Context(), RequesterID(r.Context()), r.PathValue("id"), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, chunkToResponse(chunk))
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {

	a, err := s.attachments.GetMetadata(r.Context(), RequesterID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, metadataToResponse(a))
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {

	err := s.attachments.DeleteAttachment(r.Context(), RequesterID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetQuota(w http.ResponseWriter, r *http.Request) {

	q, err := s.quotas.Usage(r.Context(), RequesterID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &QuotaResponse{UsedBytes: q.UsedBytes, LimitBytes: q.LimitBytes})
}
