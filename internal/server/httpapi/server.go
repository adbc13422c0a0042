// Package httpapi exposes the attachment service over a JSON HTTP API.
// Binary fields (ciphertext, IVs, wrapped keys) cross the wire
// base64-encoded; the handlers decode strictly and map service errors to
// HTTP status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
)

type Server struct {
	address     string
	logger      logging.Logger
	attachments *attachments.Service
	quotas      *quota.Service
	jwtSecret   []byte
}

func NewServer(a string, l logging.Logger, as *attachments.Service, qs *quota.Service, secretKey string) (*Server, error) {
	return &Server{
		address:     a,
		logger:      l.With("module", "http_server"),
		attachments: as,
		quotas:      qs,
		jwtSecret:   []byte(secretKey),
	}, nil
}

// Handler builds the route table. Exposed separately so tests can drive the
// API through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/attachments", s.withAuth(s.handleInitUpload))
	mux.HandleFunc("PUT /api/attachments/{id}/chunks/{index}", s.withAuth(s.handleUploadChunk))
	mux.HandleFunc("GET /api/attachments/{id}/chunks/{index}", s.withAuth(s.handleGetChunk))
	mux.HandleFunc("GET /api/attachments/{id}/status", s.withAuth(s.handleGetStatus))
	mux.HandleFunc("POST /api/attachments/{id}/complete", s.withAuth(s.handleCompleteUpload))
	mux.HandleFunc("GET /api/attachments/{id}", s.withAuth(s.handleGetMetadata))
	mux.HandleFunc("DELETE /api/attachments/{id}", s.withAuth(s.handleDeleteAttachment))
	mux.HandleFunc("GET /api/quota", s.withAuth(s.handleGetQuota))

	return s.withRecovery(mux)
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
