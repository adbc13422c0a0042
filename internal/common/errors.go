// Package common defines shared constants and sentinel errors used across
// client and server layers of mailseal. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Request validation errors.
	ErrValidation = errors.New("validation error")
	ErrEncoding   = errors.New("undecodable binary field")

	// Authorization errors.
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid token")

	// Upload lifecycle errors.
	ErrIncompleteUpload = errors.New("upload incomplete")
	ErrAlreadyCompleted = errors.New("upload already completed")
	ErrQuotaExceeded    = errors.New("storage quota exceeded")

	// Generic/internal flow control.
	ErrInternal = errors.New("internal error")
)
