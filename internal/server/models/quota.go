package models

// Quota is the per-owner storage ledger. UsedBytes is charged once at
// init-time reservation and released once at delete/reap; it is never
// updated per chunk and never goes negative.
type Quota struct {
	OwnerID    string
	UsedBytes  int64
	LimitBytes int64
}
