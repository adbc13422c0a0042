package messages

import (
	"context"
	"sync"
)

// Message is the minimal shape the in-memory store needs to answer linkage
// queries in tests and dev mode.
type Message struct {
	ID            string
	SenderID      string
	RecipientID   string
	Draft         bool
	AttachmentIDs []string
}

type InMemoryRepository struct {
	mu       sync.Mutex
	messages []Message
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Add registers a message; tests use it to link principals to attachments.
func (r *InMemoryRepository) Add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *InMemoryRepository) IsLinkedViaMessage(ctx context.Context, attachmentID, principalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.Draft {
			continue
		}
		if m.SenderID != principalID && m.RecipientID != principalID {
			continue
		}
		for _, id := range m.AttachmentIDs {
			if id == attachmentID {
				return true, nil
			}
		}
	}
	return false, nil
}
