// Package access decides who may read an attachment: the owner always, a
// non-owner only when linked to it through a real message, everyone else is
// forbidden.
package access

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/server/messages"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

type Guard struct {
	messages messages.Repository
}

func NewGuard(repo messages.Repository) *Guard {
	return &Guard{messages: repo}
}

// IsOwner is plain identity equality.
func (g *Guard) IsOwner(a *models.Attachment, requesterID string) bool {
	return a.OwnerID == requesterID
}

// CanRead returns nil when the requester may fetch the attachment's
// metadata or chunks, common.ErrForbidden otherwise.
func (g *Guard) CanRead(ctx context.Context, a *models.Attachment, requesterID string) error {
	if g.IsOwner(a, requesterID) {
		return nil
	}

	linked, err := g.messages.IsLinkedViaMessage(ctx, a.ID, requesterID)
	if err != nil {
		return fmt.Errorf("linkage lookup: %w", err)
	}
	if !linked {
		return common.ErrForbidden
	}
	return nil
}
