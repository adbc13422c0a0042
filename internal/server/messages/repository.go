// Package messages exposes the single query this service needs from the
// message store: whether a principal is linked to an attachment through a
// real (non-draft) message. The message store itself is owned elsewhere;
// only the linkage lookup is consumed here.
package messages

import "context"

type Repository interface {
	// IsLinkedViaMessage reports whether a non-draft message exists where
	// principalID is the sender or the recipient and which references the
	// attachment.
	IsLinkedViaMessage(ctx context.Context, attachmentID, principalID string) (bool, error)
}
