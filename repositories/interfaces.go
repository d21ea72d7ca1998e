package repositories

import (
	"context"

	"github.com/upb/order-protection/models"
)

// ProtectionEventRepository handles protection audit event data operations
type ProtectionEventRepository interface {
	// Insert inserts a new protection event
	Insert(ctx context.Context, event *models.ProtectionEvent) error

	// ListRecent retrieves the most recent events, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.ProtectionEvent, error)

	// ListByRequestID retrieves the events recorded for one inbound request
	ListByRequestID(ctx context.Context, requestID string) ([]*models.ProtectionEvent, error)
}
