package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/order-protection/models"
	"github.com/upb/order-protection/repositories"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

const protectionEventColumns = `id, action, outcome, platform, variant_id, replaced_item_ids,
		       attributes, request_id, status_code, error_message, created_at`

// ProtectionEventRepository implements the repositories.ProtectionEventRepository interface
type ProtectionEventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProtectionEventRepository creates a new protection event repository
func NewProtectionEventRepository(db *DB, logger *zap.Logger) repositories.ProtectionEventRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProtectionEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new protection event
func (r *ProtectionEventRepository) Insert(ctx context.Context, event *models.ProtectionEvent) error {
	query := `
		INSERT INTO protection_events (
			id, action, outcome, platform, variant_id, replaced_item_ids,
			attributes, request_id, status_code, error_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	replaced := event.ReplacedItemIDs
	if replaced == nil {
		replaced = []string{}
	}
	attributes := event.Attributes
	if len(attributes) == 0 {
		attributes = []byte(`{}`)
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Action,
		event.Outcome,
		event.Platform,
		event.VariantID,
		pq.Array(replaced),
		[]byte(attributes),
		event.RequestID,
		event.StatusCode,
		event.ErrorMessage,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert protection event: %w", err)
	}

	r.logger.Debug("protection event inserted",
		zap.String("id", event.ID.String()),
		zap.String("action", string(event.Action)),
		zap.String("outcome", string(event.Outcome)))
	return nil
}

// ListRecent retrieves the most recent events, newest first. The limit is clamped to [1, 500].
func (r *ProtectionEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.ProtectionEvent, error) {
	query := `
		SELECT ` + protectionEventColumns + `
		FROM protection_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	return r.queryEvents(ctx, query, clampLimit(limit))
}

// ListByRequestID retrieves the events recorded for one inbound request
func (r *ProtectionEventRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.ProtectionEvent, error) {
	query := `
		SELECT ` + protectionEventColumns + `
		FROM protection_events
		WHERE request_id = $1
		ORDER BY created_at DESC
	`

	return r.queryEvents(ctx, query, requestID)
}

func (r *ProtectionEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.ProtectionEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query protection events: %w", err)
	}
	defer rows.Close()

	events := []*models.ProtectionEvent{}
	for rows.Next() {
		event := &models.ProtectionEvent{}
		var attributes []byte
		var requestID *string
		err := rows.Scan(
			&event.ID,
			&event.Action,
			&event.Outcome,
			&event.Platform,
			&event.VariantID,
			pq.Array(&event.ReplacedItemIDs),
			&attributes,
			&requestID,
			&event.StatusCode,
			&event.ErrorMessage,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan protection event: %w", err)
		}
		if event.ReplacedItemIDs == nil {
			event.ReplacedItemIDs = []string{}
		}
		if len(attributes) == 0 {
			attributes = []byte(`{}`)
		}
		event.Attributes = attributes
		if requestID != nil {
			event.RequestID = *requestID
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating protection event rows: %w", err)
	}

	return events, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
