package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProtectionAction represents the cart mutation being recorded
type ProtectionAction string

const (
	ProtectionActionAdded         ProtectionAction = "protection_added"
	ProtectionActionRemoved       ProtectionAction = "protection_removed"
	ProtectionActionAttributesSet ProtectionAction = "attributes_set"
)

// ProtectionOutcome records whether the storefront accepted the mutation
type ProtectionOutcome string

const (
	ProtectionOutcomeSucceeded ProtectionOutcome = "succeeded"
	ProtectionOutcomeFailed    ProtectionOutcome = "failed"
)

// ProtectionEvent is an audit trail entry for a protection cart mutation
type ProtectionEvent struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	Action          ProtectionAction  `json:"action" db:"action"`
	Outcome         ProtectionOutcome `json:"outcome" db:"outcome"`
	Platform        string            `json:"platform" db:"platform"`
	VariantID       *string           `json:"variant_id,omitempty" db:"variant_id"`
	ReplacedItemIDs []string          `json:"replaced_item_ids" db:"replaced_item_ids"`
	Attributes      json.RawMessage   `json:"attributes" db:"attributes"` // JSONB
	RequestID       string            `json:"request_id" db:"request_id"`
	StatusCode      *int              `json:"status_code,omitempty" db:"status_code"`
	ErrorMessage    *string           `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the ProtectionEvent model
func (ProtectionEvent) TableName() string {
	return "protection_events"
}

// NewProtectionEvent creates a succeeded event for the given action
func NewProtectionEvent(platform string, action ProtectionAction) *ProtectionEvent {
	return &ProtectionEvent{
		ID:              uuid.New(),
		Action:          action,
		Outcome:         ProtectionOutcomeSucceeded,
		Platform:        platform,
		ReplacedItemIDs: []string{},
		Attributes:      json.RawMessage(`{}`),
		CreatedAt:       time.Now().UTC(),
	}
}

// WithVariant sets the variant that was added
func (e *ProtectionEvent) WithVariant(variantID string) *ProtectionEvent {
	e.VariantID = &variantID
	return e
}

// WithReplaced sets the protection line items that were zeroed
func (e *ProtectionEvent) WithReplaced(itemIDs []string) *ProtectionEvent {
	if itemIDs == nil {
		itemIDs = []string{}
	}
	e.ReplacedItemIDs = itemIDs
	return e
}

// WithAttributes sets the cart attributes sent with the mutation
func (e *ProtectionEvent) WithAttributes(attributes map[string]any) *ProtectionEvent {
	if len(attributes) == 0 {
		return e
	}
	if data, err := json.Marshal(attributes); err == nil {
		e.Attributes = data
	}
	return e
}

// WithRequest sets the request correlation id
func (e *ProtectionEvent) WithRequest(requestID string) *ProtectionEvent {
	e.RequestID = requestID
	return e
}

// WithError marks the event failed. statusCode is zero when no response was received.
func (e *ProtectionEvent) WithError(statusCode int, errorMessage string) *ProtectionEvent {
	e.Outcome = ProtectionOutcomeFailed
	if statusCode != 0 {
		e.StatusCode = &statusCode
	}
	e.ErrorMessage = &errorMessage
	return e
}

// Succeeded reports whether the mutation was applied
func (e *ProtectionEvent) Succeeded() bool {
	return e.Outcome == ProtectionOutcomeSucceeded
}
