package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/order-protection/middleware"
	"github.com/upb/order-protection/models"
	"github.com/upb/order-protection/services"
	"github.com/upb/order-protection/services/protection"
	"github.com/upb/order-protection/services/providers"
	"github.com/upb/order-protection/utils"
	"go.uber.org/zap"
)

// ProtectionService defines the protection operations the handler depends on
type ProtectionService interface {
	Platform() string
	Status(ctx context.Context) (*protection.CartStatus, error)
	Variants(ctx context.Context) ([]providers.Product, error)
	Enable(ctx context.Context, input protection.EnableInput) (*protection.CartStatus, error)
	Disable(ctx context.Context, attributes map[string]any) (*protection.CartStatus, error)
	SetAttributes(ctx context.Context, attributes map[string]any) (*protection.CartStatus, error)
}

// EventReader reads recorded protection events
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]*models.ProtectionEvent, error)
	ByRequestID(ctx context.Context, requestID string) ([]*models.ProtectionEvent, error)
}

// EnableProtectionRequest is the body of POST /api/v1/protection
type EnableProtectionRequest struct {
	VariantID  string         `json:"variant_id,omitempty" validate:"omitempty,variantid"`
	Attributes map[string]any `json:"attributes,omitempty" validate:"omitempty,max=50"`
}

// DisableProtectionRequest is the optional body of DELETE /api/v1/protection
type DisableProtectionRequest struct {
	Attributes map[string]any `json:"attributes,omitempty" validate:"omitempty,max=50"`
}

// SetAttributesRequest is the body of PUT /api/v1/protection/attributes
type SetAttributesRequest struct {
	Attributes map[string]any `json:"attributes" validate:"required,min=1,max=50"`
}

// ListEventsQuery holds the query parameters of GET /api/v1/protection/events
type ListEventsQuery struct {
	Limit     int    `validate:"omitempty,min=1,max=500"`
	RequestID string `validate:"omitempty,max=128"`
}

// VariantsResponse lists the protection variants
type VariantsResponse struct {
	Platform string              `json:"platform"`
	Variants []providers.Product `json:"variants"`
}

// EventsResponse lists recorded protection events
type EventsResponse struct {
	Events []*models.ProtectionEvent `json:"events"`
	Count  int                       `json:"count"`
}

// ProtectionHandler handles protection-related HTTP requests
type ProtectionHandler struct {
	service ProtectionService
	events  EventReader
	logger  *zap.Logger
}

// NewProtectionHandler creates a new ProtectionHandler. events may be nil when
// no audit store is configured.
func NewProtectionHandler(service ProtectionService, events EventReader, logger *zap.Logger) *ProtectionHandler {
	return &ProtectionHandler{
		service: service,
		events:  events,
		logger:  logger,
	}
}

// HandleGetCart handles GET /api/v1/protection/cart
func (h *ProtectionHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.Status(ctx)
	if err != nil {
		h.logger.Warn("failed to read cart",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeOK(w, r, status)
}

// HandleGetVariants handles GET /api/v1/protection/variants
func (h *ProtectionHandler) HandleGetVariants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variants, err := h.service.Variants(ctx)
	if err != nil {
		h.logger.Warn("failed to fetch protection variants",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	if variants == nil {
		variants = []providers.Product{}
	}

	h.writeOK(w, r, VariantsResponse{
		Platform: h.service.Platform(),
		Variants: variants,
	})
}

// HandleEnable handles POST /api/v1/protection
func (h *ProtectionHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req EnableProtectionRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	status, err := h.service.Enable(ctx, protection.EnableInput{
		VariantID:  req.VariantID,
		Attributes: req.Attributes,
	})
	if err != nil {
		h.logger.Warn("failed to enable protection",
			zap.String("request_id", requestID),
			zap.String("variant_id", req.VariantID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeOK(w, r, status)
}

// HandleDisable handles DELETE /api/v1/protection
func (h *ProtectionHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DisableProtectionRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	status, err := h.service.Disable(ctx, req.Attributes)
	if err != nil {
		h.logger.Warn("failed to disable protection",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeOK(w, r, status)
}

// HandleSetAttributes handles PUT /api/v1/protection/attributes
func (h *ProtectionHandler) HandleSetAttributes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SetAttributesRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	status, err := h.service.SetAttributes(ctx, req.Attributes)
	if err != nil {
		h.logger.Warn("failed to set cart attributes",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeOK(w, r, status)
}

// HandleListEvents handles GET /api/v1/protection/events
func (h *ProtectionHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.events == nil {
		HandleServiceError(w, services.ErrAuditDisabled, h.logger)
		return
	}

	query := ListEventsQuery{RequestID: r.URL.Query().Get("request_id")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "limit must be an integer", map[string]interface{}{"limit": raw})
			return
		}
		query.Limit = limit
	}
	if err := utils.ValidateStruct(&query); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	var (
		events []*models.ProtectionEvent
		err    error
	)
	if query.RequestID != "" {
		events, err = h.events.ByRequestID(ctx, query.RequestID)
	} else {
		events, err = h.events.Recent(ctx, query.Limit)
	}
	if err != nil {
		HandleServiceError(w, services.WrapInternal("failed to list protection events", err), h.logger)
		return
	}
	if events == nil {
		events = []*models.ProtectionEvent{}
	}

	h.writeOK(w, r, EventsResponse{Events: events, Count: len(events)})
}

// decode reads and validates a JSON body, writing a 400 on failure
func (h *ProtectionHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	if err := utils.DecodeJSON(r, dst, allowEmpty); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return false
	}

	if err := utils.ValidateStruct(dst); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return false
	}

	return true
}

func (h *ProtectionHandler) writeOK(w http.ResponseWriter, r *http.Request, data interface{}) {
	if err := utils.WriteOK(w, data); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
	}
}
