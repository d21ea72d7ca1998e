package protection

import (
	"context"
	"sort"

	"github.com/upb/order-protection/internal/shared"
	"github.com/upb/order-protection/models"
	"github.com/upb/order-protection/services"
	"github.com/upb/order-protection/services/audit"
	"github.com/upb/order-protection/services/providers"
	"go.uber.org/zap"
)

// CartStatus is the shopper's cart together with its protection state
type CartStatus struct {
	Cart            *providers.Cart      `json:"cart"`
	ProtectionItems []providers.CartItem `json:"protectionItems"`
	Protected       bool                 `json:"protected"`
}

// EnableInput selects the protection variant to add. An empty VariantID
// selects the first variant of the protection product.
type EnableInput struct {
	VariantID  string
	Attributes map[string]any
}

// Service orchestrates protection cart operations for one storefront platform
type Service struct {
	platform string
	carts    providers.CartProvider
	products providers.ProductProvider
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewService creates a protection service on top of a built platform
func NewService(platform *providers.Platform, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		platform: platform.Name,
		carts:    platform.Carts,
		products: platform.Products,
		recorder: recorder,
		logger:   logger.Named("protection"),
	}
}

// Platform returns the storefront platform name
func (s *Service) Platform() string {
	return s.platform
}

// Status reads the cart and reports which protection items it holds
func (s *Service) Status(ctx context.Context) (*CartStatus, error) {
	cart, err := s.carts.GetCart(ctx)
	if err != nil {
		return nil, s.storefrontError("failed to read cart", err)
	}
	return s.status(cart), nil
}

// Variants returns the variants of the protection product
func (s *Service) Variants(ctx context.Context) ([]providers.Product, error) {
	variants, err := s.products.GetProtectionVariants(ctx)
	if err != nil {
		return nil, s.storefrontError("failed to fetch protection variants", err)
	}
	return variants, nil
}

// Enable puts exactly one protection item in the cart, replacing any other
func (s *Service) Enable(ctx context.Context, input EnableInput) (*CartStatus, error) {
	variants, err := s.Variants(ctx)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, services.ErrNoProtectionVariants.Message, nil).
			WithDetail("product", s.products.ProtectionProduct().Resolved())
	}

	variantID := input.VariantID
	if variantID == "" {
		variantID = variants[0].ID
	} else if !containsVariant(variants, variantID) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrUnknownVariant.Message, nil).
			WithDetail("variant_id", variantID)
	}

	event := s.newEvent(ctx, models.ProtectionActionAdded).
		WithVariant(variantID).
		WithAttributes(input.Attributes)

	cart, err := s.carts.AddProtectionItem(ctx, variantID, providers.UpdateOptions{
		Attributes: input.Attributes,
		OnUpdate:   func(updates map[string]int) { event.WithReplaced(zeroed(updates)) },
	})
	if err != nil {
		s.record(ctx, failed(event, err))
		return nil, s.storefrontError("failed to add protection", err)
	}

	s.record(ctx, event)
	s.logger.Info("protection enabled",
		zap.String("variant_id", variantID),
		zap.Strings("replaced", event.ReplacedItemIDs),
		zap.String("request_id", event.RequestID))

	return s.status(cart), nil
}

// Disable removes every protection item from the cart
func (s *Service) Disable(ctx context.Context, attributes map[string]any) (*CartStatus, error) {
	event := s.newEvent(ctx, models.ProtectionActionRemoved).WithAttributes(attributes)

	cart, err := s.carts.RemoveProtectionItem(ctx, providers.UpdateOptions{
		Attributes: attributes,
		OnUpdate:   func(updates map[string]int) { event.WithReplaced(zeroed(updates)) },
	})
	if err != nil {
		s.record(ctx, failed(event, err))
		return nil, s.storefrontError("failed to remove protection", err)
	}

	s.record(ctx, event)
	s.logger.Info("protection disabled",
		zap.Strings("removed", event.ReplacedItemIDs),
		zap.String("request_id", event.RequestID))

	return s.status(cart), nil
}

// SetAttributes writes cart attributes without touching line items
func (s *Service) SetAttributes(ctx context.Context, attributes map[string]any) (*CartStatus, error) {
	if len(attributes) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "attributes are required", nil)
	}

	event := s.newEvent(ctx, models.ProtectionActionAttributesSet).WithAttributes(attributes)

	cart, err := s.carts.SetAttributes(ctx, attributes)
	if err != nil {
		s.record(ctx, failed(event, err))
		return nil, s.storefrontError("failed to set cart attributes", err)
	}

	s.record(ctx, event)
	return s.status(cart), nil
}

func (s *Service) status(cart *providers.Cart) *CartStatus {
	items := s.carts.GetProtectionItems(cart)
	if items == nil {
		items = []providers.CartItem{}
	}
	return &CartStatus{
		Cart:            cart,
		ProtectionItems: items,
		Protected:       len(items) > 0,
	}
}

func (s *Service) newEvent(ctx context.Context, action models.ProtectionAction) *models.ProtectionEvent {
	return models.NewProtectionEvent(s.platform, action).WithRequest(shared.RequestID(ctx))
}

func (s *Service) record(ctx context.Context, event *models.ProtectionEvent) {
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Warn("could not record protection event",
			zap.Error(err),
			zap.String("action", string(event.Action)))
	}
}

// storefrontError wraps a provider failure as an external error. The
// upstream status is attached when the storefront answered.
func (s *Service) storefrontError(message string, err error) error {
	domainErr := services.WrapExternal(message, err).WithDetail("platform", s.platform)
	if code, ok := providers.StatusCode(err); ok {
		domainErr.WithDetail("upstream_status", code)
	}
	return domainErr
}

func failed(event *models.ProtectionEvent, err error) *models.ProtectionEvent {
	code, _ := providers.StatusCode(err)
	return event.WithError(code, err.Error())
}

func containsVariant(variants []providers.Product, id string) bool {
	for _, v := range variants {
		if v.ID == id {
			return true
		}
	}
	return false
}

// zeroed returns the sorted ids set to quantity zero
func zeroed(updates map[string]int) []string {
	ids := make([]string, 0, len(updates))
	for id, qty := range updates {
		if qty == 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
