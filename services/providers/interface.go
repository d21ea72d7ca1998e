package providers

import (
	"context"
	"net/http"
	"time"
)

// DefaultProtectionHandle is the product handle queried when no protection
// product override is configured.
const DefaultProtectionHandle = "protectmyorder"

// DefaultProviderTag is sent as the "provider" query parameter on every
// storefront request so the backend can attribute the traffic.
const DefaultProviderTag = "mule"

// CartProvider reads a storefront cart and manages its protection line item
type CartProvider interface {
	// Platform returns the storefront platform name (e.g., "shopify")
	Platform() string

	// GetCart returns a fresh snapshot of the current cart
	GetCart(ctx context.Context) (*Cart, error)

	// AddProtectionItem replaces any protection items in the cart with a
	// single unit of variantID
	AddProtectionItem(ctx context.Context, variantID string, opts UpdateOptions) (*Cart, error)

	// RemoveProtectionItem removes every protection item from the cart
	RemoveProtectionItem(ctx context.Context, opts UpdateOptions) (*Cart, error)

	// GetProtectionItems returns the items of cart classified as protection items
	GetProtectionItems(cart *Cart) []CartItem

	// SetAttributes sets cart-level attributes without touching line items
	SetAttributes(ctx context.Context, attributes map[string]any) (*Cart, error)
}

// ProductProvider resolves the product variants that represent protection
type ProductProvider interface {
	// Platform returns the storefront platform name
	Platform() string

	// ProtectionProduct returns the resolved protection product selector
	ProtectionProduct() ProtectionProduct

	// GetProtectionVariants returns every variant of the protection product
	GetProtectionVariants(ctx context.Context) ([]Product, error)
}

// UpdateOptions carries optional cart attributes sent with a line item update
type UpdateOptions struct {
	Attributes map[string]any

	// OnUpdate, when set, receives the line item quantities just before the
	// update request is sent. It is not called when no request is needed.
	OnUpdate func(updates map[string]int)
}

// Cart is a snapshot of a storefront cart. Monetary amounts are in minor units.
type Cart struct {
	TotalPrice       int64      `json:"totalPrice"`
	TotalDiscount    *int64     `json:"totalDiscount,omitempty"`
	TotalWeight      *float64   `json:"totalWeight,omitempty"`
	ItemCount        int        `json:"itemCount"`
	RequiresShipping *bool      `json:"requiresShipping,omitempty"`
	Currency         string     `json:"currency"`
	Items            []CartItem `json:"items"`
}

// CartItem is a single line of a cart
type CartItem struct {
	ID               string `json:"id"`
	Price            int64  `json:"price"`
	Quantity         *int   `json:"quantity,omitempty"`
	Title            string `json:"title,omitempty"`
	ProductTitle     string `json:"productTitle,omitempty"`
	LinePrice        int64  `json:"linePrice"`
	SKU              string `json:"sku,omitempty"`
	Taxable          bool   `json:"taxable"`
	Handle           string `json:"handle,omitempty"`
	RequiresShipping bool   `json:"requiresShipping"`
}

// Product is the reduced projection of a product variant
type Product struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

// ProtectionProduct selects which product represents the protection offering.
// Handle takes precedence over ID; when both are empty the default handle is used.
type ProtectionProduct struct {
	ID     string `json:"id,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// Resolved returns the path key used to look the product up
func (p ProtectionProduct) Resolved() string {
	if p.Handle != "" {
		return p.Handle
	}
	if p.ID != "" {
		return p.ID
	}
	return DefaultProtectionHandle
}

// ProviderConfig holds common configuration for storefront providers
type ProviderConfig struct {
	// BaseURL of the storefront (e.g., https://shop.example.com)
	BaseURL string

	// Timeout for each request
	Timeout time.Duration

	// ProviderTag overrides the "provider" query parameter
	ProviderTag string

	// Protection overrides the protection product lookup
	Protection ProtectionProduct

	// Additional headers
	Headers map[string]string

	// HTTPClient replaces the default client (tests, custom transports)
	HTTPClient *http.Client
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:     10 * time.Second,
		ProviderTag: DefaultProviderTag,
		Headers:     make(map[string]string),
	}
}
