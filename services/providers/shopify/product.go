package shopify

import (
	"context"
	"fmt"

	"github.com/upb/order-protection/services/providers"
	"go.uber.org/zap"
)

// ProductProvider implements providers.ProductProvider against the Shopify AJAX product API
type ProductProvider struct {
	client     *Client
	protection providers.ProtectionProduct
	logger     *zap.Logger
}

// NewProductProvider creates a new Shopify product provider
func NewProductProvider(client *Client, protection providers.ProtectionProduct, logger *zap.Logger) *ProductProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductProvider{
		client:     client,
		protection: protection,
		logger:     logger.Named("shopify.product"),
	}
}

// Platform returns the provider platform name
func (p *ProductProvider) Platform() string {
	return PlatformName
}

// ProtectionProduct returns the configured protection product selector
func (p *ProductProvider) ProtectionProduct() providers.ProtectionProduct {
	return p.protection
}

// GetProtectionVariants fetches the protection product and projects its variants
func (p *ProductProvider) GetProtectionVariants(ctx context.Context) ([]providers.Product, error) {
	handle := p.protection.Resolved()
	logger := p.logger.With(zap.String("op", "getProtectionVariants"), zap.String("handle", handle))

	path := fmt.Sprintf("/products/%s.js", handle)
	logger.Debug("GET", zap.String("url", p.client.URL(path)))

	var resp productResponse
	if err := p.client.Get(ctx, "getProtectionVariants", path, &resp); err != nil {
		logger.Warn("could not get protection variants", zap.Error(err))
		return nil, err
	}

	variants := resp.toProducts()
	logger.Debug("protection variants fetched", zap.Int("count", len(variants)))

	return variants, nil
}
