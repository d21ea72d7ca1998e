package shopify

import (
	"context"

	"github.com/upb/order-protection/services/providers"
	"go.uber.org/zap"
)

const (
	cartPath       = "/cart.js"
	cartUpdatePath = "/cart/update.js"
)

// CartProvider implements providers.CartProvider against the Shopify AJAX cart API
type CartProvider struct {
	client *Client
	logger *zap.Logger
}

// NewCartProvider creates a new Shopify cart provider
func NewCartProvider(client *Client, logger *zap.Logger) *CartProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartProvider{
		client: client,
		logger: logger.Named("shopify.cart"),
	}
}

// Platform returns the provider platform name
func (p *CartProvider) Platform() string {
	return PlatformName
}

// GetCart fetches the shopper's current cart
func (p *CartProvider) GetCart(ctx context.Context) (*providers.Cart, error) {
	return p.getCart(ctx, p.opLogger("getCart"))
}

func (p *CartProvider) getCart(ctx context.Context, logger *zap.Logger) (*providers.Cart, error) {
	logger.Debug("GET", zap.String("url", p.client.URL(cartPath)))

	var resp cartResponse
	if err := p.client.Get(ctx, "getCart", cartPath, &resp); err != nil {
		logger.Warn("could not fetch cart", zap.Error(err))
		return nil, err
	}

	cart := resp.toCart()
	logger.Debug("cart fetched",
		zap.Int("item_count", cart.ItemCount),
		zap.Int("lines", len(cart.Items)),
		zap.Int64("total_price", cart.TotalPrice))

	return cart, nil
}

// GetProtectionItems returns the protection items of cart
func (p *CartProvider) GetProtectionItems(cart *providers.Cart) []providers.CartItem {
	return providers.ProtectionItems(cart)
}

// AddProtectionItem zeroes every protection item currently in the cart and
// sets variantID to a quantity of one, in a single update request.
func (p *CartProvider) AddProtectionItem(ctx context.Context, variantID string, opts providers.UpdateOptions) (*providers.Cart, error) {
	logger := p.opLogger("addProtectionItem").With(zap.String("variant_id", variantID))

	cart, err := p.getCart(ctx, logger)
	if err != nil {
		return nil, err
	}

	existing := p.GetProtectionItems(cart)
	logger.Debug("protection items", zap.Strings("item_ids", itemIDs(existing)))

	updates := zeroQuantities(existing)
	updates[variantID] = 1

	return p.update(ctx, logger, "addProtectionItem", updates, opts)
}

// RemoveProtectionItem zeroes every protection item in the cart. When the
// cart holds none, no update is sent and the cart just read is returned.
func (p *CartProvider) RemoveProtectionItem(ctx context.Context, opts providers.UpdateOptions) (*providers.Cart, error) {
	logger := p.opLogger("removeProtectionItem")

	cart, err := p.getCart(ctx, logger)
	if err != nil {
		return nil, err
	}

	existing := p.GetProtectionItems(cart)
	if len(existing) == 0 {
		logger.Debug("no protection items in cart, skipping update")
		return cart, nil
	}
	logger.Debug("protection items", zap.Strings("item_ids", itemIDs(existing)))

	return p.update(ctx, logger, "removeProtectionItem", zeroQuantities(existing), opts)
}

// SetAttributes posts cart attributes without an updates map
func (p *CartProvider) SetAttributes(ctx context.Context, attributes map[string]any) (*providers.Cart, error) {
	logger := p.opLogger("setAttributes")

	body := attributesRequest{Attributes: nonNil(attributes)}
	logger.Debug("POST", zap.String("url", p.client.URL(cartUpdatePath)), zap.Any("body", body))

	var resp cartResponse
	if err := p.client.Post(ctx, "setAttributes", cartUpdatePath, body, &resp); err != nil {
		logger.Warn("could not set cart attributes", zap.Error(err))
		return nil, err
	}

	return resp.toCart(), nil
}

func (p *CartProvider) update(ctx context.Context, logger *zap.Logger, op string, updates map[string]int, opts providers.UpdateOptions) (*providers.Cart, error) {
	if opts.OnUpdate != nil {
		opts.OnUpdate(copyUpdates(updates))
	}

	body := updateRequest{Updates: updates, Attributes: nonNil(opts.Attributes)}
	logger.Debug("POST", zap.String("url", p.client.URL(cartUpdatePath)), zap.Any("body", body))

	var resp cartResponse
	if err := p.client.Post(ctx, op, cartUpdatePath, body, &resp); err != nil {
		logger.Warn("cart update failed", zap.Error(err))
		return nil, err
	}

	cart := resp.toCart()
	logger.Debug("cart updated", zap.Int("item_count", cart.ItemCount))
	return cart, nil
}

func (p *CartProvider) opLogger(op string) *zap.Logger {
	return p.logger.With(zap.String("op", op))
}

func zeroQuantities(items []providers.CartItem) map[string]int {
	updates := make(map[string]int, len(items)+1)
	for _, item := range items {
		updates[item.ID] = 0
	}
	return updates
}

func copyUpdates(updates map[string]int) map[string]int {
	out := make(map[string]int, len(updates))
	for id, qty := range updates {
		out[id] = qty
	}
	return out
}

func itemIDs(items []providers.CartItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func nonNil(attributes map[string]any) map[string]any {
	if attributes == nil {
		return map[string]any{}
	}
	return attributes
}
