package shopify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/order-protection/services/providers"
	"go.uber.org/zap"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		expectErr bool
	}{
		{name: "valid url", baseURL: "https://shop.example.com"},
		{name: "valid url with trailing slash", baseURL: "https://shop.example.com/"},
		{name: "empty", baseURL: "", expectErr: true},
		{name: "missing scheme", baseURL: "shop.example.com", expectErr: true},
		{name: "unparseable", baseURL: "https://[::1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := providers.DefaultProviderConfig()
			config.BaseURL = tt.baseURL

			client, err := NewClient(config)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://shop.example.com/cart.js?provider=mule", client.URL("/cart.js"))
		})
	}
}

func TestClient_CustomProviderTag(t *testing.T) {
	client, err := NewClient(providers.ProviderConfig{BaseURL: "https://shop.example.com", ProviderTag: "widget"})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/cart/update.js?provider=widget", client.URL("/cart/update.js"))
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		input     string
		expected  string
		expectErr bool
	}{
		{input: `39072856`, expected: "39072856"},
		{input: `"39072856:abc"`, expected: "39072856:abc"},
		{input: `null`, expected: ""},
		{input: `44012345678901`, expected: "44012345678901"},
		{input: `true`, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var id flexID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(id))
		})
	}
}

func TestNewBuilder(t *testing.T) {
	registry := providers.NewRegistry()
	require.NoError(t, registry.RegisterBuilder(PlatformName, NewBuilder()))

	config := providers.DefaultProviderConfig()
	config.BaseURL = "https://shop.example.com"
	config.Protection = providers.ProtectionProduct{Handle: "shipping-protection"}

	platform, err := registry.Build("shopify", config, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, PlatformName, platform.Name)
	assert.Equal(t, PlatformName, platform.Carts.Platform())
	assert.Equal(t, "shipping-protection", platform.Products.ProtectionProduct().Handle)

	_, err = registry.Build("shopify", providers.DefaultProviderConfig(), zap.NewNop())
	assert.Error(t, err)
}
