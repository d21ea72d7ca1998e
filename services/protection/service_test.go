package protection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/order-protection/internal/shared"
	"github.com/upb/order-protection/models"
	"github.com/upb/order-protection/services"
	"github.com/upb/order-protection/services/providers"
	"go.uber.org/zap"
)

// fakeCarts keeps an in-memory cart and applies updates the way a storefront would
type fakeCarts struct {
	mu        sync.Mutex
	cart      *providers.Cart
	err       error
	updateErr error
	lastOpts  providers.UpdateOptions
	added     string
	updates   int
}

func (f *fakeCarts) Platform() string { return "fake" }

func (f *fakeCarts) GetCart(ctx context.Context) (*providers.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot(), nil
}

func (f *fakeCarts) AddProtectionItem(ctx context.Context, variantID string, opts providers.UpdateOptions) (*providers.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	updates := map[string]int{}
	for _, item := range providers.ProtectionItems(f.cart) {
		updates[item.ID] = 0
	}
	updates[variantID] = 1
	return f.apply(updates, opts, variantID)
}

func (f *fakeCarts) RemoveProtectionItem(ctx context.Context, opts providers.UpdateOptions) (*providers.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	existing := providers.ProtectionItems(f.cart)
	if len(existing) == 0 {
		return f.snapshot(), nil
	}
	updates := map[string]int{}
	for _, item := range existing {
		updates[item.ID] = 0
	}
	return f.apply(updates, opts, "")
}

func (f *fakeCarts) GetProtectionItems(cart *providers.Cart) []providers.CartItem {
	return providers.ProtectionItems(cart)
}

func (f *fakeCarts) SetAttributes(ctx context.Context, attributes map[string]any) (*providers.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates++
	return f.snapshot(), nil
}

func (f *fakeCarts) apply(updates map[string]int, opts providers.UpdateOptions, added string) (*providers.Cart, error) {
	if opts.OnUpdate != nil {
		opts.OnUpdate(updates)
	}
	f.lastOpts = opts
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates++

	kept := []providers.CartItem{}
	for _, item := range f.cart.Items {
		if qty, ok := updates[item.ID]; ok && qty == 0 {
			continue
		}
		kept = append(kept, item)
	}
	if added != "" {
		f.added = added
		kept = append(kept, providers.CartItem{ID: added, Handle: "protectmyorder", Price: 195, LinePrice: 195})
	}
	f.cart.Items = kept
	f.cart.ItemCount = len(kept)
	return f.snapshot(), nil
}

func (f *fakeCarts) snapshot() *providers.Cart {
	c := *f.cart
	c.Items = append([]providers.CartItem(nil), f.cart.Items...)
	return &c
}

type fakeProducts struct {
	variants []providers.Product
	err      error
}

func (f *fakeProducts) Platform() string { return "fake" }

func (f *fakeProducts) ProtectionProduct() providers.ProtectionProduct {
	return providers.ProtectionProduct{}
}

func (f *fakeProducts) GetProtectionVariants(ctx context.Context) ([]providers.Product, error) {
	return f.variants, f.err
}

// MockRecorder is a mock implementation of audit.Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, event *models.ProtectionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRecorder) events() []*models.ProtectionEvent {
	var out []*models.ProtectionEvent
	for _, call := range m.Calls {
		if call.Method == "Record" {
			out = append(out, call.Arguments.Get(1).(*models.ProtectionEvent))
		}
	}
	return out
}

type fixture struct {
	carts    *fakeCarts
	products *fakeProducts
	recorder *MockRecorder
	service  *Service
}

func newFixture(t *testing.T, items ...providers.CartItem) *fixture {
	t.Helper()
	f := &fixture{
		carts: &fakeCarts{cart: &providers.Cart{Currency: "USD", Items: items, ItemCount: len(items)}},
		products: &fakeProducts{variants: []providers.Product{
			{ID: "41000001", Price: 195},
			{ID: "41000002", Price: 395},
		}},
		recorder: new(MockRecorder),
	}
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.service = NewService(&providers.Platform{Name: "shopify", Carts: f.carts, Products: f.products}, f.recorder, zap.NewNop())
	return f
}

func shirt() providers.CartItem {
	return providers.CartItem{ID: "1", Handle: "t-shirt", Price: 2500, LinePrice: 2500}
}

func protectionLine(id string) providers.CartItem {
	return providers.CartItem{ID: id, Handle: "protect-my-order", Price: 195, LinePrice: 195}
}

func TestService_Status(t *testing.T) {
	f := newFixture(t, shirt(), protectionLine("111"))

	status, err := f.service.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Protected)
	require.Len(t, status.ProtectionItems, 1)
	assert.Equal(t, "111", status.ProtectionItems[0].ID)
	assert.Len(t, status.Cart.Items, 2)
	assert.Equal(t, "shopify", f.service.Platform())
}

func TestService_StatusUnprotected(t *testing.T) {
	f := newFixture(t, shirt())

	status, err := f.service.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Protected)
	assert.NotNil(t, status.ProtectionItems)
	assert.Empty(t, status.ProtectionItems)
}

func TestService_StatusStorefrontError(t *testing.T) {
	f := newFixture(t)
	f.carts.err = &providers.HTTPStatusError{Platform: "shopify", Op: "getCart", StatusCode: 500}

	_, err := f.service.Status(context.Background())
	require.Error(t, err)
	assert.True(t, services.IsExternalError(err))
	assert.Equal(t, 500, services.GetErrorDetails(err)["upstream_status"])

	var statusErr *providers.HTTPStatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestService_TransportErrorHasNoUpstreamStatus(t *testing.T) {
	f := newFixture(t)
	f.carts.err = &providers.TransportError{Platform: "shopify", Op: "getCart", Cause: errors.New("connection refused")}

	_, err := f.service.Status(context.Background())
	require.Error(t, err)
	assert.True(t, services.IsExternalError(err))
	assert.NotContains(t, services.GetErrorDetails(err), "upstream_status")
	assert.Equal(t, "shopify", services.GetErrorDetails(err)["platform"])
}

func TestService_Variants(t *testing.T) {
	f := newFixture(t)

	variants, err := f.service.Variants(context.Background())
	require.NoError(t, err)
	assert.Len(t, variants, 2)
}

func TestService_EnableDefaultsToFirstVariant(t *testing.T) {
	f := newFixture(t, shirt())
	ctx := shared.WithRequestID(context.Background(), "req-1")

	status, err := f.service.Enable(ctx, EnableInput{})
	require.NoError(t, err)
	assert.True(t, status.Protected)
	assert.Equal(t, "41000001", f.carts.added)

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ProtectionActionAdded, events[0].Action)
	assert.True(t, events[0].Succeeded())
	assert.Equal(t, "41000001", *events[0].VariantID)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Empty(t, events[0].ReplacedItemIDs)
}

func TestService_EnableReplacesExisting(t *testing.T) {
	f := newFixture(t, shirt(), protectionLine("111"), protectionLine("222"))

	status, err := f.service.Enable(context.Background(), EnableInput{
		VariantID:  "41000002",
		Attributes: map[string]any{"protected": "true"},
	})
	require.NoError(t, err)
	require.Len(t, status.ProtectionItems, 1)
	assert.Equal(t, "41000002", status.ProtectionItems[0].ID)
	assert.Equal(t, map[string]any{"protected": "true"}, f.carts.lastOpts.Attributes)

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"111", "222"}, events[0].ReplacedItemIDs)
	assert.JSONEq(t, `{"protected":"true"}`, string(events[0].Attributes))
}

func TestService_EnableUnknownVariant(t *testing.T) {
	f := newFixture(t, shirt())

	_, err := f.service.Enable(context.Background(), EnableInput{VariantID: "123"})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
	assert.ErrorIs(t, err, services.ErrUnknownVariant)
	assert.Equal(t, "123", services.GetErrorDetails(err)["variant_id"])

	assert.Zero(t, f.carts.updates)
	assert.Empty(t, f.recorder.events())
}

func TestService_EnableNoVariants(t *testing.T) {
	f := newFixture(t)
	f.products.variants = nil

	_, err := f.service.Enable(context.Background(), EnableInput{})
	require.Error(t, err)
	assert.True(t, services.IsNotFoundError(err))
	assert.Equal(t, "protectmyorder", services.GetErrorDetails(err)["product"])
}

func TestService_EnableVariantLookupFails(t *testing.T) {
	f := newFixture(t)
	f.products.err = &providers.HTTPStatusError{Platform: "shopify", Op: "getProtectionVariants", StatusCode: 404}

	_, err := f.service.Enable(context.Background(), EnableInput{})
	require.Error(t, err)
	assert.True(t, services.IsExternalError(err))
	assert.Equal(t, 404, services.GetErrorDetails(err)["upstream_status"])
}

func TestService_EnableUpdateFailureRecordsFailedEvent(t *testing.T) {
	f := newFixture(t, protectionLine("111"))
	f.carts.updateErr = &providers.HTTPStatusError{Platform: "shopify", Op: "addProtectionItem", StatusCode: 422, Body: "bad"}

	_, err := f.service.Enable(context.Background(), EnableInput{})
	require.Error(t, err)
	assert.True(t, services.IsExternalError(err))

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Succeeded())
	require.NotNil(t, events[0].StatusCode)
	assert.Equal(t, 422, *events[0].StatusCode)
	assert.Equal(t, []string{"111"}, events[0].ReplacedItemIDs)
}

func TestService_Disable(t *testing.T) {
	f := newFixture(t, shirt(), protectionLine("111"), protectionLine("222"))

	status, err := f.service.Disable(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, status.Protected)
	require.Len(t, status.Cart.Items, 1)
	assert.Equal(t, "1", status.Cart.Items[0].ID)

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ProtectionActionRemoved, events[0].Action)
	assert.Equal(t, []string{"111", "222"}, events[0].ReplacedItemIDs)
}

func TestService_DisableWithoutProtection(t *testing.T) {
	f := newFixture(t, shirt())

	status, err := f.service.Disable(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, status.Protected)
	assert.Zero(t, f.carts.updates)

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].ReplacedItemIDs)
}

func TestService_DisableTransportFailure(t *testing.T) {
	f := newFixture(t, protectionLine("111"))
	f.carts.err = &providers.TransportError{Platform: "shopify", Op: "getCart", Cause: context.DeadlineExceeded}

	_, err := f.service.Disable(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Succeeded())
	assert.Nil(t, events[0].StatusCode)
}

func TestService_SetAttributes(t *testing.T) {
	f := newFixture(t, shirt())

	status, err := f.service.SetAttributes(context.Background(), map[string]any{"note": "gift"})
	require.NoError(t, err)
	assert.False(t, status.Protected)
	assert.Equal(t, 1, f.carts.updates)

	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ProtectionActionAttributesSet, events[0].Action)
}

func TestService_SetAttributesRequiresAttributes(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SetAttributes(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
	assert.Zero(t, f.carts.updates)
}

func TestService_RecorderFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, shirt())
	f.recorder.ExpectedCalls = nil
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(errors.New("buffer full"))

	_, err := f.service.Enable(context.Background(), EnableInput{})
	assert.NoError(t, err)
}

func TestService_NilRecorderUsesNop(t *testing.T) {
	carts := &fakeCarts{cart: &providers.Cart{}}
	service := NewService(&providers.Platform{Name: "shopify", Carts: carts, Products: &fakeProducts{
		variants: []providers.Product{{ID: "1"}},
	}}, nil, nil)

	_, err := service.Enable(context.Background(), EnableInput{})
	assert.NoError(t, err)
}

func TestZeroed(t *testing.T) {
	assert.Equal(t, []string{"111", "222"}, zeroed(map[string]int{"222": 0, "999": 1, "111": 0}))
	assert.Empty(t, zeroed(map[string]int{"999": 1}))
}
