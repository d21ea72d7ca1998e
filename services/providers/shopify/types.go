package shopify

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/upb/order-protection/services/providers"
)

// flexID accepts ids encoded either as JSON numbers or strings
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// Shopify AJAX API request/response types

type cartResponse struct {
	TotalPrice       int64              `json:"total_price"`
	TotalDiscount    *int64             `json:"total_discount"`
	TotalWeight      *float64           `json:"total_weight"`
	ItemCount        int                `json:"item_count"`
	RequiresShipping *bool              `json:"requires_shipping"`
	Currency         string             `json:"currency"`
	Items            []cartItemResponse `json:"items"`
}

type cartItemResponse struct {
	ID               flexID `json:"id"`
	Price            int64  `json:"price"`
	Quantity         *int   `json:"quantity"`
	Title            string `json:"title"`
	ProductTitle     string `json:"product_title"`
	LinePrice        int64  `json:"line_price"`
	SKU              string `json:"sku"`
	Taxable          bool   `json:"taxable"`
	Handle           string `json:"handle"`
	RequiresShipping bool   `json:"requires_shipping"`
}

type productResponse struct {
	ID       flexID            `json:"id"`
	Handle   string            `json:"handle"`
	Variants []variantResponse `json:"variants"`
}

type variantResponse struct {
	ID    flexID `json:"id"`
	Price int64  `json:"price"`
}

type updateRequest struct {
	Updates    map[string]int `json:"updates"`
	Attributes map[string]any `json:"attributes"`
}

type attributesRequest struct {
	Attributes map[string]any `json:"attributes"`
}

// toCart converts the storefront payload into the provider-neutral Cart
func (r *cartResponse) toCart() *providers.Cart {
	cart := &providers.Cart{
		TotalPrice:       r.TotalPrice,
		TotalDiscount:    r.TotalDiscount,
		TotalWeight:      r.TotalWeight,
		ItemCount:        r.ItemCount,
		RequiresShipping: r.RequiresShipping,
		Currency:         r.Currency,
		Items:            make([]providers.CartItem, len(r.Items)),
	}

	for i, item := range r.Items {
		cart.Items[i] = providers.CartItem{
			ID:               string(item.ID),
			Price:            item.Price,
			Quantity:         item.Quantity,
			Title:            item.Title,
			ProductTitle:     item.ProductTitle,
			LinePrice:        item.LinePrice,
			SKU:              item.SKU,
			Taxable:          item.Taxable,
			Handle:           item.Handle,
			RequiresShipping: item.RequiresShipping,
		}
	}

	return cart
}

func (r *productResponse) toProducts() []providers.Product {
	products := make([]providers.Product, len(r.Variants))
	for i, v := range r.Variants {
		products[i] = providers.Product{ID: string(v.ID), Price: v.Price}
	}
	return products
}
