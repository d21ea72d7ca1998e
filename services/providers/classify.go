package providers

import "strings"

// IsProtectionHandle reports whether a line item handle denotes a protection
// item: it must contain both "order" and "protect", case-insensitively, in any order.
func IsProtectionHandle(handle string) bool {
	h := strings.ToLower(handle)
	return strings.Contains(h, "order") && strings.Contains(h, "protect")
}

// ProtectionItems returns the protection items of cart in cart order
func ProtectionItems(cart *Cart) []CartItem {
	if cart == nil {
		return nil
	}

	items := make([]CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if IsProtectionHandle(item.Handle) {
			items = append(items, item)
		}
	}
	return items
}
