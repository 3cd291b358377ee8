package domain

import "github.com/shopspring/decimal"

// Item is a single cart line. Name, price and image are captured when
// the product is first added and never re-fetched; adding the same
// product again only bumps the quantity.
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

// Add merges candidate into items. If an item with the same ID already
// exists its quantity is incremented and the stored name/price/image
// are kept as-is; otherwise the candidate is appended with quantity 1.
// The input slice is never modified.
func Add(items []Item, candidate Item) []Item {
	next := make([]Item, len(items), len(items)+1)
	copy(next, items)

	for i := range next {
		if next[i].ID == candidate.ID {
			next[i].Quantity++
			return next
		}
	}

	candidate.Quantity = 1
	return append(next, candidate)
}

// Remove returns items without the line matching id. Removing an id
// that is not present is a no-op, not an error.
func Remove(items []Item, id string) []Item {
	next := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			next = append(next, item)
		}
	}
	return next
}

// SetQuantity sets the quantity of the line matching id to an absolute
// value. A quantity of zero or less removes the line entirely; a line
// is never kept with a non-positive quantity. Unknown ids are a no-op.
func SetQuantity(items []Item, id string, quantity int) []Item {
	if quantity <= 0 {
		return Remove(items, id)
	}

	next := make([]Item, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ID == id {
			next[i].Quantity = quantity
			break
		}
	}
	return next
}

// Total recomputes the cart total from scratch as the sum of
// price x quantity over all lines.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Count returns the sum of all line quantities, not the number of
// distinct lines. This is the number behind any "N items" display.
func Count(items []Item) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
