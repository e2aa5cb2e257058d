package cart

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Totals is the price breakdown of a cart.
type Totals struct {
	Subtotal        int64           `json:"subtotal"`
	DiscountPercent int             `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Total           decimal.Decimal `json:"total"`
	LoyaltyPoints   int             `json:"loyalty_points"`
}

// ComputeTotals prices items with a percentage discount. The discount is
// kept exact; a 10% discount on 155 is 15.5, not 15.
func ComputeTotals(items []Item, discountPercent int) Totals {
	var subtotal int64
	var points int
	for _, it := range items {
		subtotal += it.Product.Price * int64(it.Quantity)
		points += it.Product.Points * it.Quantity
	}

	sub := decimal.NewFromInt(subtotal)
	discount := sub.Mul(decimal.NewFromInt(int64(discountPercent))).Div(hundred)

	return Totals{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		Total:           sub.Sub(discount),
		LoyaltyPoints:   points,
	}
}
