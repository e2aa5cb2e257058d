package cart

import "strings"

// Coupon codes accepted at the cart.
const (
	CodeStandard = "SKIN10"
	CodeReward   = "LUCKY10"
)

// Coupon maps a code to a percentage discount.
type Coupon struct {
	Code    string
	Percent int
	message string
}

var coupons = []Coupon{
	{Code: CodeStandard, Percent: 10, message: "کد تخفیف با موفقیت اعمال شد!"},
	{Code: CodeReward, Percent: 10, message: "کد تخفیف گردونه شانس اعمال شد!"},
}

// LookupCoupon matches code against the coupon table, ignoring case and
// surrounding whitespace.
func LookupCoupon(code string) (Coupon, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, c := range coupons {
		if c.Code == normalized {
			return c, true
		}
	}
	return Coupon{}, false
}

// Discount is the coupon currently applied to a cart.
type Discount struct {
	Code    string `json:"code,omitempty"`
	Percent int    `json:"percent"`
}

// Apply replaces the discount with the one granted by code. An unknown
// code clears any existing discount.
func (d *Discount) Apply(code string) Notice {
	c, ok := LookupCoupon(code)
	if !ok {
		*d = Discount{}
		return failure(msgInvalidCoupon)
	}
	*d = Discount{Code: c.Code, Percent: c.Percent}
	return success(c.message)
}
