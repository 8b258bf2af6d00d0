package domain

const (
	// TaxRate is applied to the subtotal at checkout.
	TaxRate = 0.10

	// FreeShippingThreshold is the subtotal above which shipping is free.
	FreeShippingThreshold = 50.0

	// FlatShippingFee applies when the subtotal does not exceed the threshold.
	FlatShippingFee = 5.0
)

type Pricing struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// PriceCart computes the checkout pricing for a cart: 10% tax on the
// subtotal, flat shipping unless the subtotal exceeds the free-shipping
// threshold.
func PriceCart(c *Cart) Pricing {
	subtotal := c.Subtotal()

	shipping := FlatShippingFee
	if subtotal > FreeShippingThreshold {
		shipping = 0
	}
	if subtotal == 0 {
		shipping = 0
	}

	tax := subtotal * TaxRate

	return Pricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}
