package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

type CheckoutStatus string

const (
	CheckoutStatusInitiated        CheckoutStatus = "INITIATED"
	CheckoutStatusPaymentPending   CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusPaymentCompleted CheckoutStatus = "PAYMENT_COMPLETED"
	CheckoutStatusCompleted        CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed           CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:        {CheckoutStatusPaymentPending, CheckoutStatusCompleted, CheckoutStatusFailed},
	CheckoutStatusPaymentPending:   {CheckoutStatusPaymentCompleted, CheckoutStatusFailed},
	CheckoutStatusPaymentCompleted: {CheckoutStatusCompleted},
}

// CanTransitionTo reports whether a checkout session may move from
// status from to status to. Terminal statuses have no exits.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CartSnapshotItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int32   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// CartSnapshot represents the full cart state at checkout time,
// including the computed pricing.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	Subtotal    float64            `json:"subtotal"`
	Tax         float64            `json:"tax"`
	Shipping    float64            `json:"shipping"`
	TotalAmount float64            `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// SnapshotCart freezes the cart items and pricing for a checkout session.
func SnapshotCart(c *Cart, now time.Time) *CartSnapshot {
	pricing := PriceCart(c)

	items := make([]CartSnapshotItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = CartSnapshotItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    int32(item.Quantity),
			UnitPrice:   item.Price,
			Subtotal:    item.Price * float64(item.Quantity),
		}
	}

	return &CartSnapshot{
		Items:       items,
		Subtotal:    pricing.Subtotal,
		Tax:         pricing.Tax,
		Shipping:    pricing.Shipping,
		TotalAmount: pricing.Total,
		Currency:    "USD",
		CapturedAt:  now,
	}
}
