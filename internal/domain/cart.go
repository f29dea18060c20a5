package domain

import "time"

// LineItem is one product-and-quantity entry within a cart. UnitPrice is
// always a normalized numeric amount, never a formatted string. Quantity is
// at least 1; a line that would drop to 0 is removed, never stored.
type LineItem struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	ImageURL  string    `json:"image_url,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Qualities []string  `json:"qualities,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// CartSnapshot is an immutable, fully-computed view of cart contents and
// derived totals at a point in time. Monetary figures are rounded to 2
// decimal places, half away from zero.
type CartSnapshot struct {
	Items      []LineItem `json:"items"`
	ItemCount  int        `json:"item_count"`
	Subtotal   float64    `json:"subtotal"`
	Shipping   float64    `json:"shipping"`
	Tax        float64    `json:"tax"`
	Total      float64    `json:"total"`
	Currency   string     `json:"currency"`
	CapturedAt time.Time  `json:"captured_at"`
}

func (s CartSnapshot) Empty() bool {
	return len(s.Items) == 0
}

// ShippingAddress is persisted alongside the cart for checkout convenience.
// Required-field presence is enforced by the checkout flow, not here.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a ShippingAddress) Complete() bool {
	return a.FullName != "" && a.Address != "" && a.City != "" &&
		a.PostalCode != "" && a.Country != ""
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentCard           PaymentMethod = "Card"
)
