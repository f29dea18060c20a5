package domain

// Product is a catalog record as returned by the external product API.
// Price arrives numeric or as a currency string; the Price type normalizes
// it while decoding.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       Price    `json:"price"`
	ImageURL    string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	Qualities   []string `json:"qualities,omitempty"`
}
