package models

// Product is a static catalog entry. The catalog is fixed at two SKUs;
// it is not persisted.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tokens     int    `json:"tokens"`
	Price      string `json:"price"`
	PriceCents int    `json:"price_cents"`
	Popular    bool   `json:"popular,omitempty"`
}

// Products is the fixed product catalog, keyed by public product id.
var Products = map[string]Product{
	"basic": {
		ID:         "basic",
		Name:       "3 Checks",
		Tokens:     3,
		Price:      "$7.99",
		PriceCents: 799,
	},
	"standard": {
		ID:         "standard",
		Name:       "10 Checks",
		Tokens:     10,
		Price:      "$19.99",
		PriceCents: 1999,
		Popular:    true,
	},
}

// ProductList returns the catalog in display order.
func ProductList() []Product {
	return []Product{Products["basic"], Products["standard"]}
}
