package model

import "time"

// Product represents a row in the `products` table. A product belongs to the
// seller who listed it.
type Product struct {
	ID          uint64    // products.id
	SellerID    uint64    // products.seller_id
	Title       string    // products.title
	Description string    // products.description (nullable)
	Price       float64   // products.price
	Currency    string    // products.currency (ISO 4217, default USD)
	ImageURL    string    // products.image_url (nullable)
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}

// ProductStats summarises the catalogue for the dashboard.
type ProductStats struct {
	Total int64 // all products
	Mine  int64 // products listed by the current user
}
