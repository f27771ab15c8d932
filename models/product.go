package models

import "github.com/shopspring/decimal"

// Product is a catalog entry owned by a seller.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	SellerID    string          `json:"sellerId"`
}
