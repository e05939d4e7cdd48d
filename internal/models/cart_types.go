package models

import "github.com/shopspring/decimal"

// CartItem is the model for the 'cart_items' table.
// Invariant: at most one row per (user_id, product_id) pair — adds upsert.
type CartItem struct {
	ID        int64 `json:"id" db:"id"`
	UserID    int64 `json:"userId" db:"user_id"`
	ProductID int64 `json:"productId" db:"product_id"`
	Quantity  int   `json:"quantity" db:"quantity"`
}

// CartItemView is a cart row joined with its product for API responses.
type CartItemView struct {
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}
