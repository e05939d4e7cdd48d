package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Only 'pending' is produced at creation time; the
// remaining states are reached by later fulfilment steps.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusCancelled = "cancelled"
)

// Order is the model for the 'orders' table.
type Order struct {
	ID          int64           `json:"order_id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	Items       []OrderItem     `json:"items" db:"-"`
}

// OrderItem is the model for the 'order_items' table.
// PriceAtTime is the catalog price captured when the order was placed;
// it never changes afterwards, even if the product is repriced.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"orderId" db:"order_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name,omitempty" db:"-"`
	Quantity    int             `json:"quantity" db:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time" db:"price_at_time"`
}
