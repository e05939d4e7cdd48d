package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shoplite/shoplite-golang/internal/models"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "orders").Logger()

// Failure taxonomy for order placement. Handlers map these onto HTTP
// statuses with errors.Is; everything else is a server error.
var (
	// ErrEmptyOrder rejects a checkout with no items.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity rejects any line with a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrProductNotFound rejects the whole order when any requested
	// product id does not exist in the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrDatabaseUnavailable means no connection could be acquired; no
	// partial state was created.
	ErrDatabaseUnavailable = errors.New("database unavailable")
	// ErrTransactionFailed means a statement failed mid-transaction and
	// the whole order was rolled back.
	ErrTransactionFailed = errors.New("order transaction failed")
	// ErrOrderNotFound is a valid empty read result, not a failure.
	ErrOrderNotFound = errors.New("order not found")
)

// ConnSource hands out exclusively-owned database connections and takes
// them back. Satisfied by *database.Pool.
type ConnSource interface {
	Conn(ctx context.Context) (*sql.Conn, error)
	Release(conn *sql.Conn)
}

// ItemInput is one requested (product, quantity) pair. Prices are never
// accepted from the client; they are resolved from the catalog inside the
// order transaction.
type ItemInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// Executor turns a cart checkout into a persisted order atomically: price
// resolution, the order header, its line items and the cart clear all commit
// together or not at all.
type Executor struct {
	pool ConnSource
}

func NewExecutor(pool ConnSource) *Executor {
	return &Executor{pool: pool}
}

// CreateOrder places an order for the given user.
//
// It acquires one connection for the duration of a single transaction,
// resolves the current catalog price of every requested product, computes
// the total with fixed-precision decimals, inserts the order header plus one
// line item per request (capturing price_at_time from the same resolution),
// deletes every cart row belonging to the user, and commits. Any failure
// rolls the entire transaction back; the connection is released on every
// exit path.
func (e *Executor) CreateOrder(ctx context.Context, userID int64, items []ItemInput) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
	}

	conn, err := e.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	defer e.pool.Release(conn)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
	}
	// Rollback is a no-op once the transaction has committed.
	defer tx.Rollback()

	order, err := e.createOrderTx(ctx, tx, userID, items)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("order creation rolled back")
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}

	logger.Info().
		Int64("order_id", order.ID).
		Int64("user_id", userID).
		Str("total_amount", order.TotalAmount.String()).
		Msg("order created")
	return order, nil
}

func (e *Executor) createOrderTx(ctx context.Context, tx *sql.Tx, userID int64, items []ItemInput) (*models.Order, error) {
	// Resolve current catalog prices first. The resolved price is reused
	// verbatim for price_at_time so there is no window for a repricing
	// race between the read and the insert.
	lines := make([]models.OrderItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		var price decimal.Decimal
		err := tx.QueryRowContext(ctx, "SELECT price FROM products WHERE id = ?", item.ProductID).Scan(&price)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: price lookup: %v", ErrTransactionFailed, err)
		}

		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, models.OrderItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtTime: price,
		})
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, total_amount, status, created_at) VALUES (?, ?, ?, ?)",
		userID, total, models.OrderStatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("%w: insert order: %v", ErrTransactionFailed, err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: order id: %v", ErrTransactionFailed, err)
	}

	for i := range lines {
		lines[i].OrderID = orderID
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES (?, ?, ?, ?)",
			orderID, lines[i].ProductID, lines[i].Quantity, lines[i].PriceAtTime)
		if err != nil {
			return nil, fmt.Errorf("%w: insert order item: %v", ErrTransactionFailed, err)
		}
	}

	// Checkout clears the whole cart, regardless of which products were
	// actually ordered.
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("%w: clear cart: %v", ErrTransactionFailed, err)
	}

	return &models.Order{
		ID:          orderID,
		UserID:      userID,
		TotalAmount: total,
		Status:      models.OrderStatusPending,
		CreatedAt:   now,
		Items:       lines,
	}, nil
}

// GetOrderByID reconstructs one order aggregate, line items and product
// names included, in a single joined read. Orders without items still read
// back (left join), matching OrdersByUser. Returns ErrOrderNotFound when no
// rows match.
func (e *Executor) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	conn, err := e.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	defer e.pool.Release(conn)

	query := `
		SELECT o.id, o.user_id, o.total_amount, o.status, o.created_at,
		       oi.product_id, oi.quantity, oi.price_at_time, p.name
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE o.id = ?`

	rows, err := conn.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order %d: %w", orderID, err)
	}
	defer rows.Close()

	var order *models.Order
	for rows.Next() {
		var (
			o           models.Order
			productID   sql.NullInt64
			quantity    sql.NullInt64
			priceAtTime decimal.NullDecimal
			productName sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt,
			&productID, &quantity, &priceAtTime, &productName); err != nil {
			return nil, fmt.Errorf("scan order %d: %w", orderID, err)
		}
		if order == nil {
			o.Items = []models.OrderItem{}
			order = &o
		}
		if productID.Valid {
			order.Items = append(order.Items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   productID.Int64,
				ProductName: productName.String,
				Quantity:    int(quantity.Int64),
				PriceAtTime: priceAtTime.Decimal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order %d: %w", orderID, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// OrdersByUser lists every order belonging to a user, newest first, each
// with its line items. Orders without items still appear (left join).
func (e *Executor) OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	conn, err := e.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	defer e.pool.Release(conn)

	query := `
		SELECT o.id, o.user_id, o.total_amount, o.status, o.created_at,
		       oi.product_id, oi.quantity, oi.price_at_time, p.name
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	var (
		orders  []models.Order
		indexOf = map[int64]int{}
	)
	for rows.Next() {
		var (
			o           models.Order
			productID   sql.NullInt64
			quantity    sql.NullInt64
			priceAtTime decimal.NullDecimal
			productName sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt,
			&productID, &quantity, &priceAtTime, &productName); err != nil {
			return nil, fmt.Errorf("scan orders for user %d: %w", userID, err)
		}

		idx, seen := indexOf[o.ID]
		if !seen {
			o.Items = []models.OrderItem{}
			orders = append(orders, o)
			idx = len(orders) - 1
			indexOf[o.ID] = idx
		}
		if productID.Valid {
			orders[idx].Items = append(orders[idx].Items, models.OrderItem{
				OrderID:     o.ID,
				ProductID:   productID.Int64,
				ProductName: productName.String,
				Quantity:    int(quantity.Int64),
				PriceAtTime: priceAtTime.Decimal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders for user %d: %w", userID, err)
	}
	return orders, nil
}
