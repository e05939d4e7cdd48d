package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/shoplite/shoplite-golang/internal/models"
)

//
// --- Cart Handlers ---
//

// GetCart is the handler for GET /api/cart. It returns every cart row for
// the authenticated user joined with the live product name and price.
func (h *Handlers) GetCart(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	query := `
		SELECT ci.product_id, ci.quantity, p.name, p.price
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = ?`

	rows, err := conn.QueryContext(c.Request.Context(), query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve cart items"})
		return
	}
	defer rows.Close()

	items := []models.CartItemView{}
	for rows.Next() {
		var item models.CartItemView
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Name, &item.Price); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan cart item"})
			return
		}
		item.TotalPrice = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve cart items"})
		return
	}

	if len(items) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Cart is empty", "cart_items": items})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart items retrieved successfully", "cart_items": items})
}

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// AddToCart is the handler for POST /api/cart. Adding a product already in
// the cart increments its quantity (one row per user/product pair).
func (h *Handlers) AddToCart(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "'product_id' is required", "error": err.Error()})
		return
	}

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	// The UNIQUE(user_id, product_id) key turns the second add into a
	// quantity increment.
	_, err = conn.ExecContext(c.Request.Context(), `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		userID, input.ProductID, input.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add product to cart"})
		return
	}

	h.Metrics.CartOps.WithLabelValues("add").Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "Product added to cart successfully"})
}

// RemoveFromCartInput defines the JSON for removing an item from the cart.
type RemoveFromCartInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// RemoveFromCart is the handler for DELETE /api/cart
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input RemoveFromCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "'product_id' is required"})
		return
	}

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	result, err := conn.ExecContext(c.Request.Context(),
		"DELETE FROM cart_items WHERE user_id = ? AND product_id = ?",
		userID, input.ProductID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove product from cart"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found in cart"})
		return
	}

	h.Metrics.CartOps.WithLabelValues("remove").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Product removed from cart successfully"})
}
