package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/shoplite/shoplite-golang/internal/orders"
)

//
// --- Order Handlers ---
//

// CreateOrderInput defines the JSON for placing an order. Prices are
// deliberately absent: the server resolves them from the catalog.
type CreateOrderInput struct {
	Items []orders.ItemInput `json:"items" binding:"required"`
}

// CreateOrder is the handler for POST /api/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	// 1. --- Bind & Validate JSON ---
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request data"})
		return
	}

	// 2. --- Optional Idempotency Guard ---
	if !h.claimIdempotencyKey(c) {
		return
	}

	// 3. --- Run the Order Transaction ---
	order, err := h.Orders.CreateOrder(c.Request.Context(), userID, input.Items)
	if err != nil {
		h.Metrics.Orders.WithLabelValues("failed").Inc()
		switch {
		case errors.Is(err, orders.ErrEmptyOrder), errors.Is(err, orders.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case errors.Is(err, orders.ErrProductNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Order creation failed"})
		}
		return
	}

	// 4. --- Record Success & Publish ---
	h.Metrics.Orders.WithLabelValues("success").Inc()
	h.Metrics.CartOps.WithLabelValues("checkout").Inc()
	if h.Events.Enabled() {
		// Best effort, off the request path.
		go h.Events.PublishOrderCreated(context.Background(), order)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Order created",
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"order":        order,
	})
}

// claimIdempotencyKey reserves the request's Idempotency-Key in Redis for 24
// hours. A replayed key is rejected with 409 before the executor runs. With
// Redis unconfigured or the header absent this is a no-op.
func (h *Handlers) claimIdempotencyKey(c *gin.Context) bool {
	if h.RDB == nil {
		return true
	}
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if key == "" {
		return true
	}

	redisKey := "idempotency-key:" + key
	claimed, err := h.RDB.SetNX(c.Request.Context(), redisKey, "claimed", 24*time.Hour).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Idempotency check failed"})
		return false
	}
	if !claimed {
		c.JSON(http.StatusConflict, gin.H{"message": "Duplicate order request"})
		return false
	}
	return true
}

// GetMyOrders is the handler for GET /api/orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	list, err := h.Orders.OrdersByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOrder is the handler for GET /api/orders/:id. Orders are only visible
// to the user that placed them; anything else reads as not found.
func (h *Handlers) GetOrder(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order id"})
		return
	}

	order, err := h.Orders.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch order"})
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}
