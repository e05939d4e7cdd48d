package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/shoplite/shoplite-golang/internal/models"
)

//
// --- Product Handlers ---
//

// GetAllProducts is the handler for GET /api/products
func (h *Handlers) GetAllProducts(c *gin.Context) {
	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	rows, err := conn.QueryContext(c.Request.Context(),
		"SELECT id, name, slug, price, created_at FROM products ORDER BY id")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct is the handler for GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product id"})
		return
	}

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	var p models.Product
	err = conn.QueryRowContext(c.Request.Context(),
		"SELECT id, name, slug, price, created_at FROM products WHERE id = ?",
		productID).Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// CreateProductInput defines the JSON for creating a product.
type CreateProductInput struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price" binding:"required"`
}

// CreateProduct is the handler for POST /api/products (admin only).
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name is required and price must be a positive number"})
		return
	}
	if input.Price.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name is required and price must be a positive number"})
		return
	}

	// 2. --- Insert ---
	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	now := time.Now()
	productSlug := slug.Make(input.Name)
	result, err := conn.ExecContext(c.Request.Context(),
		"INSERT INTO products (name, slug, price, created_at) VALUES (?, ?, ?, ?)",
		input.Name, productSlug, input.Price, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create product"})
		return
	}
	productID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": models.Product{
			ID:        productID,
			Name:      input.Name,
			Slug:      productSlug,
			Price:     input.Price,
			CreatedAt: now,
		},
	})
}

// UpdateProductInput defines the JSON for a partial product update. At least
// one field must be present.
type UpdateProductInput struct {
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// UpdateProduct is the handler for PUT /api/products/:id (admin only).
func (h *Handlers) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product id"})
		return
	}

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No data provided"})
		return
	}
	if input.Name == nil && input.Price == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "At least one field (name or price) is required"})
		return
	}
	if input.Price != nil && input.Price.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Price must be a positive number"})
		return
	}

	// Build the UPDATE one column at a time so untouched fields keep
	// their values.
	query := "UPDATE products SET "
	args := []interface{}{}
	if input.Name != nil {
		query += "name = ?, slug = ?, "
		args = append(args, *input.Name, slug.Make(*input.Name))
	}
	if input.Price != nil {
		query += "price = ?, "
		args = append(args, *input.Price)
	}
	query = query[:len(query)-2] + " WHERE id = ?"
	args = append(args, productID)

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	result, err := conn.ExecContext(c.Request.Context(), query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update product"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully"})
}

// DeleteProduct is the handler for DELETE /api/products/:id (admin only).
func (h *Handlers) DeleteProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product id"})
		return
	}

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	result, err := conn.ExecContext(c.Request.Context(),
		"DELETE FROM products WHERE id = ?", productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete product"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
