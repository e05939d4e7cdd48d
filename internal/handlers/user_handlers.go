package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shoplite/shoplite-golang/internal/auth"
	"github.com/shoplite/shoplite-golang/internal/models"
)

//
// --- Auth Handlers ---
//

// CredentialsInput is the JSON body for both signup and login. We never
// accept an id or an is_admin flag from the client.
type CredentialsInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Signup is the handler for POST /api/auth/signup
func (h *Handlers) Signup(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required.", "error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	// 3. --- Get a Connection ---
	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	// 4. --- Reject Duplicate Usernames ---
	var existingID int64
	err = conn.QueryRowContext(c.Request.Context(),
		"SELECT id FROM users WHERE username = ?", input.Username).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already exists."})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check username"})
		return
	}

	// 5. --- Insert the User ---
	result, err := conn.ExecContext(c.Request.Context(),
		"INSERT INTO users (username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?)",
		input.Username, password.Hash, false, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during signup."})
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during signup."})
		return
	}

	// 6. --- Issue a Token ---
	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    gin.H{"user_id": userID, "username": input.Username, "is_admin": false},
		"token":   token,
	})
}

// Login is the handler for POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.Metrics.Logins.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required."})
		return
	}

	// 2. --- Look the User Up ---
	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		h.Metrics.Logins.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	var user models.User
	err = conn.QueryRowContext(c.Request.Context(),
		"SELECT id, username, password_hash, is_admin FROM users WHERE username = ?",
		input.Username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin)
	if err != nil {
		h.Metrics.Logins.WithLabelValues("failed").Inc()
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during login."})
		return
	}

	// 3. --- Verify the Password ---
	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil || !matches {
		h.Metrics.Logins.WithLabelValues("failed").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}

	// 4. --- Issue a Token ---
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		h.Metrics.Logins.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}

	h.Metrics.Logins.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful.",
		"user":    gin.H{"user_id": user.ID, "username": user.Username, "is_admin": user.IsAdmin},
		"token":   token,
	})
}

// Logout is the handler for POST /api/auth/logout. Tokens are stateless, so
// the server has nothing to forget; the client discards its copy.
func (h *Handlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful."})
}

// AuthStatus is the handler for GET /api/auth/status (auth required).
func (h *Handlers) AuthStatus(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	conn, err := h.Pool.Conn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
		return
	}
	defer h.Pool.Release(conn)

	var username string
	err = conn.QueryRowContext(c.Request.Context(),
		"SELECT username FROM users WHERE id = ?", userID).Scan(&username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          gin.H{"user_id": userID, "username": username},
	})
}
