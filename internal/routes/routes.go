package routes

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/shoplite/shoplite-golang/internal/handlers"
	"github.com/shoplite/shoplite-golang/internal/middleware"
)

// CORSMiddleware lets the browser frontend talk to us with credentials.
// The allowed origin is configurable so deployments can pin their own
// frontend host.
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(CORSMiddleware())
	router.Use(h.Metrics.Middleware())

	api := router.Group("/api")
	{
		// --- Metrics (Prometheus scrape target) ---
		api.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

		// --- Health Routes (Public) ---
		health := api.Group("/health")
		{
			health.GET("/health", h.Health)
			health.GET("/live", h.Live)
			health.GET("/ready", h.Ready)
		}

		// --- Auth Routes (Public) ---
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Signup)
			auth.POST("/login", h.Login)
			auth.POST("/logout", h.Logout)
			auth.GET("/status", middleware.AuthMiddleware(), h.AuthStatus)
		}

		// --- Public Product Routes ---
		api.GET("/products", h.GetAllProducts)
		api.GET("/products/:id", h.GetProduct)

		// --- Admin Product Routes ---
		admin := api.Group("/")
		admin.Use(middleware.AuthMiddleware())
		admin.Use(middleware.AdminMiddleware(h.Pool))
		{
			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
		}

		// --- Protected Routes (Login Required) ---
		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware())
		{
			authed.GET("/cart", h.GetCart)
			authed.POST("/cart", h.AddToCart)
			authed.DELETE("/cart", h.RemoveFromCart)

			authed.POST("/orders", h.CreateOrder)
			authed.GET("/orders", h.GetMyOrders)
			authed.GET("/orders/:id", h.GetOrder)
		}
	}

	return router
}
