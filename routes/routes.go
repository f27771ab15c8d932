package routes

import (
	"net/http"
	"time"

	"marketplace/handlers"
	"marketplace/middleware"
	"marketplace/models"
	"marketplace/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterOrderRoutes registers the order endpoints. Every route requires a
// valid bearer token.
func RegisterOrderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/orders")
	{
		api.Use(middleware.JWTAuthUserMiddleware(hb.JWT, hb.UserRepo, hb.AuthCache))
		api.POST("/create/", hb.CreateOrderHandler)
		api.GET("/", hb.ListOrdersHandler)
		api.GET("/seller/", middleware.RequireRole(models.RoleSeller), hb.ListSellerOrdersHandler)
		api.GET("/:id/", hb.GetOrderDetailHandler)
		api.GET("/:id/invoice/", hb.GetInvoiceHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	logger := hb.Logger
	if logger == nil {
		logger = zap.L()
	}

	r.Use(utils.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin))

	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		utils.JSONError(c, http.StatusNotFound, "Not found.", nil)
	})
	r.NoMethod(func(c *gin.Context) {
		utils.JSONError(c, http.StatusMethodNotAllowed, "Method \""+c.Request.Method+"\" not allowed.", nil)
	})

	RegisterHealthRoute(r)
	RegisterOrderRoutes(r, hb)
}
