// File: marketplace/handlers/bundle.go
package handlers

import (
	userRepoPkg "marketplace/database/repository/user"
	"marketplace/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HandlerBundle groups the endpoint handlers and what routes need to guard them.
type HandlerBundle struct {
	UserRepo          userRepoPkg.UserRepository
	JWT               *utils.JWTManager
	AuthCache         *redis.Client
	MaxRequestsPerMin int
	Logger            *zap.Logger

	// Order endpoints
	CreateOrderHandler      gin.HandlerFunc
	ListOrdersHandler       gin.HandlerFunc
	GetOrderDetailHandler   gin.HandlerFunc
	GetInvoiceHandler       gin.HandlerFunc
	ListSellerOrdersHandler gin.HandlerFunc
}

// WithOrderHandler fills the order endpoints from h.
func (hb *HandlerBundle) WithOrderHandler(h *OrderHandler) *HandlerBundle {
	hb.CreateOrderHandler = h.CreateOrderHandler
	hb.ListOrdersHandler = h.ListOrdersHandler
	hb.GetOrderDetailHandler = h.GetOrderDetailHandler
	hb.GetInvoiceHandler = h.GetInvoiceHandler
	hb.ListSellerOrdersHandler = h.ListSellerOrdersHandler
	return hb
}
