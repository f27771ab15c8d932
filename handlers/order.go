package handlers

import (
	"fmt"
	"net/http"

	"marketplace/middleware"
	"marketplace/models"
	"marketplace/services/order"
	"marketplace/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	OrderService order.OrderService
	Logger       *zap.Logger
}

func NewOrderHandler(svc order.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{OrderService: svc, Logger: logger}
}

// requireUser fetches the authenticated account or aborts with 401.
func requireUser(c *gin.Context) (models.User, bool) {
	usr, ok := middleware.CurrentUser(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
	}
	return usr, ok
}

// statusQuery parses the optional ?status= filter. An empty value means no filter.
func statusQuery(c *gin.Context) (*models.OrderStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	s, err := models.ParseOrderStatus(raw)
	if err != nil {
		return nil, utils.NewInvalidInput("Validation error", map[string][]string{
			"status": {fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw)},
		})
	}
	return &s, nil
}

// CreateOrderHandler handles POST /orders/create/.
func (h *OrderHandler) CreateOrderHandler(c *gin.Context) {
	logger := getLogger(c, h.Logger)
	usr, ok := requireUser(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debug("Invalid order request", zap.Error(err))
		utils.RespondError(c, logger, utils.BindingError(err))
		return
	}

	created, err := h.OrderService.PlaceOrder(c.Request.Context(), usr, req.items())
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*created))
}

// ListOrdersHandler handles GET /orders/?status=.
func (h *OrderHandler) ListOrdersHandler(c *gin.Context) {
	logger := getLogger(c, h.Logger)
	usr, ok := requireUser(c)
	if !ok {
		return
	}

	status, err := statusQuery(c)
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}

	orders, err := h.OrderService.ListOrders(c.Request.Context(), usr.ID, status)
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrderDetailHandler handles GET /orders/:id/.
func (h *OrderHandler) GetOrderDetailHandler(c *gin.Context) {
	logger := getLogger(c, h.Logger)
	usr, ok := requireUser(c)
	if !ok {
		return
	}

	o, err := h.OrderService.GetOrderDetail(c.Request.Context(), usr, c.Param("id"))
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDetailResponse(o))
}

// GetInvoiceHandler handles GET /orders/:id/invoice/ and streams the PDF.
func (h *OrderHandler) GetInvoiceHandler(c *gin.Context) {
	logger := getLogger(c, h.Logger)
	usr, ok := requireUser(c)
	if !ok {
		return
	}
	orderID := c.Param("id")

	pdf, err := h.OrderService.GetInvoice(c.Request.Context(), usr, orderID)
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, models.InvoiceBlobName(orderID)))
	c.Data(http.StatusOK, models.InvoiceContentType, pdf)
}

// ListSellerOrdersHandler handles GET /orders/seller/?status=.
func (h *OrderHandler) ListSellerOrdersHandler(c *gin.Context) {
	logger := getLogger(c, h.Logger)
	usr, ok := requireUser(c)
	if !ok {
		return
	}

	status, err := statusQuery(c)
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}

	orders, err := h.OrderService.ListSellerOrders(c.Request.Context(), usr, status)
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}
	resp := make([]sellerOrderResponse, 0, len(orders))
	for _, so := range orders {
		resp = append(resp, toSellerOrderResponse(so))
	}
	c.JSON(http.StatusOK, resp)
}
