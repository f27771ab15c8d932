package handlers

import (
	"strings"
	"time"

	"marketplace/models"
)

type orderItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid_rfc4122"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	ProductsData []orderItemRequest `json:"products_data" binding:"required,min=1,dive"`
}

func (r createOrderRequest) items() []models.OrderItemInput {
	items := make([]models.OrderItemInput, 0, len(r.ProductsData))
	for _, p := range r.ProductsData {
		// Product ids are stored lowercase.
		items = append(items, models.OrderItemInput{ProductID: strings.ToLower(p.ProductID), Quantity: p.Quantity})
	}
	return items
}

// Money is rendered as a fixed 2-decimal string so clients never see float rounding.
type orderResponse struct {
	ID          string             `json:"id"`
	TotalAmount string             `json:"total_amount"`
	Status      models.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

type orderItemResponse struct {
	ProductID          string `json:"product_id"`
	ProductName        string `json:"product_name"`
	Quantity           int    `json:"quantity"`
	UnitPrice          string `json:"unit_price"`
	ProductTotalAmount string `json:"product_total_amount"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

type sellerOrderResponse struct {
	ID                string             `json:"id"`
	CustomerID        string             `json:"customer_id"`
	Status            models.OrderStatus `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	SellerTotalAmount string             `json:"seller_total_amount"`
}

func toOrderResponse(o models.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

func toOrderDetailResponse(o *models.Order) orderDetailResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:          li.ProductID,
			ProductName:        li.ProductName,
			Quantity:           li.Quantity,
			UnitPrice:          li.UnitPrice.StringFixed(2),
			ProductTotalAmount: li.Total().StringFixed(2),
		})
	}
	return orderDetailResponse{orderResponse: toOrderResponse(*o), Items: items}
}

func toSellerOrderResponse(so models.SellerOrder) sellerOrderResponse {
	return sellerOrderResponse{
		ID:                so.OrderID,
		CustomerID:        so.CustomerID,
		Status:            so.Status,
		CreatedAt:         so.CreatedAt,
		SellerTotalAmount: so.SellerTotalAmount.StringFixed(2),
	}
}
