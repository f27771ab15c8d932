// File: models/order.go
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusFailed     OrderStatus = "Failed"
)

// ParseOrderStatus validates a raw status value (e.g. from a query string).
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(raw); s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("invalid order status %q", raw)
}

// Order is one checkout transaction. TotalAmount always equals the sum of the
// line item totals captured at creation time.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	Items       []LineItem      `json:"items,omitempty"`
}

// ComputeTotal sums the line totals of the order's items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

// LineItem is one product within an order. Name and unit price are a snapshot
// of the catalog at order time and never change afterwards.
type LineItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	SellerID    string          `json:"sellerId"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

// Total returns unit price × quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderItemInput is a requested (product, quantity) pair.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// SellerOrder is an order seen from one seller: only that seller's share of
// the total is reported.
type SellerOrder struct {
	OrderID           string          `json:"orderId"`
	CustomerID        string          `json:"customerId"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	SellerTotalAmount decimal.Decimal `json:"sellerTotalAmount"`
}
