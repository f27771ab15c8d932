package orderRepo

import (
	"context"
	"errors"

	"marketplace/models"
)

var ErrOrderNotFound = errors.New("order not found")

// ListFilter narrows an order listing. A nil Status matches every status.
type ListFilter struct {
	Status *models.OrderStatus
}

// OrderRepository persists orders together with their line items.
type OrderRepository interface {
	// CreateWithItems writes the order, its items and its chain record in one transaction.
	CreateWithItems(ctx context.Context, order *models.Order, chain *models.OrderChain) error
	// GetByID returns the order with its items, or ErrOrderNotFound.
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// ListByCustomer returns the customer's orders, newest first, without items.
	ListByCustomer(ctx context.Context, customerID string, filter ListFilter) ([]models.Order, error)
	// ListBySeller returns orders containing the seller's products with the seller's subtotal.
	ListBySeller(ctx context.Context, sellerID string, filter ListFilter) ([]models.SellerOrder, error)
	// Delete removes an order and its items.
	Delete(ctx context.Context, id string) error
}
