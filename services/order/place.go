package order

import (
	"context"
	"fmt"

	"marketplace/models"
	"marketplace/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const productsField = "products_data"

// PlaceOrder validates the request against the catalog, persists the order,
// its line items and its pending chain atomically, then hands the chain to
// the task queue.
func (s *DefaultOrderService) PlaceOrder(ctx context.Context, customer models.User, items []models.OrderItemInput) (*models.Order, error) {
	ids, err := validateItems(items)
	if err != nil {
		return nil, err
	}

	products, err := s.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	var missing []string
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, utils.NewNotFound("Product", map[string]any{"missing_products": missing})
	}

	order := &models.Order{
		ID:         uuid.New().String(),
		CustomerID: customer.ID,
		Status:     models.OrderStatusPending,
		CreatedAt:  s.now(),
		Items:      make([]models.LineItem, 0, len(items)),
	}
	for _, in := range items {
		p := products[in.ProductID]
		order.Items = append(order.Items, models.LineItem{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			SellerID:    p.SellerID,
			UnitPrice:   p.Price,
			Quantity:    in.Quantity,
		})
	}
	order.TotalAmount = order.ComputeTotal()

	chain := models.NewOrderChain(order.ID, customer.ID, customer.Email, order.CreatedAt)
	if err := s.Orders.CreateWithItems(ctx, order, chain); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	s.Logger.Info("Order placed",
		zap.String("orderID", order.ID),
		zap.String("customerID", customer.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	// The order is durable at this point. A stalled chain is re-queued by the sweeper.
	if err := s.Enqueuer.EnqueueOrderChain(ctx, order.ID, customer.Email); err != nil {
		s.Logger.Error("Failed to enqueue order chain", zap.String("orderID", order.ID), zap.Error(err))
	}
	return order, nil
}

// validateItems returns the product ids in request order.
func validateItems(items []models.OrderItemInput) ([]string, error) {
	if len(items) == 0 {
		return nil, utils.NewInvalidInput("Order must contain at least one product", map[string][]string{
			productsField: {"Ensure this list has at least 1 element(s)."},
		})
	}
	fields := map[string][]string{}
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for i, in := range items {
		if in.ProductID == "" {
			key := fmt.Sprintf("%s[%d].product_id", productsField, i)
			fields[key] = append(fields[key], "This field is required.")
		}
		if in.Quantity < 1 {
			key := fmt.Sprintf("%s[%d].quantity", productsField, i)
			fields[key] = append(fields[key], "Ensure this value is greater than or equal to 1.")
		}
		if in.ProductID == "" {
			continue
		}
		if seen[in.ProductID] {
			fields[productsField] = append(fields[productsField], "duplicate product_id "+in.ProductID)
			continue
		}
		seen[in.ProductID] = true
		ids = append(ids, in.ProductID)
	}
	if len(fields) > 0 {
		return nil, utils.NewInvalidInput("Validation error", fields)
	}
	return ids, nil
}
