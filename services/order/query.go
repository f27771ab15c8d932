package order

import (
	"context"
	"errors"
	"fmt"

	invoiceRepo "marketplace/database/repository/invoice"
	orderRepo "marketplace/database/repository/order"
	"marketplace/models"
	"marketplace/services/storage"
	"marketplace/utils"
)

// ListOrders returns the customer's orders, newest first.
func (s *DefaultOrderService) ListOrders(ctx context.Context, customerID string, status *models.OrderStatus) ([]models.Order, error) {
	orders, err := s.Orders.ListByCustomer(ctx, customerID, orderRepo.ListFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrderDetail returns an order with its items if requester owns it.
func (s *DefaultOrderService) GetOrderDetail(ctx context.Context, requester models.User, orderID string) (*models.Order, error) {
	return s.ownedOrder(ctx, requester, orderID)
}

// GetInvoice returns the invoice PDF of an order owned by requester.
func (s *DefaultOrderService) GetInvoice(ctx context.Context, requester models.User, orderID string) ([]byte, error) {
	if _, err := s.ownedOrder(ctx, requester, orderID); err != nil {
		return nil, err
	}

	inv, err := s.Invoices.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, invoiceRepo.ErrInvoiceNotFound) {
			return nil, utils.NewNotFound("Invoice", map[string]any{"invoice_status": s.invoiceStatus(ctx, orderID)})
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	data, err := s.Blobs.Get(ctx, inv.BlobName)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, utils.NewNotFound("Invoice", map[string]any{"invoice_status": s.invoiceStatus(ctx, orderID)})
		}
		return nil, utils.NewExternalServiceFailure("Invoice storage", err)
	}
	return data, nil
}

// ListSellerOrders returns orders containing the seller's products.
func (s *DefaultOrderService) ListSellerOrders(ctx context.Context, seller models.User, status *models.OrderStatus) ([]models.SellerOrder, error) {
	if seller.Role != models.RoleSeller {
		return nil, utils.NewForbidden("Only sellers can list seller orders")
	}
	orders, err := s.Orders.ListBySeller(ctx, seller.ID, orderRepo.ListFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	return orders, nil
}

func (s *DefaultOrderService) ownedOrder(ctx context.Context, requester models.User, orderID string) (*models.Order, error) {
	order, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderRepo.ErrOrderNotFound) {
			return nil, utils.NewNotFound("Order", nil)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.CustomerID != requester.ID {
		return nil, utils.NewForbidden("You do not have permission to access this order")
	}
	return order, nil
}

// invoiceStatus reports how far invoice generation got, for clients polling for it.
func (s *DefaultOrderService) invoiceStatus(ctx context.Context, orderID string) models.StageStatus {
	chain, err := s.Chains.Get(ctx, orderID)
	if err != nil {
		return models.StagePending
	}
	return chain.Stages.Invoice.Status
}
