package order

import (
	"context"
	"time"

	invoiceRepo "marketplace/database/repository/invoice"
	orderRepo "marketplace/database/repository/order"
	pipelineRepo "marketplace/database/repository/pipeline"
	productRepo "marketplace/database/repository/product"
	"marketplace/models"
	"marketplace/services/storage"
	"marketplace/services/tasks"

	"go.uber.org/zap"
)

type OrderService interface {
	// Placement
	PlaceOrder(ctx context.Context, customer models.User, items []models.OrderItemInput) (*models.Order, error)

	// Customer reads
	ListOrders(ctx context.Context, customerID string, status *models.OrderStatus) ([]models.Order, error)
	GetOrderDetail(ctx context.Context, requester models.User, orderID string) (*models.Order, error)
	GetInvoice(ctx context.Context, requester models.User, orderID string) ([]byte, error)

	// Seller reads
	ListSellerOrders(ctx context.Context, seller models.User, status *models.OrderStatus) ([]models.SellerOrder, error)
}

// DefaultOrderService is the production implementation.
type DefaultOrderService struct {
	Products productRepo.ProductRepository
	Orders   orderRepo.OrderRepository
	Invoices invoiceRepo.InvoiceRepository
	Chains   pipelineRepo.ChainRepository
	Blobs    storage.BlobStore
	Enqueuer tasks.ChainEnqueuer
	Logger   *zap.Logger

	// Now is the clock used for order timestamps.
	Now func() time.Time
}

func (s *DefaultOrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
