package invoiceRepo

import (
	"context"
	"errors"

	"marketplace/models"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceRepository stores the 1:1 order → invoice document reference.
type InvoiceRepository interface {
	// CreateIfAbsent inserts inv unless the order already has an invoice.
	// created reports whether this call inserted it.
	CreateIfAbsent(ctx context.Context, inv *models.Invoice) (created bool, err error)
	// GetByOrderID returns the invoice of an order, or ErrInvoiceNotFound.
	GetByOrderID(ctx context.Context, orderID string) (*models.Invoice, error)
}
