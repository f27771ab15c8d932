package models

import "time"

// InvoiceContentType is the media type of every generated invoice document.
const InvoiceContentType = "application/pdf"

// Invoice points at the generated document of an order. There is at most one
// invoice per order.
type Invoice struct {
	OrderID     string    `json:"orderId"`
	BlobName    string    `json:"blobName"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InvoiceBlobName is the storage name of an order's invoice document.
func InvoiceBlobName(orderID string) string {
	return orderID + ".pdf"
}
