package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	orderRepo "marketplace/database/repository/order"
	"marketplace/database/repotest"
	"marketplace/middleware"
	"marketplace/models"
	"marketplace/services/order"
	"marketplace/services/storage"
	"marketplace/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	laptopID = "3f2a1b9c-0d4e-4f5a-8b6c-7d8e9f0a1b2c"
	phoneID  = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
	missingX = "00000000-0000-4000-8000-000000000000"
)

var (
	buyer  = models.User{ID: "customer-1", Email: "buyer@example.com", Role: models.RoleCustomer, IsActive: true}
	other  = models.User{ID: "customer-2", Email: "other@example.com", Role: models.RoleCustomer, IsActive: true}
	seller = models.User{ID: "seller-1", Email: "seller@example.com", Role: models.RoleSeller, IsActive: true}
)

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueOrderChain(context.Context, string, string) error { return nil }

type handlerFixture struct {
	repos  *repotest.Repos
	blobs  storage.BlobStore
	router *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.UseJSONFieldNames()

	repos := repotest.NewRepos()
	repos.Store.PutProduct(models.Product{ID: laptopID, Name: "Laptop", Price: decimal.RequireFromString("99.99"), SellerID: "seller-1"})
	repos.Store.PutProduct(models.Product{ID: phoneID, Name: "Phone", Price: decimal.RequireFromString("149.99"), SellerID: "seller-2"})
	blobs := storage.NewAferoStore(afero.NewMemMapFs())

	svc := &order.DefaultOrderService{
		Products: repos.Products,
		Orders:   repos.Orders,
		Invoices: repos.Invoices,
		Chains:   repos.Chains,
		Blobs:    blobs,
		Enqueuer: noopEnqueuer{},
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	h := NewOrderHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(utils.ErrorHandler())
	users := map[string]models.User{buyer.ID: buyer, other.ID: other, seller.ID: seller}
	// Stands in for JWT auth: the X-Test-User header names the caller.
	r.Use(func(c *gin.Context) {
		if usr, ok := users[c.GetHeader("X-Test-User")]; ok {
			c.Set(middleware.ContextUserKey, usr)
		}
		c.Next()
	})
	r.POST("/orders/create/", h.CreateOrderHandler)
	r.GET("/orders/", h.ListOrdersHandler)
	r.GET("/orders/seller/", h.ListSellerOrdersHandler)
	r.GET("/orders/:id/", h.GetOrderDetailHandler)
	r.GET("/orders/:id/invoice/", h.GetInvoiceHandler)

	return &handlerFixture{repos: repos, blobs: blobs, router: r}
}

func (f *handlerFixture) do(method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) createOrder(t *testing.T, body string) orderResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/orders/create/", buyer.ID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateOrder_Success(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.createOrder(t, `{"products_data":[{"product_id":"`+laptopID+`","quantity":2},{"product_id":"`+phoneID+`","quantity":1}]}`)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "349.97", resp.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, resp.Status)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestCreateOrder_MissingProduct(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/orders/create/", buyer.ID, `{"products_data":[{"product_id":"`+missingX+`","quantity":1}]}`)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Product not found","extra":{"missing_products":["`+missingX+`"]}}`, w.Body.String())
	orders, err := f.repos.Orders.ListByCustomer(context.Background(), buyer.ID, orderRepo.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	f := newHandlerFixture(t)
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"empty list", `{"products_data":[]}`, "products_data"},
		{"missing list", `{}`, "products_data"},
		{"zero quantity", `{"products_data":[{"product_id":"` + laptopID + `","quantity":0}]}`, "products_data[0].quantity"},
		{"negative quantity", `{"products_data":[{"product_id":"` + laptopID + `","quantity":-1}]}`, "products_data[0].quantity"},
		{"bad uuid", `{"products_data":[{"product_id":"abc","quantity":1}]}`, "products_data[0].product_id"},
		{"duplicate", `{"products_data":[{"product_id":"` + laptopID + `","quantity":1},{"product_id":"` + laptopID + `","quantity":2}]}`, "products_data"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/orders/create/", buyer.ID, tc.body)

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decodeError(t, w)
			fields, ok := resp.Extra["fields"].(map[string]any)
			require.True(t, ok, w.Body.String())
			assert.Contains(t, fields, tc.field)
		})
	}
}

func TestCreateOrder_MalformedJSON(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/orders/create/", buyer.ID, `{"products_data":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Extra["fields"], "non_field_errors")
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/orders/create/", "", `{"products_data":[{"product_id":"`+laptopID+`","quantity":1}]}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListOrders(t *testing.T) {
	f := newHandlerFixture(t)
	created := f.createOrder(t, `{"products_data":[{"product_id":"`+laptopID+`","quantity":1}]}`)

	w := f.do(http.MethodGet, "/orders/", buyer.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "99.99", list[0].TotalAmount)

	w = f.do(http.MethodGet, "/orders/?status=Completed", buyer.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = f.do(http.MethodGet, "/orders/", other.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListOrders_InvalidStatus(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodGet, "/orders/?status=Shipped", buyer.ID, "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Extra["fields"], "status")
}

func TestGetOrderDetail(t *testing.T) {
	f := newHandlerFixture(t)
	created := f.createOrder(t, `{"products_data":[{"product_id":"`+laptopID+`","quantity":2},{"product_id":"`+phoneID+`","quantity":1}]}`)

	w := f.do(http.MethodGet, "/orders/"+created.ID+"/", buyer.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail orderDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "349.97", detail.TotalAmount)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, orderItemResponse{
		ProductID:          laptopID,
		ProductName:        "Laptop",
		Quantity:           2,
		UnitPrice:          "99.99",
		ProductTotalAmount: "199.98",
	}, detail.Items[0])

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/orders/"+created.ID+"/", other.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/orders/"+missingX+"/", buyer.ID, "").Code)
}

func TestGetInvoice(t *testing.T) {
	f := newHandlerFixture(t)
	created := f.createOrder(t, `{"products_data":[{"product_id":"`+laptopID+`","quantity":1}]}`)

	w := f.do(http.MethodGet, "/orders/"+created.ID+"/invoice/", buyer.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Invoice not found", resp.Message)
	assert.Equal(t, "pending", resp.Extra["invoice_status"])

	ctx := context.Background()
	name := models.InvoiceBlobName(created.ID)
	require.NoError(t, f.blobs.Put(ctx, name, []byte("%PDF-1.3 test"), models.InvoiceContentType))
	_, err := f.repos.Invoices.CreateIfAbsent(ctx, &models.Invoice{OrderID: created.ID, BlobName: name, ContentType: models.InvoiceContentType})
	require.NoError(t, err)

	w = f.do(http.MethodGet, "/orders/"+created.ID+"/invoice/", buyer.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+created.ID+`.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 test", w.Body.String())

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/orders/"+created.ID+"/invoice/", other.ID, "").Code)
}

func TestListSellerOrders(t *testing.T) {
	f := newHandlerFixture(t)
	created := f.createOrder(t, `{"products_data":[{"product_id":"`+laptopID+`","quantity":2},{"product_id":"`+phoneID+`","quantity":1}]}`)

	w := f.do(http.MethodGet, "/orders/seller/", seller.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []sellerOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "199.98", list[0].SellerTotalAmount)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/orders/seller/", buyer.ID, "").Code)
}

func TestListSellerOrders_StatusFilter(t *testing.T) {
	f := newHandlerFixture(t)
	f.createOrder(t, `{"products_data":[{"product_id":"`+laptopID+`","quantity":1}]}`)

	w := f.do(http.MethodGet, "/orders/seller/?status=Pending", seller.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []sellerOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = f.do(http.MethodGet, "/orders/seller/?status=Completed", seller.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = f.do(http.MethodGet, "/orders/seller/?status=Shipped", seller.ID, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Extra["fields"], "status")
}

func TestCreateOrder_UppercaseProductID(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createOrder(t, `{"products_data":[{"product_id":"`+strings.ToUpper(laptopID)+`","quantity":1}]}`)
	assert.Equal(t, "99.99", created.TotalAmount)

	w := f.do(http.MethodGet, "/orders/"+created.ID+"/", buyer.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail orderDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Items, 1)
	assert.Equal(t, laptopID, detail.Items[0].ProductID)
}
