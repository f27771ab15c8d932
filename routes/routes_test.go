package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/database/repotest"
	"marketplace/handlers"
	"marketplace/middleware"
	"marketplace/models"
	"marketplace/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func named(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"route": name, "id": c.Param("id")})
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *utils.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager, err := utils.NewJWTManager("routes-secret")
	require.NoError(t, err)
	repos := repotest.NewRepos()
	repos.Store.PutUser(models.User{ID: "c1", Email: "buyer@example.com", Role: models.RoleCustomer, IsActive: true})
	repos.Store.PutUser(models.User{ID: "s1", Email: "seller@example.com", Role: models.RoleSeller, IsActive: true})

	hb := &handlers.HandlerBundle{
		UserRepo:                repos.Users,
		JWT:                     jwtManager,
		MaxRequestsPerMin:       1000,
		Logger:                  zap.NewNop(),
		CreateOrderHandler:      named("create"),
		ListOrdersHandler:       named("list"),
		GetOrderDetailHandler:   named("detail"),
		GetInvoiceHandler:       named("invoice"),
		ListSellerOrdersHandler: named("seller"),
	}
	r := gin.New()
	RegisterRoutes(r, hb)
	return r, jwtManager
}

func call(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_Dispatch(t *testing.T) {
	r, jwtManager := newTestRouter(t)
	customer, err := jwtManager.GenerateToken("c1", "buyer@example.com", models.RoleCustomer, time.Hour)
	require.NoError(t, err)
	seller, err := jwtManager.GenerateToken("s1", "seller@example.com", models.RoleSeller, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		method string
		path   string
		token  string
		status int
		route  string
	}{
		{http.MethodPost, "/orders/create/", customer, http.StatusOK, "create"},
		{http.MethodGet, "/orders/", customer, http.StatusOK, "list"},
		{http.MethodGet, "/orders/abc/", customer, http.StatusOK, "detail"},
		{http.MethodGet, "/orders/abc/invoice/", customer, http.StatusOK, "invoice"},
		{http.MethodGet, "/orders/seller/", seller, http.StatusOK, "seller"},
		{http.MethodGet, "/orders/seller/", customer, http.StatusForbidden, ""},
		{http.MethodGet, "/orders/", "", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := call(r, tc.method, tc.path, tc.token)

			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.route != "" {
				assert.Contains(t, w.Body.String(), `"route":"`+tc.route+`"`)
			}
		})
	}
}

func TestRegisterRoutes_DetailReceivesID(t *testing.T) {
	r, jwtManager := newTestRouter(t)
	tok, err := jwtManager.GenerateToken("c1", "buyer@example.com", models.RoleCustomer, time.Hour)
	require.NoError(t, err)

	w := call(r, http.MethodGet, "/orders/order-42/", tok)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"route":"detail","id":"order-42"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRegisterRoutes_Health(t *testing.T) {
	r, _ := newTestRouter(t)

	w := call(r, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRegisterRoutes_UnmatchedRequestsUseEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)

	w := call(r, http.MethodGet, "/nowhere", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"message":"Not found.","extra":{}}`, w.Body.String())

	w = call(r, http.MethodPut, "/health", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"message":"Method \"PUT\" not allowed.","extra":{}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}
