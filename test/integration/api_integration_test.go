package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"threadloom/internal/events"
	"threadloom/internal/handler"
	"threadloom/internal/media"
	"threadloom/internal/otp"
	"threadloom/internal/payment"
	"threadloom/internal/repository"
	"threadloom/internal/router"
	"threadloom/internal/service"
	"threadloom/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey     = "test-api-key"
	testCookieName = "session"
)

// captureMailer remembers the last code sent to each address.
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendOTP(_ context.Context, _, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

// fakePayPal serves the two PayPal endpoints placement calls.
func fakePayPal(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"PAY-1","state":"created","links":[`+
			`{"href":"https://paypal.test/v1/payments/payment/PAY-1","rel":"self","method":"GET"},`+
			`{"href":"https://paypal.test/checkoutnow?token=EC-1","rel":"approval_url","method":"REDIRECT"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testServer struct {
	handler http.Handler
	mailer  *captureMailer
}

func setupTestServer(t *testing.T, pool *pgxpool.Pool, otps otp.Store) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	mailer := &captureMailer{codes: make(map[string]string)}
	sessions := session.NewManager("integration-secret", time.Hour)
	paypal := payment.NewPayPalClient(fakePayPal(t).URL, "client", "secret", 5*time.Second, logger)

	uploads := t.TempDir()
	local, err := media.NewLocalStorage(uploads, "/uploads", logger)
	require.NoError(t, err)
	storage := media.NewFallbackStorage(nil, local, "", false, logger)

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	wishlistRepo := repository.NewWishlistRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, categoryRepo, storage, logger)
	orderService := service.NewOrderService(
		orderRepo, productRepo, cartRepo, addressRepo, paypal, events.NewNopPublisher(logger),
		service.OrderConfig{PublicBaseURL: "http://shop.test", Currency: "USD"},
		logger,
	)
	couponService := service.NewCouponService(couponRepo, cartRepo, logger)
	userService := service.NewUserService(userRepo, otps, mailer, sessions, logger)

	handlers := router.Handlers{
		Product:  handler.NewProductHandler(productService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		User:     handler.NewUserHandler(userService, handler.CookieConfig{Name: testCookieName, MaxAge: time.Hour}, logger),
		Cart:     handler.NewCartHandler(service.NewCartService(cartRepo, productRepo, logger), couponService, logger),
		Wishlist: handler.NewWishlistHandler(service.NewWishlistService(wishlistRepo, logger), logger),
		Address:  handler.NewAddressHandler(service.NewAddressService(addressRepo, logger), logger),
		Admin:    handler.NewAdminHandler(orderService, productService, couponService, logger),
	}

	return &testServer{
		handler: router.New(handlers, router.Config{
			APIKey:           testAPIKey,
			Sessions:         sessions,
			CookieName:       testCookieName,
			UploadsDir:       uploads,
			UploadsURLPrefix: "/uploads",
		}, logger),
		mailer: mailer,
	}
}

// client carries cookies between requests like a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h, cookies: make(map[string]*http.Cookie), header: http.Header{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// signIn registers, verifies and logs in a fresh buyer.
func signIn(t *testing.T, srv *testServer, email, mobile string) *client {
	t.Helper()

	c := newClient(t, srv.handler)

	w := c.do(http.MethodPost, "/signup", map[string]string{
		"name":     "Asha",
		"email":    email,
		"mobile":   mobile,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, c.cookies, "otp_email")

	code := srv.mailer.code(email)
	require.Len(t, code, 6)
	digits := map[string]string{}
	for i, d := range code {
		digits[fmt.Sprintf("otp%d", i+1)] = string(d)
	}
	w = c.do(http.MethodPost, "/verifyOtp", digits)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/login", decode(t, w)["url"])
	assert.NotContains(t, c.cookies, "otp_email")

	w = c.do(http.MethodPost, "/login", map[string]string{"email": email, "password": "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, c.cookies, testCookieName)
	return c
}

func addAddress(t *testing.T, c *client) string {
	t.Helper()

	w := c.do(http.MethodPost, "/address", map[string]string{
		"fullName":   "Asha Rao",
		"phone":      "9876543210",
		"line1":      "12 Loom Street",
		"city":       "Jaipur",
		"state":      "Rajasthan",
		"postalCode": "302001",
		"country":    "India",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestStorefrontFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	otps := otp.NewRedisStore(SetupTestRedis(t))
	srv := setupTestServer(t, testDB.Pool, otps)

	CleanupDB(t, testDB.Pool)
	cat := SeedCatalogue(t, testDB.Pool)

	t.Run("catalogue hides unlisted products", func(t *testing.T) {
		c := newClient(t, srv.handler)

		w := c.do(http.MethodGet, "/shop", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["products"], 2)

		w = c.do(http.MethodGet, "/product/"+cat.Shirt.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("protected pages need a session", func(t *testing.T) {
		c := newClient(t, srv.handler)
		w := c.do(http.MethodGet, "/order/checkout", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	buyer := signIn(t, srv, "asha@example.com", "9876543210")
	addressID := addAddress(t, buyer)

	fillCart := func(t *testing.T) {
		t.Helper()
		w := buyer.do(http.MethodPost, "/cart/"+cat.Shirt.ID.String(), map[string]int{"quantity": 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = buyer.do(http.MethodPost, "/cart/"+cat.Scarf.ID.String(), map[string]int{"quantity": 3})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	orderItems := []map[string]any{
		{"productId": cat.Shirt.ID.String(), "quantity": 2, "price": "10.00"},
		{"productId": cat.Scarf.ID.String(), "quantity": 3, "price": 5},
	}

	var codOrderID string

	t.Run("cash on delivery order", func(t *testing.T) {
		fillCart(t)

		w := buyer.do(http.MethodGet, "/order/checkout", nil)
		require.Equal(t, http.StatusOK, w.Code)
		view := decode(t, w)
		assert.Equal(t, 35.0, view["totalPrice"])
		assert.Len(t, view["cartItems"], 2)
		assert.Len(t, view["address"], 1)

		w = buyer.do(http.MethodPost, "/order/placeOrder", map[string]any{
			"items":         orderItems,
			"total":         "35.00",
			"addressId":     addressID,
			"paymentMethod": "cod",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		placed := decode(t, w)
		assert.Equal(t, true, placed["status"])
		codOrderID = placed["orderId"].(string)

		w = buyer.do(http.MethodGet, "/cart", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0.0, decode(t, w)["totalPrice"])

		w = buyer.do(http.MethodGet, "/order/"+codOrderID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		order := decode(t, w)
		assert.Equal(t, "placed", order["status"])
		assert.Equal(t, "cod", order["paymentMethod"])
		assert.Equal(t, 35.0, order["totalAmount"])
		assert.True(t, strings.HasPrefix(order["orderNumber"].(string), service.OrderNumberPrefix))
		assert.Equal(t, "Jaipur", order["deliveryAddress"].(map[string]any)["city"])
		require.Len(t, order["items"], 2)
	})

	t.Run("cancel one item", func(t *testing.T) {
		require.NotEmpty(t, codOrderID)

		w := buyer.do(http.MethodGet, "/order/"+codOrderID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		items := decode(t, w)["items"].([]any)
		itemID := items[0].(map[string]any)["id"].(string)

		w = buyer.do(http.MethodPatch, "/order/cancel/"+codOrderID+"/"+itemID, map[string]string{"reason": "wrong size"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = buyer.do(http.MethodGet, "/order/"+codOrderID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		first := decode(t, w)["items"].([]any)[0].(map[string]any)
		assert.Equal(t, "cancelled", first["orderStatus"])
		assert.Equal(t, "wrong size", first["cancellationReason"])
	})

	t.Run("other buyers cannot see the order", func(t *testing.T) {
		require.NotEmpty(t, codOrderID)

		other := signIn(t, srv, "ravi@example.com", "9123456780")
		w := other.do(http.MethodGet, "/order/"+codOrderID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stale price is rejected", func(t *testing.T) {
		w := buyer.do(http.MethodPost, "/order/placeOrder", map[string]any{
			"items":         []map[string]any{{"productId": cat.Shirt.ID.String(), "quantity": 1, "price": "9.00"}},
			"total":         "9.00",
			"addressId":     addressID,
			"paymentMethod": "cod",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unlisted product is rejected", func(t *testing.T) {
		w := buyer.do(http.MethodPost, "/order/placeOrder", map[string]any{
			"items":         []map[string]any{{"productId": cat.Hidden.ID.String(), "quantity": 1, "price": "15.00"}},
			"total":         "15.00",
			"addressId":     addressID,
			"paymentMethod": "cod",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("paypal order is paid after approval", func(t *testing.T) {
		fillCart(t)

		w := buyer.do(http.MethodPost, "/order/placeOrder", map[string]any{
			"items":         orderItems,
			"total":         35,
			"addressId":     addressID,
			"paymentMethod": "paypal",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, decode(t, w)["approvalUrl"], "token=EC-1")

		w = buyer.do(http.MethodGet, "/order/history", nil)
		require.Equal(t, http.StatusOK, w.Code)
		orders := decode(t, w)["orders"].([]any)
		require.Len(t, orders, 2)

		var paypalOrderID string
		for _, o := range orders {
			order := o.(map[string]any)
			if order["paymentMethod"] == "paypal" {
				assert.Equal(t, "placed", order["status"])
				paypalOrderID = order["id"].(string)
			}
		}
		require.NotEmpty(t, paypalOrderID)

		// The cart survives until the buyer comes back from PayPal.
		w = buyer.do(http.MethodGet, "/cart", nil)
		assert.Equal(t, 35.0, decode(t, w)["totalPrice"])

		anonymous := newClient(t, srv.handler)
		w = anonymous.do(http.MethodGet, "/order/paymentCancel/"+paypalOrderID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "retry", decode(t, w)["status"])

		w = anonymous.do(http.MethodGet, "/order/paymentSuccess/"+paypalOrderID+"?paymentId=PAY-1&PayerID=PAYER-9", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		paid := decode(t, w)["order"].(map[string]any)
		assert.Equal(t, "paid", paid["status"])
		assert.Equal(t, "PAY-1", paid["paymentId"])

		w = buyer.do(http.MethodGet, "/cart", nil)
		assert.Equal(t, 0.0, decode(t, w)["totalPrice"])
	})

	t.Run("admin lists and updates orders", func(t *testing.T) {
		admin := newClient(t, srv.handler)

		w := admin.do(http.MethodGet, "/admin/orderList", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		admin.header.Set("X-API-Key", testAPIKey)
		w = admin.do(http.MethodGet, "/admin/orderList", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["orders"], 2)

		require.NotEmpty(t, codOrderID)
		w = admin.do(http.MethodPatch, "/admin/orderList/"+codOrderID+"/status", map[string]string{"status": "delivered"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "delivered", decode(t, w)["status"])
	})

	t.Run("logout ends the session", func(t *testing.T) {
		w := buyer.do(http.MethodGet, "/logout", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)

		w = buyer.do(http.MethodGet, "/order/history", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
