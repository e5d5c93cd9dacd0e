package router

import (
	"net/http"
	"strings"

	"threadloom/internal/handler"
	"threadloom/internal/middleware"
	"threadloom/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	User     *handler.UserHandler
	Cart     *handler.CartHandler
	Wishlist *handler.WishlistHandler
	Address  *handler.AddressHandler
	Admin    *handler.AdminHandler
}

// Config carries the settings the router needs besides its handlers.
type Config struct {
	APIKey     string
	Sessions   *session.Manager
	CookieName string
	// AllowedOrigins is passed to the CORS middleware.
	AllowedOrigins []string
	// UploadsDir is served under UploadsURLPrefix for locally stored media.
	UploadsDir       string
	UploadsURLPrefix string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, cfg Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.UploadsDir != "" {
		prefix := "/" + strings.Trim(cfg.UploadsURLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	// Storefront
	r.Get("/", h.Product.Home)
	r.Get("/shop", h.Product.Shop)
	r.Get("/product/{id}", h.Product.Detail)

	// Accounts
	r.Post("/signup", h.User.Register)
	r.Post("/verifyOtp", h.User.VerifyOTP)
	r.Post("/resendOtp", h.User.ResendOTP)
	r.Post("/login", h.User.Login)
	r.Get("/logout", h.User.Logout)

	requireSession := middleware.RequireSession(cfg.Sessions, cfg.CookieName, logger)

	r.Route("/order", func(r chi.Router) {
		// Payment provider redirects carry no session guarantee.
		r.Get("/paymentSuccess/{orderId}", h.Order.PaymentSuccess)
		r.Get("/paymentCancel/{orderId}", h.Order.PaymentCancel)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/checkout", h.Order.Checkout)
			r.Post("/placeOrder", h.Order.PlaceOrder)
			r.Get("/history", h.Order.History)
			r.Get("/confirmation/{orderId}", h.Order.Confirmation)
			r.Patch("/cancel/{orderId}/{itemId}", h.Order.CancelItem)
			r.Post("/cancel/{orderId}/{itemId}", h.Order.CancelItem)
			r.Get("/{id}", h.Order.Detail)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", h.Cart.View)
		r.Post("/applyCoupon", h.Cart.ApplyCoupon)
		r.Post("/{productId}", h.Cart.Add)
		r.Patch("/{productId}", h.Cart.Update)
		r.Delete("/{productId}", h.Cart.Remove)
	})

	r.Route("/wishlist", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", h.Wishlist.List)
		r.Delete("/", h.Wishlist.Clear)
		r.Post("/{productId}", h.Wishlist.Add)
		r.Delete("/{productId}", h.Wishlist.Remove)
	})

	r.Route("/address", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", h.Address.List)
		r.Post("/", h.Address.Add)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey, logger))

		r.Get("/orderList", h.Admin.OrderList)
		r.Patch("/orderList/{orderId}/status", h.Admin.UpdateOrderStatus)

		r.Get("/category", h.Admin.Categories)
		r.Post("/category", h.Admin.CreateCategory)
		r.Put("/category/{id}", h.Admin.EditCategory)
		r.Patch("/category/{id}", h.Admin.SetCategoryListing)
		r.Put("/category/{id}/offer", h.Admin.AddCategoryOffer)
		r.Delete("/category/{id}/offer", h.Admin.RemoveCategoryOffer)

		r.Get("/products", h.Admin.Products)
		r.Post("/products", h.Admin.CreateProduct)
		r.Patch("/products/{id}", h.Admin.SetProductListing)
		r.Post("/products/{id}/image", h.Admin.UploadProductImage)
		r.Put("/products/{id}/offer", h.Admin.AddProductOffer)
		r.Delete("/products/{id}/offer", h.Admin.RemoveProductOffer)

		r.Get("/coupons", h.Admin.Coupons)
		r.Post("/coupons", h.Admin.CreateCoupon)
		r.Delete("/coupons/{id}", h.Admin.DeleteCoupon)
	})

	return r
}
