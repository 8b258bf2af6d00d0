package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	AuthMW   *AuthMiddleware
}

// NewRouter builds the storefront's route tree, wrapped in otel HTTP
// instrumentation.
func NewRouter(h Handlers, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public storefront
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/verify", h.Auth.VerifyEmail)
		r.Post("/auth/resend-verification", h.Auth.ResendVerification)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/forgot-password", h.Auth.ForgotPassword)
		r.Post("/auth/reset-password", h.Auth.ResetPassword)

		r.Get("/products", h.Products.ListProducts)
		r.Get("/products/{id}", h.Products.GetProduct)
		r.Get("/categories", h.Products.ListCategories)

		// Signed-in shoppers
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMW.Authenticate)

			r.Post("/auth/logout", h.Auth.Logout)
			r.Post("/session/extend", h.Auth.ExtendSession)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})

			r.Post("/checkout", h.Checkout.Initiate)
			r.Post("/checkout/{id}/confirm", h.Checkout.ConfirmPayment)

			r.Get("/orders", h.Orders.ListMyOrders)
			r.Get("/orders/{id}", h.Orders.GetOrder)

			// Back office
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMW.AdminOnly)

				r.Post("/admin/products", h.Products.CreateProduct)
				r.Put("/admin/products/{id}", h.Products.UpdateProduct)
				r.Delete("/admin/products/{id}", h.Products.DeleteProduct)

				r.Post("/admin/categories", h.Products.CreateCategory)
				r.Put("/admin/categories/{id}", h.Products.UpdateCategory)
				r.Delete("/admin/categories/{id}", h.Products.DeleteCategory)

				r.Get("/admin/orders", h.Orders.ListAllOrders)
				r.Put("/admin/orders/{id}/status", h.Orders.UpdateStatus)

				r.Get("/admin/users", h.Auth.ListAllUsers)
			})
		})
	})

	return otelhttp.NewHandler(r, "freshmart-http")
}
