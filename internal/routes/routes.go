// Package routes wires handlers to URL patterns. Keeping registration in one
// place makes the public surface reviewable at a glance.
package routes

import (
	"github.com/nattapol/talad/internal/handler/storefront"
	"github.com/nattapol/talad/internal/middleware"
	"github.com/nattapol/talad/internal/router"
)

// StorefrontDeps carries the handlers the storefront routes need.
type StorefrontDeps struct {
	Auth     *storefront.AuthHandler
	Products *storefront.ProductHandler
	Cart     *storefront.CartHandler
	Checkout *storefront.CheckoutHandler
}

// RegisterStorefrontRoutes registers the browser-facing API. Catalog and login
// are public; everything touching the cart or checkout requires a session.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Public
	r.Post("/api/auth/login", deps.Auth.Login)
	r.Post("/api/auth/logout", deps.Auth.Logout)
	r.Get("/api/products", deps.Products.List)
	r.Get("/api/products/{id}", deps.Products.Detail)

	// Authenticated
	auth := r.Group(middleware.RequireSession)
	auth.Get("/api/auth/profile", deps.Auth.Profile)
	auth.Get("/api/cart", deps.Cart.View)
	auth.Post("/api/cart", deps.Cart.Add)
	auth.Delete("/api/cart/{itemId}", deps.Cart.Remove)
	auth.Get("/api/checkout/quote", deps.Checkout.Quote)
	auth.Post("/api/checkout/coupon", deps.Checkout.ApplyCoupon)
	auth.Post("/api/checkout", deps.Checkout.Submit)
}
