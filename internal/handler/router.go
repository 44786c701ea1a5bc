// Package handler exposes the order, return and ledger operations over
// HTTP.
package handler

import (
	"net/http"

	"storefront-be/internal/ledger"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/returns"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Orders    order.Service
	Returns   returns.Service
	Ledger    ledger.Store
	Drift     DriftChecker
	DB        Pinger
	JWTSecret string
	Limiter   *middleware.Limiter
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.Trace)
	r.Use(middleware.Authenticate(d.JWTSecret))
	r.Use(logger.LoggingMiddleware)
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.Get("/healthz", health(d.DB))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Route("/orders", NewOrderHandlers(d.Orders, d.Returns).Routes)
			r.Route("/returns", NewReturnHandlers(d.Returns).Routes)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			NewAdminHandlers(d.Orders, d.Returns, d.Ledger, d.Drift).Routes(r)
		})
	})

	return r
}
