package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/otienodev/kodi/internal/http/billing"
	"github.com/otienodev/kodi/internal/http/mpesa"
	"github.com/otienodev/kodi/internal/http/tenant"
)

func New(
	corsOrigins []string,
	tenantsV1 *tenant.Handler,
	billingV1 *billing.Handler,
	mpesaV1 *mpesa.Handler,
	metricsHandler http.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			tenantsV1.Routes(r)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			billingV1.Routes(r)
		})

		// The gateway callback path stays free of content-type middleware:
		// it must acknowledge whatever arrives.
		r.Route("/callbacks", mpesaV1.Routes)
	})

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}

	return router
}
