package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/cafe-das-mulheres/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	Limiter    *ratelimit.Store
	EnableCORS bool
}

func RegisterRoutes(r *chi.Mux, lotsHandler *LotsHandler, sessionHandler *SessionHandler, statsHandler *StatsHandler, opts RouterOptions) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	if opts.EnableCORS {
		r.Use(CORS)
	}
	if opts.Limiter != nil {
		r.Use(WritesOnly(ratelimit.Middleware(opts.Limiter, time.Second)))
	}

	api := humachi.New(r, huma.DefaultConfig("Café das Mulheres API", "1.0.0"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Lots
	huma.Get(api, "/lots", lotsHandler.HandleList)
	huma.Get(api, "/lots/{id}", lotsHandler.HandleGet)

	// Form sessions
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Open a registration form",
		DefaultStatus: http.StatusCreated,
	}, sessionHandler.HandleCreate)
	huma.Get(api, "/sessions/{id}", sessionHandler.HandleGet)
	huma.Patch(api, "/sessions/{id}/fields", sessionHandler.HandleSetField)
	huma.Put(api, "/sessions/{id}/quantity", sessionHandler.HandleSetQuantity)
	huma.Post(api, "/sessions/{id}/submit", sessionHandler.HandleSubmit)
	huma.Register(api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{id}",
		Summary:       "Discard a registration form",
		DefaultStatus: http.StatusNoContent,
	}, sessionHandler.HandleDelete)

	huma.Get(api, "/stats", statsHandler.HandleStats)

	return api
}
