package gateway

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AdminPrefix is where the lifecycle endpoints are mounted.
const AdminPrefix = "/_precache"

// Routes returns the router that serves admin endpoints and proxies everything else.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route(AdminPrefix, func(r chi.Router) {
		r.Post("/update", h.ServeUpdate)
		r.Get("/status", h.ServeStatus)
		r.Get("/buckets", h.ServeBuckets)
	})

	r.HandleFunc("/*", h.ServeFetch)
	return r
}
