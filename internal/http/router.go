package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qdrant-gateway/internal/handlers"
	"qdrant-gateway/internal/metrics"
	"qdrant-gateway/internal/service"
)

// Deps holds dependencies for the REST router.
type Deps struct {
	Dispatcher      service.Dispatcher
	ServerVersion   string
	QdrantConnected bool
}

// NewRouter creates the REST router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)
	r.Use(metrics.Middleware())

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.ServerVersion, deps.QdrantConnected))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/collections", func(r chi.Router) {
		r.Method(http.MethodPost, "/", handlers.NewCollectionCreateHandler(deps.Dispatcher))
		r.Method(http.MethodGet, "/{name}", handlers.NewCollectionGetHandler(deps.Dispatcher))
	})

	r.Route("/vectors", func(r chi.Router) {
		r.Method(http.MethodPost, "/upsert", handlers.NewVectorUpsertHandler(deps.Dispatcher))
		r.Method(http.MethodPost, "/search", handlers.NewVectorSearchHandler(deps.Dispatcher))
	})

	return r
}
