package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig bundles the services and cross-cutting options the router
// needs.
type RouterConfig struct {
	Carts       CartStore
	Orders      OrderCommitter
	Payments    PaymentTracker
	Logger      *zap.Logger
	CORSOrigins []string
}

// NewRouter wires the exposed surface of the order/inventory core.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(RequestMetrics)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	r.Get("/health", HealthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", HandleGetCart(cfg.Carts))
		r.Post("/lines", HandleAddCartLine(cfg.Carts))
		r.Patch("/lines/{lineID}", HandleAdjustCartLine(cfg.Carts))
		r.Delete("/lines/{lineID}", HandleRemoveCartLine(cfg.Carts))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", HandleCommitOrder(cfg.Orders))
		r.Get("/{orderID}", HandleGetOrder(cfg.Orders))
		r.Post("/{orderID}/cancel", HandleCancelOrder(cfg.Orders))
		r.Post("/{orderID}/payment-attachment", HandleAttachPayment(cfg.Payments))
		r.Post("/{orderID}/verify", HandleVerifyPayment(cfg.Payments))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})

	return r
}
