package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopstack/shopstack-backend/api/controllers"
	"github.com/shopstack/shopstack-backend/api/middleware"
	cartsvc "github.com/shopstack/shopstack-backend/internal/cart"
	checkoutsvc "github.com/shopstack/shopstack-backend/internal/checkout"
	orderssvc "github.com/shopstack/shopstack-backend/internal/orders"
	"github.com/shopstack/shopstack-backend/pkg/auth/session"
	"github.com/shopstack/shopstack-backend/pkg/config"
	"github.com/shopstack/shopstack-backend/pkg/logger"
	"github.com/shopstack/shopstack-backend/pkg/metrics"
	pkgredis "github.com/shopstack/shopstack-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           *pkgredis.Client
	GCS             controllers.Pinger
	SessionChecker  session.AccessSessionChecker
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orderssvc.Service
	Registry        *prometheus.Registry
	HTTPMetrics     *metrics.HTTPMetrics
}

// NewRouter wires middleware and routes. The /api subtree requires a valid
// access token with a live session; order mutations additionally honor the
// Idempotency-Key header.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}
	r.Use(middleware.CORS())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    pingerOrNil(deps.Redis),
			"storage":  deps.GCS,
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/cart", func(r chi.Router) {
			r.Post("/add-item", controllers.CartAddItem(deps.CartService, logg))
			r.Post("/update-item", controllers.CartUpdateItem(deps.CartService, logg))
			r.Get("/items", controllers.CartItems(deps.CartService, logg))
		})

		r.Route("/order", func(r chi.Router) {
			r.Post("/create", controllers.OrderCreate(deps.CheckoutService, logg))
			r.Post("/update-status", controllers.OrderUpdateStatus(deps.OrdersService, logg))
		})

		r.Get("/orders", controllers.OrdersList(deps.OrdersService, logg))
		r.Get("/order-item/{orderItemId}", controllers.OrderItem(deps.OrdersService, logg))
	})

	return r
}

// pingerOrNil avoids handing a typed-nil *redis.Client to the readiness probe.
func pingerOrNil(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
