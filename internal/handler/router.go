package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/observability"
	"github.com/boddenberg/factoring-settlement-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("handler")

// maxBodyBytes caps request bodies; a 500-installment batch fits comfortably.
const maxBodyBytes = 1 << 20

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	limiter *rate.Limiter
}

// WithRateLimit caps /v1 traffic at perSecond requests with the given burst.
// A non-positive rate leaves the API unlimited.
func WithRateLimit(perSecond float64, burst int) RouterOption {
	return func(o *routerOptions) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewRouter creates the HTTP router with all routes and middleware.
// A non-empty jwtSecret guards every /v1 route with HS256 bearer tokens.
func NewRouter(svc *service.SettlementService, metrics *observability.Metrics, logger *zap.Logger, jwtSecret string, opts ...RouterOption) http.Handler {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(middleware.RequestSize(maxBodyBytes))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if o.limiter != nil {
			r.Use(RateLimitMiddleware(o.limiter, logger))
		}
		if jwtSecret != "" {
			r.Use(JWTAuthMiddleware([]byte(jwtSecret), logger))
		}

		// Pricing
		r.Post("/desagio/quote", desagioQuoteHandler(svc, logger))
		r.Post("/buybacks/quote", buybackQuoteHandler(svc, logger))

		// Bank slips
		r.Get("/banks", listBanksHandler(svc))
		r.Post("/boletos", issueBoletoHandler(svc, logger))
		r.Post("/boletos/batch", issueBatchHandler(svc, logger))
		r.Post("/boletos/validate", validateLineHandler(svc, logger))

		// Metrics
		r.Get("/metrics/settlement", settlementMetricsHandler(metrics))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status: "healthy",
			Services: []domain.ServiceHealth{
				{Name: observability.ServiceName, Status: "healthy", LastChecked: time.Now().Format(time.RFC3339)},
			},
		})
	}
}

func readyzHandler(svc *service.SettlementService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || len(svc.Banks()) == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func settlementMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSettlementSnapshot())
	}
}
