package handler

import (
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/payment"
	"github.com/tribly/growthqr-bff-go/internal/port"
	"github.com/tribly/growthqr-bff-go/internal/qr"
	"github.com/tribly/growthqr-bff-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router serves.
type Deps struct {
	Dashboard  *service.Dashboard
	Onboarding *service.Onboarding
	SalesTeam  *service.SalesTeam
	Auth       *service.Auth
	Payments   *payment.Manager
	QRFlows    *qr.Manager
	Places     port.PlacesGateway
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the growth dashboard frontend.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public: authentication
		r.Post("/auth/login", authLoginHandler(d.Auth, logger))
		r.Post("/auth/refresh", authRefreshHandler(d.Auth, logger))

		// Everything else requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, logger))

			// Settings dashboard: merged record, per-section saves,
			// leave-guard navigation, manual reviews.
			r.Route("/dashboard", func(r chi.Router) {
				r.Use(requireAction("dashboard", logger))
				r.Post("/load", dashboardLoadHandler(d.Dashboard, logger))
				r.Get("/{sessionId}", dashboardViewHandler(d.Dashboard, logger))
				r.Patch("/{sessionId}/edits", dashboardEditsHandler(d.Dashboard, logger))
				r.Post("/{sessionId}/sections/{section}/save", dashboardSaveSectionHandler(d.Dashboard, logger))
				r.Post("/{sessionId}/navigate", dashboardNavigateHandler(d.Dashboard, logger))
				r.Post("/{sessionId}/guard/resolve", dashboardResolveGuardHandler(d.Dashboard, logger))
				r.Get("/{sessionId}/reviews", dashboardReviewsHandler(d.Dashboard, logger))
				r.Delete("/{sessionId}", dashboardCloseHandler(d.Dashboard, logger))
			})

			// Sales onboarding wizard + standalone analysis and places.
			r.Group(func(r chi.Router) {
				r.Use(requireAction("onboarding", logger))

				r.Route("/onboarding", func(r chi.Router) {
					r.Post("/", onboardingStartHandler(d.Onboarding, logger))
					r.Get("/{wizardId}", onboardingStateHandler(d.Onboarding, logger))
					r.Get("/{wizardId}/search", onboardingSearchHandler(d.Onboarding, logger))
					r.Post("/{wizardId}/place", onboardingSelectPlaceHandler(d.Onboarding, logger))
					r.Post("/{wizardId}/plan", onboardingChoosePlanHandler(d.Onboarding, logger))
					r.Post("/{wizardId}/qr", onboardingAttachQRHandler(d.Onboarding, logger))
					r.Post("/{wizardId}/payment", onboardingOpenPaymentHandler(d.Onboarding, logger))
					r.Put("/{wizardId}/fields", onboardingSetFieldsHandler(d.Onboarding, logger))
					r.Post("/{wizardId}/submit", onboardingSubmitHandler(d.Onboarding, logger))
					r.Delete("/{wizardId}", onboardingCloseHandler(d.Onboarding, logger))
				})

				r.Post("/gbp/analyze", gbpAnalyzeHandler(d.Onboarding, logger))
				r.Get("/locations/autocomplete", locationsAutocompleteHandler(d.Places, logger))
				r.Get("/locations/details", locationsDetailsHandler(d.Places, logger))

				// QR association flow.
				r.Route("/qr/flows", func(r chi.Router) {
					r.Post("/", qrFlowStartHandler(d.QRFlows, logger))
					r.Get("/{flowId}", qrFlowStateHandler(d.QRFlows, logger))
					r.Post("/{flowId}/payload", qrFlowSubmitHandler(d.QRFlows, logger))
					r.Post("/{flowId}/cancel", qrFlowCancelHandler(d.QRFlows, logger))
					r.Post("/{flowId}/restart", qrFlowRestartHandler(d.QRFlows, logger))
				})
			})

			// Payment sessions.
			r.Route("/payments", func(r chi.Router) {
				r.Use(requireAction("payments", logger))
				r.Get("/plans", paymentPlansHandler(logger))
				r.Post("/", paymentOpenHandler(d.Payments, logger))
				r.Get("/{paymentId}", paymentStatusHandler(d.Payments, logger))
				r.Post("/{paymentId}/retry", paymentRetryHandler(d.Payments, logger))
				r.Get("/{paymentId}/receipt", paymentReceiptHandler(d.Payments, logger))
				r.Delete("/{paymentId}", paymentCloseHandler(d.Payments, logger))
			})

			// Sales team administration.
			r.Route("/sales-team", func(r chi.Router) {
				r.Use(requireAction("sales_team", logger))
				r.Get("/", salesTeamListHandler(d.SalesTeam, logger))
				r.Post("/", salesTeamCreateHandler(d.SalesTeam, logger))
				r.Patch("/{memberId}", salesTeamUpdateHandler(d.SalesTeam, logger))
				r.Delete("/{memberId}", salesTeamDeleteHandler(d.SalesTeam, logger))
			})

			// Aggregate payment outcomes.
			r.With(requireAction("metrics", logger)).
				Get("/metrics/payments", paymentMetricsHandler(d.Metrics, logger))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func paymentMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPaymentSnapshot())
	}
}
