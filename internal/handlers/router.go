package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"estate/internal/config"
	"estate/internal/logging"
	"estate/internal/metrics"
	"estate/internal/middleware"
	"estate/internal/policy"
	"estate/internal/websocket"
)

// Services groups what the API surface calls into.
type Services struct {
	Users       UserService
	Properties  PropertyService
	Contracts   ContractService
	Payments    PaymentService
	Maintenance MaintenanceService
	Audit       AuditLister
	Jobs        JobRunner
}

type Handler struct {
	cfg         config.Config
	users       UserService
	properties  PropertyService
	contracts   ContractService
	payments    PaymentService
	maintenance MaintenanceService
	audit       AuditLister
	jobs        JobRunner
	hub         *websocket.Hub
	upgrader    gws.Upgrader
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
}

func New(cfg config.Config, svc Services, hub *websocket.Hub, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:         cfg,
		users:       svc.Users,
		properties:  svc.Properties,
		contracts:   svc.Contracts,
		payments:    svc.Payments,
		maintenance: svc.Maintenance,
		audit:       svc.Audit,
		jobs:        svc.Jobs,
		hub:         hub,
		upgrader:    websocket.Upgrader(cfg.Origins()),
		metrics:     m,
		gatherer:    gatherer,
		logger:      logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(logging.Middleware(h.logger))
	if h.metrics != nil {
		router.Use(h.metrics.Middleware)
	}
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authn := middleware.Auth(h.users)
	can := middleware.RequireAction

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/token", h.Token)
		r.With(authn).Get("/me", h.Me)
		r.With(authn).Put("/me", h.UpdateMe)
	})

	router.Group(func(r chi.Router) {
		r.Use(authn)

		r.Route("/users", func(r chi.Router) {
			r.Use(can(policy.UserManage))
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Patch("/{id}", h.PatchUser)
		})

		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.With(can(policy.PropertyCreate)).Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
			r.With(can(policy.PropertyUpdate)).Put("/{id}", h.UpdateProperty)
			r.With(can(policy.PropertyDelete)).Delete("/{id}", h.DeleteProperty)
			r.With(can(policy.PropertySetStatus)).Patch("/{id}/status", h.SetPropertyStatus)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.With(can(policy.ContractCreate)).Post("/", h.CreateContract)
			r.With(can(policy.ContractExpiring)).Get("/expiring", h.ExpiringContracts)
			r.Get("/{id}", h.GetContract)
			r.With(can(policy.ContractUpdate)).Put("/{id}", h.UpdateContract)
			r.With(can(policy.ContractTerminate)).Post("/{id}/terminate", h.TerminateContract)
			r.With(can(policy.ContractActivate)).Post("/{id}/activate", h.ActivateContract)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.With(can(policy.PaymentCreate)).Post("/", h.CreatePayment)
			r.With(can(policy.PaymentOverdue)).Get("/overdue", h.OverduePayments)
			r.With(can(policy.PaymentGenerate)).Post("/contract/{id}/generate-rent", h.GenerateRent)
			r.Get("/{id}", h.GetPayment)
			r.With(can(policy.PaymentUpdate)).Put("/{id}", h.UpdatePayment)
			r.With(can(policy.PaymentMarkPaid)).Post("/{id}/mark-paid", h.MarkPaymentPaid)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Get("/", h.ListMaintenance)
			r.With(can(policy.MaintenanceCreate)).Post("/", h.CreateMaintenance)
			r.With(can(policy.MaintenanceHigh)).Get("/high-priority", h.HighPriorityMaintenance)
			r.With(can(policy.MaintenanceEmergency)).Get("/emergency", h.EmergencyMaintenance)
			r.Get("/{id}", h.GetMaintenance)
			r.With(can(policy.MaintenanceUpdate)).Put("/{id}", h.UpdateMaintenance)
			r.With(can(policy.MaintenanceComplete)).Post("/{id}/complete", h.CompleteMaintenance)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(can(policy.AuditRead)).Get("/audit", h.ListAuditLogs)
			r.With(can(policy.JobRun)).Get("/jobs", h.ListJobs)
			r.With(can(policy.JobRun)).Post("/jobs/{name}/run", h.RunJob)
		})
	})

	router.Get("/ws/notifications", h.WSNotifications)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.gatherer != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return router
}
