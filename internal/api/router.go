package api

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/api/handler"
	"github.com/betflow/betflow-api/internal/api/middleware"
	"github.com/betflow/betflow-api/internal/api/spec"
	"github.com/betflow/betflow-api/internal/config"
	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/idempotency"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services groups the application services the HTTP layer dispatches to.
type Services struct {
	Users      *service.UserService
	Identities *service.IdentityService
	Platforms  *service.PlatformService
	Accounts   *service.AccountService
	Ledger     *service.LedgerService
	Promotions *service.PromotionService
	Statistics *service.StatisticsService
	Currency   *service.CurrencyService
}

type Router struct {
	cfg      *config.Config
	logger   *zap.Logger
	services Services
	idem     *idempotency.Store
	db       handler.Pinger
	redis    redis.Cmdable
}

// NewRouter wires the HTTP surface. idem, db and redis may be nil when the
// server runs on the in-memory store.
func NewRouter(cfg *config.Config, logger *zap.Logger, services Services, idem *idempotency.Store, db handler.Pinger, redisClient redis.Cmdable) *Router {
	return &Router{
		cfg:      cfg,
		logger:   logger,
		services: services,
		idem:     idem,
		db:       db,
		redis:    redisClient,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID", "X-Idempotent-Replay"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := api.services
	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	authHandler := handler.NewAuthHandler(s.Users, api.cfg.JWTTTL)
	userHandler := handler.NewUserHandler(s.Users)
	identityHandler := handler.NewIdentityHandler(s.Identities)
	platformHandler := handler.NewPlatformHandler(s.Platforms)
	accountHandler := handler.NewAccountHandler(s.Accounts)
	operationHandler := handler.NewOperationHandler(s.Ledger)
	promotionHandler := handler.NewPromotionHandler(s.Promotions)
	statisticsHandler := handler.NewStatisticsHandler(s.Statistics)
	currencyHandler := handler.NewCurrencyHandler(s.Currency)

	// Ops
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	admin := middleware.RequireRole(domain.RoleAdmin)
	staff := middleware.RequireRole(domain.RoleAdmin, domain.RoleManager)
	idem := middleware.IdempotencyMiddleware(api.idem, api.logger)

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS)).Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware)
			r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

			r.Get("/users/me", userHandler.Me)
			r.With(admin).Post("/users", userHandler.CreateUser)

			r.Route("/identities", func(r chi.Router) {
				r.Get("/", identityHandler.List)
				r.Get("/{id}", identityHandler.Get)
				r.With(staff).Post("/", identityHandler.Create)
				r.With(staff).Patch("/{id}", identityHandler.Update)
				r.With(staff).Delete("/{id}", identityHandler.Delete)
			})

			r.Route("/platforms", func(r chi.Router) {
				r.Get("/", platformHandler.List)
				r.Get("/{id}", platformHandler.Get)
				r.With(admin).Post("/", platformHandler.Create)
				r.With(admin).Patch("/{id}", platformHandler.Update)
				r.With(admin).Delete("/{id}", platformHandler.Delete)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", accountHandler.List)
				r.Get("/{id}", accountHandler.Get)
				r.With(staff).Post("/", accountHandler.Create)
				r.With(staff).Patch("/{id}", accountHandler.Update)
				r.With(staff).Put("/{id}/balance", accountHandler.SetBalance)
				r.With(staff).Delete("/{id}", accountHandler.Delete)
			})

			r.Route("/operations", func(r chi.Router) {
				r.Get("/", operationHandler.List)
				r.Get("/{id}", operationHandler.Get)
				r.With(staff, idem).Post("/deposits", operationHandler.CreateDeposit)
				r.With(staff, idem).Post("/withdrawals", operationHandler.CreateWithdrawal)
				r.With(staff, idem).Post("/bets", operationHandler.CreateBet)
				r.With(staff).Patch("/withdrawals/{id}/status", operationHandler.UpdateWithdrawalStatus)
				r.With(staff, idem).Post("/bets/{id}/settle", operationHandler.SettleBet)
				r.With(admin).Delete("/{id}", operationHandler.Delete)
			})

			r.Route("/promotions", func(r chi.Router) {
				r.Get("/", promotionHandler.List)
				r.Get("/{id}", promotionHandler.Get)
				r.With(staff).Post("/", promotionHandler.Create)
				r.With(staff).Patch("/{id}", promotionHandler.Update)
				r.With(staff, idem).Post("/{id}/rollover", promotionHandler.ApplyRollover)
				r.With(staff).Delete("/{id}", promotionHandler.Delete)
			})

			r.Route("/statistics", func(r chi.Router) {
				r.Get("/identities", statisticsHandler.Identities)
				r.Get("/identities/{id}", statisticsHandler.Identity)
				r.Get("/profitable", statisticsHandler.Profitable)
				r.Get("/unprofitable", statisticsHandler.Unprofitable)
				r.Get("/dashboard", statisticsHandler.Dashboard)
			})

			r.Get("/currency/convert", currencyHandler.Convert)
		})
	})

	return r
}
