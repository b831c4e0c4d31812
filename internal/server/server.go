package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/database"
	custommiddleware "warehouse/internal/middleware"
	"warehouse/internal/monitor"
	"warehouse/internal/repository"
	"warehouse/internal/service"
	"warehouse/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultJanitorInterval is how often expired refresh tokens are purged
const DefaultJanitorInterval = time.Hour

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          database.Service
	redis       *redis.Client
	authService service.AuthService

	stopJanitor context.CancelFunc
	janitorDone sync.WaitGroup
}

// NewServer wires repositories, services and handlers onto a chi router.
// A nil redisClient disables rate limiting.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	customerRepo := repository.NewCustomerRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	inventoryRepo := repository.NewInventoryRepository(sqlDB)
	statsRepo := repository.NewStatsRepository(sqlDB)

	// Initialize services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, cfg.JWT)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, logger)
	customerService := service.NewCustomerService(customerRepo)
	orderService := service.NewOrderService(orderRepo, customerRepo, logger)
	inventoryService := service.NewInventoryService(inventoryRepo)
	reportService := service.NewReportService(statsRepo, productRepo)

	threshold := cfg.Inventory.LowStockThreshold

	// Metrics
	registry := prometheus.NewRegistry()
	httpMetrics := custommiddleware.NewHTTPMetrics()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpMetrics,
		monitor.NewStatsCollector(statsRepo, productRepo, threshold, logger),
	)

	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.SecurityHeaders(cfg.Server.IsProduction()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.Server.IsProduction()))
	router.Use(httpMetrics.Middleware)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", healthHandler(db, redisClient))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	// Rate limiting covers the API, not probes. Callers with a valid token are
	// counted per user, everyone else per IP.
	api := chi.Router(router)
	if redisClient != nil && cfg.RateLimit.Enabled {
		api = router.With(
			custommiddleware.IdentifyUser(cfg.JWT.Secret),
			custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "warehouse_rate_limit",
			}, logger),
		)
	}

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	handlers := []interface {
		RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
	}{
		transport.NewAuthHandler(authService, logger),
		transport.NewProductHandler(catalogService, threshold, logger),
		transport.NewCustomerHandler(customerService, logger),
		transport.NewOrderHandler(orderService, logger),
		transport.NewInventoryHandler(inventoryService, logger),
		transport.NewReportHandler(reportService, threshold, logger),
	}
	for _, h := range handlers {
		h.RegisterRoutes(api, authMiddleware)
	}

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		db:          db,
		redis:       redisClient,
		authService: authService,
	}
}

// healthHandler reports database and cache status; 503 when the database is down
func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health(r.Context())

		body := map[string]interface{}{
			"status":   "ok",
			"database": dbHealth,
		}
		status := http.StatusOK

		if dbHealth["status"] != "up" {
			body["status"] = "unavailable"
			status = http.StatusServiceUnavailable
		}

		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				body["redis"] = map[string]string{"status": "down", "error": err.Error()}
			} else {
				body["redis"] = map[string]string{"status": "up"}
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

// StartTokenJanitor purges expired refresh tokens every interval until Close
func (s *Server) StartTokenJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel

	s.janitorDone.Add(1)
	go func() {
		defer s.janitorDone.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := s.authService.PurgeExpiredTokens(ctx)
				if err != nil {
					s.logger.Error("Failed to purge expired refresh tokens", zap.Error(err))
					continue
				}
				if purged > 0 {
					s.logger.Info("Purged expired refresh tokens", zap.Int64("count", purged))
				}
			}
		}
	}()
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.stopJanitor != nil {
		s.stopJanitor()
		s.janitorDone.Wait()
		s.stopJanitor = nil
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
		s.redis = nil
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
		s.db = nil
	}

	s.logger.Sync()
	return nil
}
