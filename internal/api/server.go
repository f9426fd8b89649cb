package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dealradar/internal/api/auth"
	"dealradar/internal/api/middleware"
	"dealradar/internal/config"
	"dealradar/internal/geo"
	"dealradar/internal/model"
	"dealradar/internal/obscache"
	"dealradar/internal/pkg/metrics"
	"dealradar/internal/pkg/notify"
	"dealradar/internal/pkg/queue"
	"dealradar/internal/pkg/ratelimit"
	"dealradar/internal/scan"
	"dealradar/internal/stores"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ScanService creates scans. Satisfied by the orchestrator.
type ScanService interface {
	CreateScan(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error)
}

// ScanReader serves scan reads for the HTTP layer.
type ScanReader interface {
	GetScan(ctx context.Context, id uint) (*model.Scan, error)
	ListScansByUser(ctx context.Context, userID uint) ([]model.Scan, error)
	ResultsForScan(ctx context.Context, scanID uint) ([]model.ScanResult, error)
}

// Server wires the HTTP layer to the scan core.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine
	auth   *auth.Handler

	scans   ScanService
	reader  ScanReader
	jobs    *queue.Queue
	janitor *scan.Janitor
}

// NewServer connects MySQL and Redis, seeds the store directory and builds
// the scan pipeline.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Scan{}, &model.ScanResult{}, &model.StoreLocation{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	directory := stores.NewDirectory(db, logger)
	if err := directory.SeedLocations(ctx); err != nil {
		return nil, err
	}

	// Resolver indexes whatever the directory holds at startup, backfilled
	// coordinates included.
	locations, err := directory.All(ctx)
	if err != nil {
		return nil, err
	}
	resolver := geo.NewResolver(stores.GeoPoints(locations))

	if n, err := directory.BackfillCoordinates(ctx, resolver); err != nil {
		logger.Warn("coordinate backfill incomplete", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("coordinate backfill done", slog.Int("updated", n))
	}

	cache := obscache.New(rdb, logger,
		time.Duration(cfg.Providers.ObservationTTLMinutes)*time.Minute,
		cfg.Providers.ObservationMaxSize)
	limiter := ratelimit.NewRedisLimiter(rdb, logger, "dealradar:ratelimit:visits",
		cfg.App.RateLimit, cfg.App.RateBurst)
	jobs := queue.New(logger, cfg.App.WorkerPoolSize, cfg.App.QueueCapacity)
	store := scan.NewGormStore(db, logger)
	notifier := notify.NewEmailNotifier(&cfg.Email, logger)

	orchestrator := scan.NewOrchestrator(cfg, logger, store, directory, resolver,
		cache, limiter, jobs, notifier)

	metrics.InitMetrics(cfg.App.WorkerPoolSize)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		router:  r,
		auth:    auth.NewHandler(db, cfg.Security.JWTSecret, logger),
		scans:   orchestrator,
		reader:  store,
		jobs:    jobs,
		janitor: scan.NewJanitor(cfg, logger, store, cache),
	}
	s.registerRoutes()
	return s, nil
}

// Run starts the background workers and listens for HTTP requests.
func (s *Server) Run(ctx context.Context) error {
	s.StartBackground(ctx)

	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router returns the HTTP handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// StartBackground launches the scan worker pool and the retention janitor.
func (s *Server) StartBackground(ctx context.Context) {
	s.jobs.Start(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in retention janitor", slog.Any("panic", r))
			}
		}()
		s.janitor.Run(ctx)
	}()
}

// Shutdown drains the worker pool and closes connections.
func (s *Server) Shutdown(timeout time.Duration) error {
	if err := s.jobs.ShutdownWithTimeout(timeout); err != nil {
		s.logger.Warn("queue drain incomplete", slog.String("error", err.Error()))
	}
	return s.Close()
}

// Close closes the database and cache connections.
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

func (s *Server) registerRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/register", s.auth.Register)
	s.router.POST("/login", s.auth.Login)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.POST("/scans", s.handleCreateScan)
	authed.GET("/scans", s.handleListScans)
	authed.GET("/scans/:id", s.handleGetScan)
	authed.GET("/scans/:id/results", s.handleGetScanResults)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getUserID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
