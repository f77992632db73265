package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/controller"
	"ppe_inspection/internal/middleware"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/service"
	"ppe_inspection/pkg/configwatcher"
	"ppe_inspection/pkg/database"
	"ppe_inspection/pkg/logger"
	"ppe_inspection/pkg/monitoring"
	"ppe_inspection/pkg/security"
	"ppe_inspection/pkg/tracing"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionSweepInterval = 5 * time.Minute
	sessionIdleTimeout   = 30 * time.Minute
)

type App struct {
	Config *config.Config
	// ConfigFile is watched for changes when set.
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	request *repository.RequestRepository
	answer  *repository.AnswerRepository
}

type services struct {
	storage    *service.StorageService
	inspection *service.InspectionService
	session    *service.SessionService
	photo      *service.PhotoService
	report     *service.ReportService
}

type controllers struct {
	admin  *controller.AdminController
	form   *controller.FormController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig hands a reloaded config to every registered callback.
func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()
	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		request: repository.NewRequestRepository(db),
		answer:  repository.NewAnswerRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.inspection = service.NewInspectionService(repos.request, repos.answer, cfg)

	var drafts service.DraftStore
	if rdb != nil {
		drafts = service.NewRedisDraftStore(rdb, cfg.Inspection.DraftTTL)
	}
	s.session = service.NewSessionService(s.inspection, repos.answer, drafts)
	s.photo = service.NewPhotoService(s.storage, &cfg.Upload)
	s.report = service.NewReportService(repos.request, repos.answer, s.storage, cfg)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		admin:  controller.NewAdminController(s.inspection, s.report),
		form:   controller.NewFormController(s.session, s.photo),
		health: controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, window)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.services.session.Sweep(sessionIdleTimeout); n > 0 {
					logger.Log.Debug("Idle form sessions released", zap.Int("count", n))
				}
			}
		}
	}()

	if a.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.ConfigFile, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

// NewApp connects to the database and Redis and wires the HTTP service.
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Log.Info("Redis disabled, form drafts are kept in memory only")
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, app.services, cfg)

	app.RegisterConfigCallback(func(next *config.Config) {
		logger.SetLevel(next)
	})
	app.RegisterConfigCallback(func(next *config.Config) {
		app.services.report.SetConfig(next.Report)
	})

	return app, nil
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests and
// uploads.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.startBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.close()
		return err
	}
	logger.Log.Info("Shutting down server...")

	// 关闭服务
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.close()
	logger.Log.Info("Server exiting")
	return err
}

func (a *App) close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.services != nil {
		a.services.photo.Wait()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	_ = logger.Log.Sync()
}
