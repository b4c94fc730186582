package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/application"
	"github.com/bryanwahyu/diagnoflow/internal/application/audit"
	appdash "github.com/bryanwahyu/diagnoflow/internal/application/dashboard"
	appdiag "github.com/bryanwahyu/diagnoflow/internal/application/diagnosis"
	appreports "github.com/bryanwahyu/diagnoflow/internal/application/reports"
	appsurv "github.com/bryanwahyu/diagnoflow/internal/application/surveillance"
	"github.com/bryanwahyu/diagnoflow/internal/config"
	"github.com/bryanwahyu/diagnoflow/internal/domain/activity"
	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	domreports "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
	"github.com/bryanwahyu/diagnoflow/internal/infra/classifier"
	mysqlp "github.com/bryanwahyu/diagnoflow/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/diagnoflow/internal/infra/db/postgres"
	"github.com/bryanwahyu/diagnoflow/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/diagnoflow/internal/infra/storage"
	"github.com/bryanwahyu/diagnoflow/internal/logging"
	"github.com/bryanwahyu/diagnoflow/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect database, driver dari config
	var (
		db           *sql.DB
		reportRepo   domreports.Repository
		analysisRepo diagnosis.Repository
		activityRepo activity.Repository
		directory    staff.Directory
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		reportRepo = postgresp.NewReportRepository(db)
		analysisRepo = postgresp.NewAnalysisRepository(db)
		activityRepo = postgresp.NewActivityRepository(db)
		directory = postgresp.NewStaffDirectory(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		reportRepo = mysqlp.NewReportRepository(db)
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		activityRepo = mysqlp.NewActivityRepository(db)
		directory = mysqlp.NewStaffDirectory(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logger.Fatal("minio init error", zap.Error(err))
	}

	detector := classifier.NewClient(cfg.Classifier.BaseURL,
		time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second)

	var assign domreports.AssignmentPolicy = &domreports.FirstAvailablePolicy{}
	if cfg.Workflow.AssignmentPolicy == "round_robin" {
		assign = &domreports.RoundRobinPolicy{}
	}

	clock := application.SystemClock{}

	recorder := &audit.Recorder{
		Repo:      activityRepo,
		Clock:     clock,
		Logger:    logger,
		OnFailure: middleware.IncrementAuditWriteFailures,
	}

	diagnosisSvc := &appdiag.Service{
		Repo:       analysisRepo,
		Classifier: detector,
		Images:     store,
		Audit:      recorder,
		Clock:      clock,
		Logger:     logger,
	}
	reportsSvc := &appreports.Service{
		Repo:      reportRepo,
		Analyses:  analysisRepo,
		Directory: directory,
		Assign:    assign,
		Audit:     recorder,
		Clock:     clock,
		Logger:    logger,
	}
	survSvc := &appsurv.Service{
		Reports:   reportRepo,
		Directory: directory,
		Outbreak: &appsurv.BaselineMultiplierPolicy{
			Multiplier: cfg.Surveillance.OutbreakThreshold,
		},
		BaselineWindows: cfg.Surveillance.BaselineWindows,
		Clock:           clock,
		Logger:          logger,
	}
	dashSvc := &appdash.Service{
		Analyses: analysisRepo,
		Reports:  reportRepo,
		Clock:    clock,
		Logger:   logger,
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type",
			middleware.HeaderActorID, middleware.HeaderActorRole, middleware.HeaderActorEmail},
		MaxAge: 300,
	}))
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(100, 10))
	mux.Use(middleware.APIKeyAuth(cfg.APIKeys))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"storage":  &middleware.StorageHealthChecker{Store: store},
	}))
	mux.Mount("/", httpserver.NewRouter(reportsSvc, diagnosisSvc, survSvc, dashSvc, recorder))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
