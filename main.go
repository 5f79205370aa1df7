package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jason-KITIO/k.kits-sub004/cmd"
	"github.com/jason-KITIO/k.kits-sub004/internal/alerts"
	"github.com/jason-KITIO/k.kits-sub004/internal/core/logger"
	"github.com/jason-KITIO/k.kits-sub004/internal/counts"
	"github.com/jason-KITIO/k.kits-sub004/internal/database"
	"github.com/jason-KITIO/k.kits-sub004/internal/database/migration"
	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	"github.com/jason-KITIO/k.kits-sub004/internal/locations"
	"github.com/jason-KITIO/k.kits-sub004/internal/middleware"
	"github.com/jason-KITIO/k.kits-sub004/internal/movements"
	"github.com/jason-KITIO/k.kits-sub004/internal/notifier"
	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	"github.com/jason-KITIO/k.kits-sub004/internal/requests"
	"github.com/jason-KITIO/k.kits-sub004/internal/transfers"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"

	"go.uber.org/zap"
)

func init() {
	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}
}

func main() {
	if len(os.Args) > 1 {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cmd.Execute(ctx)
		return
	}

	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		appLogger.Fatal("DATABASE_URL is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		appLogger.Fatal("failed to connect to the database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Connected to the database successfully")

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := migration.Migrate(dbURL, "file://migrations", appLogger); err != nil {
			appLogger.Fatal("database migration failed", zap.Error(err))
		}
	}

	repo := repository.NewRepository(db)

	ledgerService := ledger.NewService(ledger.NewPostgresStore(repo), appLogger)
	recorder := movements.NewRecorder(ledgerService, movements.NewRepository(repo), appLogger)
	engine := transfers.NewEngine(ledgerService, recorder)
	sink := notifier.NewLogSink(appLogger)

	locationRepo := locations.NewLocationRepository(repo)
	transferService := transfers.NewTransferService(transfers.NewRepository(repo), engine, locationRepo, sink, appLogger)
	requestService := requests.NewRequestService(requests.NewRepository(repo), engine, locationRepo, sink, appLogger)
	countService := counts.NewCountService(counts.NewRepository(repo), ledgerService, recorder, sink, appLogger)
	alertService := alerts.NewAlertService(alerts.NewRepository(repo), appLogger)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware(appLogger))

	security.NewLoginHandler(repo).RegisterRoutes(router)
	router.GET("/health", middleware.HealthCheckHandler())

	api := router.Group("/api", security.JWTMiddleware())
	locations.NewLocationHandler(locationRepo, ledgerService).RegisterRoutes(api)
	movements.NewMovementHandler(recorder).RegisterRoutes(api)
	transfers.NewTransferHandler(transferService).RegisterRoutes(api)
	requests.NewRequestHandler(requestService).RegisterRoutes(api)
	counts.NewCountHandler(countService).RegisterRoutes(api)
	alerts.NewAlertHandler(alertService).RegisterRoutes(api)

	if err := router.Run(os.Getenv("APP_HOST")); err != nil {
		appLogger.Fatal("server stopped", zap.Error(err))
	}
}
