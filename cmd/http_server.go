package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/auth"
	authpostgres "github.com/rsharma-dev/order-settlement/internal/auth/postgres"
	"github.com/rsharma-dev/order-settlement/internal/core/events"
	"github.com/rsharma-dev/order-settlement/internal/gateway"
	"github.com/rsharma-dev/order-settlement/internal/settlement"
	settlementpostgres "github.com/rsharma-dev/order-settlement/internal/settlement/postgres"
	"github.com/rsharma-dev/order-settlement/internal/tenant"
	tenantpostgres "github.com/rsharma-dev/order-settlement/internal/tenant/postgres"
	"github.com/rsharma-dev/order-settlement/internal/transport"
	"github.com/rsharma-dev/order-settlement/internal/transport/rest"
	"github.com/rsharma-dev/order-settlement/internal/transport/swagger"
	"github.com/rsharma-dev/order-settlement/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	// Fail at startup on a broken API document rather than serving it
	if _, err := swagger.LoadSpec("./api/openapi.yml"); err != nil {
		return err
	}

	eventBus := events.NewEventBus(lg)

	tenantRepo := tenantpostgres.NewClientRepository(deps.GormDB)
	tenantService := tenant.NewService(tenantRepo, lg)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		RequestTimeout: cfg.Gateway.RequestTimeout,
	}, lg)

	paymentRepo := settlementpostgres.NewPaymentRepository(deps.GormDB)
	orderRepo := settlementpostgres.NewOrderRepository(deps.GormDB)

	settlementService := settlement.NewService(
		paymentRepo,
		orderRepo,
		tenantService,
		gatewayClient,
		settlement.JSONReceiptRenderer{},
		eventBus,
		cfg.Gateway.TestMode,
		lg,
	)

	userRepo := authpostgres.NewUserRepository(deps.GormDB)
	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userRepo, tokenGen, cfg.Security.BCryptCost)

	baseHandler := transport.NewBaseHandler(lg)
	authHandler := auth.NewHandler(authService, lg)
	settlementHandler := settlement.NewHandler(settlementService, lg)
	webhookHandler := settlement.NewWebhookHandler(baseHandler, settlementService, lg)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, cfg.Server.AllowedOrigins,
		authHandler, settlementHandler, webhookHandler, lg)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
