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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	authPostgres "github.com/campuscare/grievance-management/internal/auth/postgres"
	"github.com/campuscare/grievance-management/internal/complaint"
	complaintPostgres "github.com/campuscare/grievance-management/internal/complaint/postgres"
	"github.com/campuscare/grievance-management/internal/core/events"
	"github.com/campuscare/grievance-management/internal/notification"
	"github.com/campuscare/grievance-management/internal/transport/rest"
	"github.com/campuscare/grievance-management/internal/transport/swagger"
	"github.com/campuscare/grievance-management/internal/user"
	userPostgres "github.com/campuscare/grievance-management/internal/user/postgres"
	"github.com/campuscare/grievance-management/pkg/logger"
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
	Redis  *redis.Client
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
		if deps.Redis != nil {
			if err := deps.Redis.Close(); err != nil {
				deps.Logger.Error("redis close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.L()

	// Validate the published API contract before accepting traffic.
	if _, err := swagger.LoadSpec("./api/openapi.yml"); err != nil {
		lg.Warn("openapi spec unavailable, swagger UI disabled", "error", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	var redisClient *redis.Client
	var cooldown auth.CooldownStore
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		cooldown = auth.NewRedisCooldownStore(redisClient, config.Security.ResetCooldownSpan)
	} else {
		cooldown = auth.NewMemoryCooldownStore(config.Security.ResetCooldownSpan)
	}

	bus := events.NewEventBus(lg)
	mailer := notification.NewMailer(config.Mail, lg)
	notification.NewEventHandler(mailer, config.Server.BaseURL, lg).Register(bus)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.TokenDuration)

	authService := auth.NewService(
		authPostgres.NewRepository(gormDB),
		tokenGen,
		cooldown,
		bus,
		auth.Config{
			BCryptCost:        config.Security.BCryptCost,
			PasswordMinLength: config.Security.PasswordMinLength,
			ResetTokenTTL:     config.Security.ResetTokenTTL,
			CooldownMax:       config.Security.ResetCooldownMax,
		},
		lg,
	)

	userService := user.NewService(
		userPostgres.NewRepository(gormDB),
		bus,
		user.Config{BCryptCost: config.Security.BCryptCost},
		lg,
	)

	complaintService := complaint.NewService(
		complaintPostgres.NewRepository(gormDB),
		bus,
		complaint.Config{ClearFeedbackOnReopen: config.Complaint.ClearFeedbackOnReopen},
		lg,
	)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		redisClient,
		auth.NewHandler(authService),
		user.NewHandler(userService),
		complaint.NewHandler(complaintService),
		config.Server.AllowedOrigins,
		config.Server.RequestTimeout,
		lg,
	)

	return &Dependencies{
		Config: config,
		DB:     db,
		Redis:  redisClient,
		Router: router,
		Logger: lg,
	}, nil
}

// initDB opens the pgx-backed connection pool used by both the health check
// and the orm.
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
