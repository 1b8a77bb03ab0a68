package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/notes_auth/internal/config"
	"github.com/Skotchmaster/notes_auth/internal/db"
	"github.com/Skotchmaster/notes_auth/internal/events"
	"github.com/Skotchmaster/notes_auth/internal/hash"
	"github.com/Skotchmaster/notes_auth/internal/httpserver"
	"github.com/Skotchmaster/notes_auth/internal/logging"
	loggingmw "github.com/Skotchmaster/notes_auth/internal/middleware/logging"
	"github.com/Skotchmaster/notes_auth/internal/repo"
	"github.com/Skotchmaster/notes_auth/internal/service"
	"github.com/Skotchmaster/notes_auth/internal/tokengen"
	"github.com/Skotchmaster/notes_auth/internal/tokens"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(ctx, gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	var publisher service.Publisher
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		publisher = producer
	} else {
		logger.Info("events_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	store := repo.New(gdb)
	gen := tokengen.New(cfg.AccountTokenAttempts)
	issuer := tokens.NewIssuer([]byte(cfg.JWTSecret), cfg.AccessTokenTTL)

	svc := &service.AuthService{
		Store:  store,
		Hasher: hash.NewHasher(cfg.BcryptCost),
		Tokens: gen,
		Issuer: issuer,
		Refresh: &service.RefreshManager{
			Store:     store,
			Gen:       gen,
			Months:    cfg.RefreshTokenMonths,
			MaxActive: cfg.MaxActiveRefreshTokens,
		},
		Events: publisher,
		Topic:  cfg.KafkaTopic,
	}

	ipExtractor, err := httpserver.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = ipExtractor
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Tokens:      issuer,
		Ready: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return db.Ping(ctx, gdb)
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close", "error", err)
	}

	logger.Info("auth stopped")
}
