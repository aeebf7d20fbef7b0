package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equilibria/internal/api"
	"equilibria/internal/config"
	"equilibria/internal/database"
	"equilibria/internal/domain"
	"equilibria/internal/events"
	"equilibria/internal/logging"
	"equilibria/internal/metrics"
	"equilibria/internal/repository"
	"equilibria/internal/service"
	"equilibria/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "api-main")

	db, err := database.NewDB(cfg.Database.Path, baseLogger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	stateRepo := initStateRepository(cfg, redisClient, baseLogger)

	eventBus := events.NewEventBus()

	directory := service.NewDirectoryService(db, stateRepo, logging.Component(baseLogger, "directory"))
	created, err := directory.Seed(ctx, cfg.Practitioners)
	if err != nil {
		logger.Error().Err(err).Msg("seed practitioners")
		return err
	}
	logger.Info().Int("created", created).Int("configured", len(cfg.Practitioners)).Msg("practitioners seeded")

	notifications := service.NewNotificationService(db, logging.Component(baseLogger, "notifications"))
	notifications.Subscribe(eventBus)

	chat := service.NewChatService(db, chatRandom(cfg.Chat), cfg.Chat.LogTimeout, logging.Component(baseLogger, "chat"))
	defer chat.Wait()

	svc := api.Services{
		Store:         db,
		Booking:       service.NewBookingService(db, eventBus, logging.Component(baseLogger, "booking")),
		Directory:     directory,
		Chat:          chat,
		Ratings:       service.NewRatingService(db, eventBus, logging.Component(baseLogger, "ratings")),
		Notifications: notifications,
		Users:         service.NewUserService(db, logging.Component(baseLogger, "users")),
		Contact:       service.NewContactService(logging.Component(baseLogger, "contact")),
		Limits: service.NewStateService(
			stateRepo,
			cfg.Booking.UserRateLimit,
			time.Duration(cfg.Booking.UserRateWindow)*time.Second,
			logging.Component(baseLogger, "limits"),
		),
	}

	go database.NewBackupService(db, cfg.Backup, baseLogger).Start(ctx)

	if cfg.Reminders.Enabled {
		reminders, err := worker.NewReminderWorker(db, db, cfg.Reminders, logging.Component(baseLogger, "reminders"))
		if err != nil {
			return err
		}
		go reminders.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, cfg.Exports.Path, baseLogger)
	return serve(ctx, httpServer, cfg, logger)
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	client := repository.NewRedisClient(cfg.Redis)
	if client == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, using in-memory state")
		_ = repository.Close(client)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initStateRepository prefers Redis and keeps an in-memory copy to fall
// back on while Redis is unreachable.
func initStateRepository(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	ttl := time.Duration(cfg.Redis.CacheTTL) * time.Second
	memory := repository.NewMemoryStateRepository(ttl)
	if client == nil {
		return memory
	}
	return repository.NewFailoverStateRepository(
		repository.NewRedisStateRepository(client, ttl),
		memory,
		logging.Component(logger, "state"),
	)
}

func chatRandom(cfg config.ChatConfig) *rand.Rand {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("addr", httpServer.Addr()).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
