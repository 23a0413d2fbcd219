package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/ponto/internal/api"
	"github.com/saturnino-fabrica-de-software/ponto/internal/attendance"
	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/database"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
	"github.com/saturnino-fabrica-de-software/ponto/internal/face"
	"github.com/saturnino-fabrica-de-software/ponto/internal/janitor"
	"github.com/saturnino-fabrica-de-software/ponto/internal/liveness"
	"github.com/saturnino-fabrica-de-software/ponto/internal/matcher"
	"github.com/saturnino-fabrica-de-software/ponto/internal/notify"
	"github.com/saturnino-fabrica-de-software/ponto/internal/repository"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
	"github.com/saturnino-fabrica-de-software/ponto/internal/ws"
)

const (
	shutdownTimeout     = 10 * time.Second
	notificationTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLoggerWithFile(cfg.Environment, cfg.LogFile)
	slog.SetDefault(logger)

	logger.Info("starting Ponto API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("embedding_provider", cfg.EmbeddingProvider),
		slog.String("landmark_provider", cfg.LandmarkProvider),
		slog.String("embedding_backend", cfg.EmbeddingBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.RunMigrations(ctx, cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	pool, err := database.NewPGXPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, dir := range []string{cfg.CapturesDir, cfg.RawUploadDir, cfg.EmbeddingsDir} {
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	auditLogger := audit.NewSlogLogger(logger)

	embedder, err := face.NewEmbeddingProvider(cfg)
	if err != nil {
		return err
	}
	detector, err := face.NewLandmarkDetector(ctx, cfg, auditLogger)
	if err != nil {
		return err
	}
	opener, err := face.NewVideoOpener(cfg)
	if err != nil {
		return err
	}
	store, err := embedding.NewStore(cfg.EmbeddingBackend, cfg.EmbeddingsDir, pool)
	if err != nil {
		return err
	}
	strategy, err := matcher.ParseStrategy(cfg.MatchStrategy)
	if err != nil {
		return err
	}

	locker, closeLocker, err := newLocker(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	live := ws.NewHub()
	go live.Run(ctx)

	var external notify.Multi
	if cfg.NotificationsEnabled() {
		external = append(external, notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}))
	}
	if cfg.BrokerEnabled() {
		client, err := connectMQTT(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		external = append(external, notify.NewMQTTPublisher(client, cfg.MQTTTopic, byte(cfg.MQTTQoS)))
	}

	notifiers := notify.Multi{live}
	var asyncNotifier *notify.Async
	if len(external) > 0 {
		asyncNotifier = notify.NewAsync(external, notificationTimeout, logger)
		notifiers = append(notifiers, asyncNotifier)
	}

	if cfg.UploadSweepInterval > 0 {
		sweeper := janitor.New(cfg.RawUploadDir, cfg.UploadMaxAge, logger)
		if err := sweeper.Start(cfg.UploadSweepInterval); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	employees := repository.NewEmployeeRepository(pool)
	records := repository.NewAttendanceRepository(pool)
	extractor := embedding.NewExtractor(embedder, logger)
	sampler := liveness.NewSampler(detector, liveness.Config{
		EARThreshold:         cfg.EARThreshold,
		MinConsecutiveFrames: cfg.EARConsecFrames,
		FrameStride:          cfg.FrameStride,
		Downscale:            cfg.Downscale,
		FallbackInterval:     cfg.FallbackInterval,
	}, logger)

	router := api.NewRouter(logger, api.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitMax:   cfg.RateLimitMax,
		ReadTimeout:    cfg.ProcessingTimeout,
		WriteTimeout:   cfg.ProcessingTimeout + 30*time.Second,
	}, &api.Dependencies{
		Employees: service.NewEmployeeService(employees, store, cfg.CapturesDir, auditLogger, logger),
		Enrollment: service.NewEnrollmentService(employees, opener, sampler, extractor, store, auditLogger,
			service.EnrollmentConfig{
				CapturesDir:       cfg.CapturesDir,
				RawUploadDir:      cfg.RawUploadDir,
				MaxUploadBytes:    cfg.MaxUploadBytes,
				ProcessingTimeout: cfg.ProcessingTimeout,
			}, logger),
		Recognition: service.NewRecognitionService(employees, opener, extractor,
			service.NewStoreCandidates(employees, store),
			attendance.NewGuard(records, locker, logger),
			notifiers, auditLogger,
			service.RecognitionConfig{
				RawUploadDir:      cfg.RawUploadDir,
				MaxUploadBytes:    cfg.MaxUploadBytes,
				ProcessingTimeout: cfg.ProcessingTimeout,
				Tolerance:         cfg.MatchTolerance,
				Strategy:          strategy,
			}, logger),
		Attendance: service.NewExportService(records),
		Live:       live,
		DB:         pool,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := router.Shutdown(); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
		if asyncNotifier != nil {
			asyncNotifier.Wait()
		}
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out")
	}
	logger.Info("server stopped")

	return nil
}

// newLocker returns the per-employee lock selected by LOCK_BACKEND and a
// function releasing its resources.
func newLocker(cfg *config.Config, logger *slog.Logger) (attendance.Locker, func(), error) {
	if cfg.LockBackend != "redis" {
		return attendance.NewKeyedMutex(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("using redis attendance lock", slog.String("addr", cfg.RedisAddr))
	return attendance.NewRedisLocker(client, attendance.DefaultLockTTL, logger), func() {
		_ = client.Close()
	}, nil
}

// connectMQTT dials the broker used for attendance events. The client
// reconnects on its own after the first successful connect.
func connectMQTT(cfg *config.Config, logger *slog.Logger) (mqtt.Client, error) {
	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = "ponto-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", slog.String("error", err.Error()))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.MQTTBroker, token.Error())
	}

	logger.Info("publishing attendance events",
		slog.String("broker", cfg.MQTTBroker),
		slog.String("topic", cfg.MQTTTopic),
	)
	return client, nil
}
