package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // TIMEZONE без системной базы поясов

	"qc-vision/config"
	telegram "qc-vision/internal/api"
	app "qc-vision/internal/application"
	"qc-vision/internal/container"
	"qc-vision/internal/infrastructure/describer"
	"qc-vision/internal/infrastructure/storage"
	"qc-vision/internal/infrastructure/telemetry"
	"qc-vision/internal/infrastructure/vision"
	"qc-vision/internal/lgr"
	"qc-vision/internal/playback"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lgr.Logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		lgr.Logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.TelegramToken == "" {
		lgr.Logger.Error("TELEGRAM_TOKEN is required")
		os.Exit(1)
	}

	logCloser := lgr.Setup(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		lgr.Logger.Error("bot stopped with error", "error", err)
		stop()
		logCloser.Close()
		os.Exit(1)
	}
	lgr.Logger.Info("bot stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	labels, err := vision.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return err
	}

	model, err := vision.NewYOLOModel(vision.ModelConfig{
		ModelPath:     cfg.ModelPath,
		LabelsPath:    cfg.LabelsPath,
		InputSize:     cfg.ModelInputSize,
		MinConfidence: cfg.ModelMinConfidence,
		NMSThreshold:  cfg.NMSThreshold,
	})
	if err != nil {
		return err
	}
	defer model.Close()

	deps := container.Deps{
		Model:     model,
		Opener:    vision.CaptureOpener{},
		Describer: describer.TableDescriber{},
		Inspection: app.InspectionConfig{
			TempDir:         cfg.TempDir,
			AnomalyDir:      cfg.AnomalyDir,
			RecordAnomalies: cfg.RecordAnomalies,
		},
		DefaultConfidence: cfg.DefaultConfidence,
		Location:          cfg.Location(),
	}

	// Хранилища: PostgreSQL или память
	if cfg.DatabaseURL != "" {
		pool, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := storage.Migrate(ctx, pool, labels); err != nil {
			return err
		}
		deps.Users = storage.NewPostgresUserRepository(pool)
		deps.Operations = storage.NewPostgresOperationRepository(pool)
		deps.Anomalies = storage.NewPostgresAnomalyRepository(pool)
	} else {
		lgr.Logger.Warn("DATABASE_URL is not set, using in-memory storage")
		deps.Users = storage.NewMemoryUserRepository()
		deps.Operations = storage.NewMemoryOperationRepository()
		deps.Anomalies = storage.NewMemoryAnomalyRepository(labels)
	}

	// Телеметрия
	metrics := telemetry.NewMetrics()
	deps.Observers = append(deps.Observers, metrics)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(metrics), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			lgr.Logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lgr.Logger.Error("metrics server failed", "error", err)
			}
		}()
		defer shutdown(srv)
	}

	if cfg.MQTTBroker != "" {
		publisher := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
		})
		if err := publisher.Connect(ctx); err != nil {
			// клиент переподключается сам, публикации до этого считаются ошибками
			lgr.Logger.Warn("mqtt broker unavailable", "error", err)
		}
		defer publisher.Disconnect()
		deps.Observers = append(deps.Observers, publisher)
	}

	if cfg.TraceFile != "" {
		tracing, err := telemetry.SetupTracing(cfg.TraceFile, "qc-vision")
		if err != nil {
			return err
		}
		defer shutdownTracing(tracing)
		deps.LoopOptions = append(deps.LoopOptions, playback.WithTracer(tracing.Tracer(playback.TracerName)))
	}

	if cfg.JournalFile != "" {
		journal, closer := telemetry.NewJournal(cfg.JournalFile)
		defer closer.Close()
		deps.Observers = append(deps.Observers, journal)
	}

	c := container.New(deps)

	if cfg.AdminUsername != "" {
		created, err := c.UserService.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			lgr.Logger.Info("admin account created", "username", cfg.AdminUsername)
		}
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, c, cfg.ProgressInterval)
	if err != nil {
		return err
	}

	lgr.Logger.Info("bot is running", "observers", len(deps.Observers))
	return bot.Run(ctx)
}

func metricsMux(metrics *telemetry.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lgr.Logger.Warn("metrics server shutdown", "error", err)
	}
}

func shutdownTracing(tracing *telemetry.Tracing) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil {
		lgr.Logger.Warn("tracing shutdown", "error", err)
	}
}
