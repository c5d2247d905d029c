package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/rewired-gh/mobatips/internal/analyzer"
	"github.com/rewired-gh/mobatips/internal/config"
	"github.com/rewired-gh/mobatips/internal/livefeed"
	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/metrics"
	"github.com/rewired-gh/mobatips/internal/models"
	"github.com/rewired-gh/mobatips/internal/monitor"
	"github.com/rewired-gh/mobatips/internal/odds"
	"github.com/rewired-gh/mobatips/internal/prediction"
	"github.com/rewired-gh/mobatips/internal/publish"
	"github.com/rewired-gh/mobatips/internal/storage"
	"github.com/rewired-gh/mobatips/internal/telegram"
	"github.com/rewired-gh/mobatips/internal/validator"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// restoreWindow bounds how far back processed maps are reloaded when dedup entries never expire.
const restoreWindow = 24 * time.Hour

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", *configPath)

	method, _ := models.ParsePredictionMethod(cfg.Monitor.Method)

	store, err := storage.New(cfg.Storage.MaxTips, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Odds.RedisAddr,
		Password:    cfg.Odds.RedisPassword,
		DB:          cfg.Odds.RedisDB,
		ReadTimeout: cfg.Odds.Timeout,
	})
	defer func() { _ = rdb.Close() }()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis at %s not reachable yet: %v", cfg.Odds.RedisAddr, err)
	}
	pingCancel()

	feed := livefeed.NewBreakerSource(
		livefeed.NewClient(cfg.LiveFeed.BaseURL, cfg.LiveFeed.APIKey, cfg.LiveFeed.Timeout, cfg.LiveFeed.RequestsPerMinute),
		cfg.LiveFeed.BreakerFailures,
		cfg.LiveFeed.BreakerTimeout,
	)

	engine := prediction.New(
		analyzer.New(analyzer.NewChampionTable(cfg.Draft.ChampionWinrates)),
		prediction.NewHeuristicModel(nil),
		prediction.Config{
			ModelWeight:       cfg.Prediction.ModelWeight,
			AlgorithmicWeight: cfg.Prediction.AlgorithmicWeight,
		},
	)

	tipValidator := validator.New(validator.Config{
		MinStrength:          cfg.Validator.MinStrength,
		CompositionBonus:     cfg.Validator.CompositionBonus,
		StrengthFloor:        cfg.Validator.StrengthFloor,
		MinEVPercent:         cfg.Validator.MinEVPercent,
		MinOdds:              cfg.Validator.MinOdds,
		MaxOdds:              cfg.Validator.MaxOdds,
		TipWindow:            cfg.Validator.TipWindow,
		RequireCompleteDraft: cfg.Monitor.RequireCompleteDraft,
		MaxUnits:             cfg.Validator.MaxUnits,
	})

	var sinks []monitor.NamedSink
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		sinks = append(sinks, monitor.NamedSink{Name: "telegram", Sink: telegramClient})
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram delivery disabled")
	}

	if cfg.Kafka.Enabled {
		kafkaSink := publish.NewKafkaSink(publish.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				logger.Error("Failed to close Kafka writer: %v", err)
			}
		}()
		sinks = append(sinks, monitor.NamedSink{Name: "kafka", Sink: kafkaSink})
		logger.Info("Publishing tips to Kafka topic %s", cfg.Kafka.Topic)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	deps := monitor.Deps{
		Source:    feed,
		Odds:      odds.NewRedisSource(rdb, cfg.Odds.KeyPrefix, cfg.Odds.MaxAge),
		Sink:      monitor.NewMultiSink(sinks...),
		Predictor: engine,
		Validator: tipValidator,
		Recorder:  store,
		Metrics:   recorder,
	}
	if telegramClient != nil {
		deps.Notifier = telegramClient
	}

	mon := monitor.New(deps, monitor.Config{
		Interval:             cfg.LiveFeed.PollInterval,
		Leagues:              cfg.Monitor.Leagues,
		MinGameTime:          cfg.Monitor.MinGameTime,
		MaxGameTime:          cfg.Monitor.MaxGameTime,
		MinDataQuality:       cfg.Monitor.MinDataQuality,
		RequireCompleteDraft: cfg.Monitor.RequireCompleteDraft,
		MaxTipsPerWindow:     cfg.Monitor.MaxTipsPerWindow,
		RateWindow:           cfg.Monitor.RateWindow,
		TipRetention:         cfg.Monitor.TipRetention,
		EvictionGrace:        cfg.Monitor.EvictionGrace,
		DedupRetention:       cfg.Monitor.DedupRetention,
		PredictionCacheTTL:   cfg.Monitor.PredictionCacheTTL,
		Method:               method,
		OddsConcurrency:      cfg.Monitor.OddsConcurrency,
	})

	window := cfg.Monitor.DedupRetention
	if window <= 0 {
		window = restoreWindow
	}
	if maps, err := store.ProcessedMaps(time.Now().Add(-window)); err != nil {
		logger.Warn("Failed to restore processed maps: %v", err)
	} else if len(maps) > 0 {
		mon.RestoreProcessed(maps)
		logger.Info("Restored %d processed map(s) from the tip log", len(maps))
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		srv, err := metrics.StartServer(cfg.Metrics.Addr, registry, mon.Healthy)
		if err != nil {
			logger.Error("Failed to start metrics server: %v", err)
		} else {
			metricsServer = srv
			logger.Info("Metrics listening on %s", srv.Addr)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Maintenance.Schedule, func() {
		runMaintenance(mon, store, feed)
	}); err != nil {
		logger.Fatal("Failed to schedule maintenance: %v", err)
	}
	scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, mon.Stats)
	}

	logger.Info("Starting tips service (interval: %v, leagues: %v, method: %s, max tips: %d per %v)",
		cfg.LiveFeed.PollInterval,
		cfg.Monitor.Leagues,
		method,
		cfg.Monitor.MaxTipsPerWindow,
		cfg.Monitor.RateWindow,
	)

	mon.Run(ctx)

	<-scheduler.Stop().Done()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown: %v", err)
		}
		shutdownCancel()
	}
	logger.Info("Service stopped")
}

func runMaintenance(mon *monitor.Monitor, store *storage.Storage, feed *livefeed.BreakerSource) {
	mon.Cleanup()
	if err := store.RotateTips(); err != nil {
		logger.Warn("Failed to rotate tips: %v", err)
	}

	s := mon.Stats()
	counts, err := store.CountByStatus()
	if err != nil {
		logger.Warn("Failed to count stored tips: %v", err)
	}
	logger.Info("Stats: %d cycles, %d matches scanned, tips %d generated / %d sent / %d expired / %d rejected, stored %v, feed breaker %s",
		s.Cycles, s.MatchesScanned, s.TipsGenerated, s.TipsSent, s.TipsExpired, s.TipsRejected, counts, feed.State())
}
