package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xaenox/trafikkvarsel/internal/conversation"
	"github.com/xaenox/trafikkvarsel/internal/datex"
	"github.com/xaenox/trafikkvarsel/internal/metrics"
	"github.com/xaenox/trafikkvarsel/internal/reconciler"
	"github.com/xaenox/trafikkvarsel/internal/sources"
	"github.com/xaenox/trafikkvarsel/internal/storage"
	"github.com/xaenox/trafikkvarsel/internal/web"
	"github.com/xaenox/trafikkvarsel/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	// Write path: datex feed into the situation store
	feed := datex.NewFeed(
		datex.NewClient(httpClient, datex.ClientConfig{
			BaseURL:   cfg.Datex.BaseURL,
			Username:  cfg.Datex.Username,
			Password:  cfg.Datex.Password,
			UserAgent: cfg.Datex.UserAgent,
		}),
		datex.NewParser(logger),
	)
	rec := reconciler.New(store, feed, cfg.Sync.Retention, m, logger)

	// Read path: message sources rendered as threads
	keywords := conversation.Keywords{
		Done:   cfg.Classifier.DoneKeywords,
		Fixing: cfg.Classifier.FixingKeywords,
	}
	twitterClient := sources.NewTwitterClient(httpClient, sources.TwitterConfig{
		BaseURL:     cfg.Twitter.BaseURL,
		BearerToken: cfg.Twitter.BearerToken,
		UserAgent:   cfg.Datex.UserAgent,
	}, keywords, logger)
	policeClient := sources.NewPoliceClient(httpClient, sources.PoliceConfig{
		BaseURL:    cfg.Police.BaseURL,
		Districts:  cfg.Police.Districts,
		Categories: cfg.Police.Categories,
		Take:       cfg.Police.Take,
	}, logger)

	server, err := web.NewServer([]web.ThreadSource{
		func(ctx context.Context) ([]sources.Thread, error) {
			return twitterClient.Conversations(ctx, cfg.Twitter.Username, cfg.Twitter.PastHours)
		},
		policeClient.Threads,
	}, registry, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// One sync cycle at a time, on a fixed interval
	go rec.RunEvery(ctx, cfg.Sync.Interval)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Listening", zap.String("address", cfg.Server.Address))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
