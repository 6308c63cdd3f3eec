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

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"fundarb/internal/api"
	"fundarb/internal/config"
	"fundarb/internal/exchange"
	"fundarb/internal/models"
	"fundarb/internal/repository"
	"fundarb/internal/scanner"
	"fundarb/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Опциональный журнал сигналов в PostgreSQL
	var store scanner.SignalStore
	if cfg.Database.Enabled() {
		db, err := initDatabase(cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("signal journal enabled", zap.String("dsn", cfg.Database.DSNWithoutPassword()))
		store = repository.NewSignalRepository(db)
	}

	// Ядро сканера
	queue := scanner.NewSnapshotQueue()
	table := scanner.NewOpportunityTable()
	scorer := scanner.NewScorer(scanner.ScorerConfig{
		MinVolumeUSD:      cfg.Scanner.MinVolumeUSD,
		MinProfitBps:      cfg.Scanner.MinProfitBps,
		MinScoreThreshold: cfg.Scanner.MinScoreThreshold,
		MaxValidSpreadBps: cfg.Scanner.MaxValidSpreadBps,
		MaxSnapshotAgeS:   cfg.Scanner.MaxSnapshotAge.Seconds(),
		MakerFees:         cfg.Fees.Maker,
		TakerFees:         cfg.Fees.Taker,
	})

	signals := make(chan *models.TradeSignal, cfg.Scanner.SignalBuffer)

	engine := scanner.NewEngine(scanner.EngineConfig{
		SignalScoreThreshold: cfg.Scanner.SignalScoreThreshold,
		Cooldown:             cfg.Scanner.Cooldown,
		Workers:              cfg.Scanner.ScorerWorkers,
	}, queue, scorer, table, signals, logger)

	recorder := scanner.NewSignalRecorder(signals, store, logger)
	dashboard := scanner.NewDashboard(table, cfg.Scanner.DashboardInterval, cfg.Scanner.DashboardTopN, os.Stdout)

	// Адаптеры бирж: метаданные рынков загружаются до старта потоков
	opts := exchange.Options{
		ConnectTimeout:   cfg.Venues.ConnectTimeout,
		PingInterval:     cfg.Venues.PingInterval,
		ReconnectBackoff: cfg.Venues.ReconnectBackoff,
		ChunkSize:        cfg.Venues.ChunkSize,
		ChunkStagger:     cfg.Venues.ChunkStagger,
	}

	adapters := make([]exchange.Adapter, 0, len(cfg.Venues.Venues))
	for _, name := range cfg.Venues.Venues {
		adapter, err := exchange.New(name, opts, logger)
		if err != nil {
			logger.Fatal("failed to create adapter", zap.String("venue", name), zap.Error(err))
		}

		if _, err := adapter.LoadMarkets(ctx); err != nil {
			logger.Fatal("failed to load markets", zap.String("venue", name), zap.Error(err))
		}

		adapters = append(adapters, adapter)
	}

	// Запуск рабочих горутин
	go engine.Run(ctx)
	go recorder.Run(ctx)
	go dashboard.Run(ctx)

	for _, adapter := range adapters {
		go func(a exchange.Adapter) {
			if err := a.Stream(ctx, queue); err != nil {
				logger.Error("stream terminated", zap.String("venue", a.Name()), zap.Error(err))
			}
		}(adapter)
	}

	// HTTP сервер: read-only API, /health, /metrics
	router := api.SetupRoutes(&api.Dependencies{
		Table:     table,
		Queue:     queue,
		Venues:    cfg.Venues.Venues,
		StartedAt: time.Now(),
		Log:       logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown по SIGINT/SIGTERM
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("scanner exited")
}

// initDatabase создает подключение к базе данных журнала сигналов
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
