package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/database"
	"coin-ledger-go/internal/formance"
	"coin-ledger-go/internal/listener"
	"coin-ledger-go/internal/market"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/postgres"
	"coin-ledger-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be read
		// (godotenv returns an error if .env doesn't exist)
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Store  store.DocumentStore
	Market *market.Service
	Prices *listener.PriceListener
	Ledger *api.LedgerService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	documentStore, err := InitializeStoreOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Initializing market data",
		zap.String("coingecko", cfg.Market.CoinGeckoBaseURL),
		zap.String("binance", cfg.Market.BinanceBaseURL),
		zap.String("default_currency", cfg.Market.DefaultCurrency))
	marketService, err := market.NewService(cfg.Market)
	if err != nil {
		documentStore.Close()
		return nil, err
	}

	prices := listener.NewPriceListener(listener.PriceListenerConfig{
		Source:          marketService,
		Currencies:      cfg.Listener.Currencies,
		PollingInterval: cfg.Listener.PollingInterval,
		MaxAge:          cfg.Listener.MaxAge,
	})

	return &Services{
		Store:  documentStore,
		Market: marketService,
		Prices: prices,
		Ledger: api.NewLedgerService(documentStore, prices),
	}, nil
}

// InitializeStoreOnly opens just the configured document store without market data
// Useful for read-only operations like listing users
func InitializeStoreOnly(ctx context.Context, cfg *models.Config) (store.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		zap.L().Info("Using PostgreSQL document store", zap.String("schema", cfg.Postgres.Schema))
		return postgres.NewService(ctx, cfg.Postgres)
	case config.BackendFormance:
		zap.L().Info("Using Formance document store", zap.String("ledger", cfg.Formance.LedgerName))
		return formance.NewService(ctx, cfg.Formance)
	case config.BackendSQLite, "":
		return database.NewService(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}

func (cs *Services) Close() {
	if cs.Prices != nil {
		cs.Prices.Stop()
	}
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
