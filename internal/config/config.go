/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"coin-ledger-go/internal/models"
)

// Store backends selectable with STORE_BACKEND
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFormance = "formance"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	marketTimeout, err := getEnvDuration("MARKET_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := getEnvDuration("MARKET_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	maxAge, err := getEnvDuration("MARKET_MAX_AGE", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	defaultCurrency := strings.ToLower(getEnvString("DEFAULT_CURRENCY", "usd"))

	backend := strings.ToLower(getEnvString("STORE_BACKEND", BackendSQLite))
	switch backend {
	case BackendSQLite, BackendPostgres, BackendFormance:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q, %q or %q", backend, BackendSQLite, BackendPostgres, BackendFormance)
	}

	postgresURL := getEnvString("POSTGRES_URL", "")
	if backend == BackendPostgres && postgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required when STORE_BACKEND=%s", BackendPostgres)
	}

	formanceCfg := models.FormanceConfig{
		StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
		ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
		ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
		LedgerName:   getEnvString("FORMANCE_LEDGER", "coin-ledger"),
	}
	if backend == BackendFormance && (formanceCfg.StackURL == "" || formanceCfg.ClientID == "" || formanceCfg.ClientSecret == "") {
		return nil, fmt.Errorf("FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET are required when STORE_BACKEND=%s", BackendFormance)
	}

	return &models.Config{
		StoreBackend: backend,
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  connMaxLifetime,
			ConnMaxIdleTime:  connMaxIdleTime,
			PingTimeout:      pingTimeout,
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Postgres: models.PostgresConfig{
			URL:         postgresURL,
			Schema:      getEnvString("POSTGRES_SCHEMA", "coin_ledger"),
			MaxConns:    int32(getEnvInt("POSTGRES_MAX_CONNS", 10)),
			PingTimeout: pingTimeout,
		},
		Formance: formanceCfg,
		Market: models.MarketConfig{
			CoinGeckoBaseURL: getEnvString("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			CoinGeckoAPIKey:  getEnvString("COINGECKO_API_KEY", ""),
			BinanceBaseURL:   getEnvString("BINANCE_BASE_URL", "https://api.binance.com"),
			Timeout:          marketTimeout,
			DefaultCurrency:  defaultCurrency,
			CatalogSize:      getEnvInt("MARKET_CATALOG_SIZE", 250),
		},
		Listener: models.ListenerConfig{
			PollingInterval: pollingInterval,
			MaxAge:          maxAge,
			Currencies:      getEnvList("MARKET_POLL_CURRENCIES", []string{defaultCurrency}),
		},
		Server: models.ServerConfig{
			Addr:           getEnvString("HTTP_ADDR", ":8080"),
			RequestTimeout: requestTimeout,
			AllowedOrigin:  getEnvString("HTTP_ALLOWED_ORIGIN", "*"),
		},
		Watchlist: getEnvString("WATCHLIST_FILE", "coins.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
