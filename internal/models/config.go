package models

import "time"

type Config struct {
	StoreBackend string
	Database     DatabaseConfig
	Postgres     PostgresConfig
	Formance     FormanceConfig
	Market       MarketConfig
	Listener     ListenerConfig
	Server       ServerConfig
	Watchlist    string
}

// DatabaseConfig holds SQLite connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	CreateDummyUsers bool
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	URL         string
	Schema      string
	MaxConns    int32
	PingTimeout time.Duration
}

// FormanceConfig holds Formance Stack ledger settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// MarketConfig holds upstream market data settings
type MarketConfig struct {
	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string
	BinanceBaseURL   string
	Timeout          time.Duration
	DefaultCurrency  string
	CatalogSize      int
}

// ListenerConfig holds market price polling settings
type ListenerConfig struct {
	PollingInterval time.Duration
	MaxAge          time.Duration
	Currencies      []string
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigin  string
}
