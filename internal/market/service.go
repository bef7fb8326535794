package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coin-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCatalogSize = 250
	defaultCurrency    = "usd"
	iconURL            = "https://cryptoicon-api.vercel.app/api/icon/"
)

// CatalogSource lists the tradable coins with reference prices.
type CatalogSource interface {
	Markets(ctx context.Context, vsCurrency string, perPage int) ([]models.Coin, error)
}

// TickerSource provides exchange prices and candles.
type TickerSource interface {
	Prices(ctx context.Context) ([]models.Ticker, error)
	Klines(ctx context.Context, pair, interval string, limit int) ([]models.Candle, error)
}

// Service combines the coin catalog with live exchange tickers into the
// prices the ledger trades at.
type Service struct {
	catalog         CatalogSource
	tickers         TickerSource
	catalogSize     int
	defaultCurrency string
}

// NewService builds the CoinGecko and Binance clients from cfg.
func NewService(cfg models.MarketConfig) (*Service, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient, err := createCustomHttpClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return NewServiceWithSources(
		NewCoinGeckoClient(httpClient, cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey),
		NewBinanceClient(httpClient, cfg.BinanceBaseURL),
		cfg,
	), nil
}

func NewServiceWithSources(catalog CatalogSource, tickers TickerSource, cfg models.MarketConfig) *Service {
	size := cfg.CatalogSize
	if size <= 0 {
		size = defaultCatalogSize
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.DefaultCurrency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &Service{
		catalog:         catalog,
		tickers:         tickers,
		catalogSize:     size,
		defaultCurrency: currency,
	}
}

func (s *Service) currency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return s.defaultCurrency
	}
	return currency
}

// Coins returns the catalog priced in currency. Exchange tickers take
// precedence over catalog prices; if the exchange is unreachable the
// catalog prices are used as they are.
func (s *Service) Coins(ctx context.Context, currency string) ([]models.Coin, error) {
	currency = s.currency(currency)

	var coins []models.Coin
	var tickers []models.Ticker

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coins, err = s.catalog.Markets(gctx, currency, s.catalogSize)
		return err
	})
	g.Go(func() error {
		var err error
		tickers, err = s.tickers.Prices(gctx)
		if err != nil {
			zap.L().Warn("Exchange prices unavailable, using catalog prices", zap.Error(err))
			tickers = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergePrices(coins, tickers, currency), nil
}

// MergePrices overrides each coin's price with the exchange ticker of the
// same base symbol quoted in currency. The first matching ticker wins.
func MergePrices(coins []models.Coin, tickers []models.Ticker, currency string) []models.Coin {
	quote := QuoteAsset(currency)

	bySymbol := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, quote) {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(t.Symbol, quote))
		if base == "" {
			continue
		}
		if _, seen := bySymbol[base]; !seen {
			bySymbol[base] = t.Price
		}
	}

	merged := make([]models.Coin, len(coins))
	for i, coin := range coins {
		base := strings.ToLower(coin.Symbol)
		if price, ok := bySymbol[base]; ok {
			coin.CurrentPrice = price
			if coin.Image == "" {
				coin.Image = iconURL + base
			}
		}
		merged[i] = coin
	}
	return merged
}

// Quote returns the catalog entry of coinId with the price a trade would
// execute at.
func (s *Service) Quote(ctx context.Context, coinId, currency string) (models.Coin, error) {
	coins, err := s.Coins(ctx, currency)
	if err != nil {
		return models.Coin{}, err
	}
	return FindCoin(coins, coinId)
}

// FindCoin picks coinId out of a priced catalog.
func FindCoin(coins []models.Coin, coinId string) (models.Coin, error) {
	for _, coin := range coins {
		if coin.Id == coinId {
			if !coin.CurrentPrice.IsPositive() {
				return models.Coin{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, coinId)
			}
			return coin, nil
		}
	}
	return models.Coin{}, fmt.Errorf("%w: %s", ErrUnknownCoin, coinId)
}

// Currency normalizes currency, falling back to the configured default.
func (s *Service) Currency(currency string) string {
	return s.currency(currency)
}

// Prices returns the current price of each coin in the catalog, keyed by
// coin id.
func (s *Service) Prices(ctx context.Context, currency string) (map[string]decimal.Decimal, error) {
	coins, err := s.Coins(ctx, currency)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(coins))
	for _, coin := range coins {
		if coin.CurrentPrice.IsPositive() {
			prices[coin.Id] = coin.CurrentPrice
		}
	}
	return prices, nil
}

// Candles returns the chart of symbol in currency over a dashboard range
// such as 1D or 1Y.
func (s *Service) Candles(ctx context.Context, symbol, currency, interval string) ([]models.Candle, Interval, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, Interval{}, fmt.Errorf("%w: empty symbol", ErrUnknownSymbol)
	}
	resolved, err := LookupInterval(interval)
	if err != nil {
		return nil, Interval{}, fmt.Errorf("%w: %s", err, interval)
	}

	pair := Pair(symbol, s.currency(currency))
	candles, err := s.tickers.Klines(ctx, pair, resolved.Binance, resolved.Limit)
	if err != nil {
		return nil, Interval{}, err
	}

	zap.L().Debug("Fetched candles",
		zap.String("pair", pair),
		zap.String("interval", resolved.Label),
		zap.Int("count", len(candles)))
	return candles, resolved, nil
}
