package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coin-ledger-go/internal/models"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Binance rejects unknown pairs with this code.
const binanceInvalidSymbol = -1121

// BinanceClient reads public spot prices and klines. No API key is needed.
type BinanceClient struct {
	client *binance.Client
}

func NewBinanceClient(httpClient *http.Client, baseURL string) *BinanceClient {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BinanceClient{client: client}
}

// Prices returns the last price of every listed pair.
func (b *BinanceClient) Prices(ctx context.Context) ([]models.Ticker, error) {
	prices, err := b.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list binance prices: %w", err)
	}

	tickers := make([]models.Ticker, 0, len(prices))
	for _, p := range prices {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			zap.L().Warn("Skipping unparsable binance price", zap.String("symbol", p.Symbol), zap.String("price", p.Price))
			continue
		}
		tickers = append(tickers, models.Ticker{Symbol: p.Symbol, Price: price})
	}
	return tickers, nil
}

// Price returns the last price of one pair, e.g. BTCUSDT.
func (b *BinanceClient) Price(ctx context.Context, pair string) (decimal.Decimal, error) {
	prices, err := b.client.NewListPricesService().Symbol(strings.ToUpper(pair)).Do(ctx)
	if err != nil {
		return decimal.Zero, wrapBinanceError(pair, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownSymbol, pair)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse binance price %q: %w", prices[0].Price, err)
	}
	return price, nil
}

// Klines returns up to limit candles of pair at the given binance interval.
func (b *BinanceClient) Klines(ctx context.Context, pair, interval string, limit int) ([]models.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(strings.ToUpper(pair)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, wrapBinanceError(pair, err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := toCandle(k)
		if err != nil {
			return nil, fmt.Errorf("unable to parse kline of %s: %w", pair, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func toCandle(k *binance.Kline) (models.Candle, error) {
	candle := models.Candle{
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
	}
	for _, f := range []struct {
		value string
		dst   *decimal.Decimal
	}{
		{k.Open, &candle.Open},
		{k.High, &candle.High},
		{k.Low, &candle.Low},
		{k.Close, &candle.Close},
		{k.Volume, &candle.Volume},
	} {
		v, err := decimal.NewFromString(f.value)
		if err != nil {
			return models.Candle{}, err
		}
		*f.dst = v
	}
	return candle, nil
}

func wrapBinanceError(pair string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, pair)
	}
	return fmt.Errorf("binance request for %s failed: %w", pair, err)
}
