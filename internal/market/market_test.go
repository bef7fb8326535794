package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coin-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsBody = `[
	{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":60000.5,"market_cap":1200000000000,"market_cap_rank":1,"price_change_percentage_24h":-1.25},
	{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"","current_price":3000,"market_cap":360000000000,"market_cap_rank":2,"price_change_percentage_24h":null},
	{"id":"obscure","symbol":"obs","name":"Obscure","image":"https://img/obs.png","current_price":0.01,"market_cap":null,"market_cap_rank":null,"price_change_percentage_24h":3}
]`

const pricesBody = `[
	{"symbol":"BTCUSDT","price":"61000.10"},
	{"symbol":"ETHBTC","price":"0.05"},
	{"symbol":"ETHUSDT","price":"3100.00"},
	{"symbol":"BTCEUR","price":"56000.00"}
]`

const klinesBody = `[
	[1700000000000,"100.0","110.0","90.0","105.0","12.5",1700000899999,"1300.0",42,"6.0","630.0","0"],
	[1700000900000,"105.0","120.0","101.0","118.0","3.25",1700001799999,"380.0",17,"1.0","118.0","0"]
]`

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketsBody))
	})
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pricesBody))
	})
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		assert.Equal(t, "96", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(klinesBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	server := newUpstream(t)
	service, err := NewService(models.MarketConfig{
		CoinGeckoBaseURL: server.URL,
		CoinGeckoAPIKey:  "demo-key",
		BinanceBaseURL:   server.URL,
		Timeout:          5 * time.Second,
	})
	require.NoError(t, err)
	return service
}

func TestService_CoinsPrefersExchangePrices(t *testing.T) {
	service := newTestService(t)

	coins, err := service.Coins(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, coins, 3)

	assert.Equal(t, "bitcoin", coins[0].Id)
	assert.True(t, coins[0].CurrentPrice.Equal(decimal.RequireFromString("61000.10")), coins[0].CurrentPrice.String())
	assert.Equal(t, "https://img/btc.png", coins[0].Image)
	assert.True(t, coins[0].PriceChangePercentage24h.Equal(decimal.RequireFromString("-1.25")))

	assert.True(t, coins[1].CurrentPrice.Equal(decimal.RequireFromString("3100")))
	assert.Equal(t, iconURL+"eth", coins[1].Image)

	// no USDT pair: catalog price stays
	assert.True(t, coins[2].CurrentPrice.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 0, coins[2].MarketCapRank)
}

func TestService_Quote(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	coin, err := service.Quote(ctx, "ethereum", "usd")
	require.NoError(t, err)
	assert.Equal(t, "eth", coin.Symbol)
	assert.True(t, coin.CurrentPrice.Equal(decimal.NewFromInt(3100)))

	_, err = service.Quote(ctx, "dogecoin", "usd")
	assert.ErrorIs(t, err, ErrUnknownCoin)
}

func TestService_Prices(t *testing.T) {
	service := newTestService(t)

	prices, err := service.Prices(context.Background(), "usd")
	require.NoError(t, err)
	assert.Len(t, prices, 3)
	assert.True(t, prices["bitcoin"].Equal(decimal.RequireFromString("61000.1")))
}

func TestService_Candles(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	candles, interval, err := service.Candles(ctx, "btc", "usd", "1d")
	require.NoError(t, err)
	assert.Equal(t, "1D", interval.Label)
	require.Len(t, candles, 2)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), candles[0].OpenTime)
	assert.True(t, candles[0].Close.Equal(decimal.NewFromInt(105)))
	assert.True(t, candles[1].Volume.Equal(decimal.RequireFromString("3.25")))

	_, _, err = service.Candles(ctx, "nope", "usd", "1D")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, _, err = service.Candles(ctx, "btc", "usd", "5Y")
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestCoinGeckoClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.Client(), server.URL, "")
	_, err := client.Markets(context.Background(), "usd", 10)
	assert.ErrorIs(t, err, ErrUpstream)
}

type stubCatalog struct {
	coins []models.Coin
	err   error
}

func (s stubCatalog) Markets(ctx context.Context, vsCurrency string, perPage int) ([]models.Coin, error) {
	return s.coins, s.err
}

type stubTickers struct {
	err error
}

func (s stubTickers) Prices(ctx context.Context) ([]models.Ticker, error) {
	return nil, s.err
}

func (s stubTickers) Klines(ctx context.Context, pair, interval string, limit int) ([]models.Candle, error) {
	return nil, s.err
}

func TestService_CoinsFallsBackWhenExchangeDown(t *testing.T) {
	catalog := stubCatalog{coins: []models.Coin{{Id: "bitcoin", Symbol: "btc", CurrentPrice: decimal.NewFromInt(50000)}}}
	service := NewServiceWithSources(catalog, stubTickers{err: errors.New("connection refused")}, models.MarketConfig{})

	coins, err := service.Coins(context.Background(), "usd")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.True(t, coins[0].CurrentPrice.Equal(decimal.NewFromInt(50000)))
}

func TestService_CoinsFailsWhenCatalogDown(t *testing.T) {
	service := NewServiceWithSources(stubCatalog{err: ErrUpstream}, stubTickers{}, models.MarketConfig{})

	_, err := service.Coins(context.Background(), "usd")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestService_QuoteWithoutPrice(t *testing.T) {
	catalog := stubCatalog{coins: []models.Coin{{Id: "newcoin", Symbol: "new"}}}
	service := NewServiceWithSources(catalog, stubTickers{}, models.MarketConfig{})

	_, err := service.Quote(context.Background(), "newcoin", "usd")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestMergePrices_OtherCurrency(t *testing.T) {
	coins := []models.Coin{{Id: "bitcoin", Symbol: "BTC", CurrentPrice: decimal.NewFromInt(1)}}
	tickers := []models.Ticker{
		{Symbol: "BTCUSDT", Price: decimal.NewFromInt(2)},
		{Symbol: "BTCEUR", Price: decimal.NewFromInt(3)},
	}

	merged := MergePrices(coins, tickers, "eur")
	assert.True(t, merged[0].CurrentPrice.Equal(decimal.NewFromInt(3)))
	assert.True(t, coins[0].CurrentPrice.Equal(decimal.NewFromInt(1)), "input must not change")
}

func TestLookupInterval(t *testing.T) {
	tests := []struct {
		label   string
		binance string
		limit   int
	}{
		{"", "15m", 96},
		{"1D", "15m", 96},
		{"7d", "1h", 168},
		{"1M", "4h", 180},
		{"3M", "1d", 90},
		{"1Y", "1w", 52},
	}
	for _, tt := range tests {
		interval, err := LookupInterval(tt.label)
		require.NoError(t, err, tt.label)
		assert.Equal(t, tt.binance, interval.Binance, tt.label)
		assert.Equal(t, tt.limit, interval.Limit, tt.label)
	}

	_, err := LookupInterval("2W")
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestPair(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Pair("btc", "usd"))
	assert.Equal(t, "ETHEUR", Pair("eth", "EUR"))
	assert.Equal(t, "USDT", QuoteAsset(""))
}
