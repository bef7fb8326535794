package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"coin-ledger-go/internal/models"

	"go.uber.org/zap"
)

const DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient reads the coin catalog from the CoinGecko REST API.
type CoinGeckoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewCoinGeckoClient(httpClient *http.Client, baseURL, apiKey string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	return &CoinGeckoClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Markets returns the first page of coins ordered by market cap rank,
// priced in vsCurrency.
func (c *CoinGeckoClient) Markets(ctx context.Context, vsCurrency string, perPage int) ([]models.Coin, error) {
	query := url.Values{}
	query.Set("vs_currency", strings.ToLower(vsCurrency))
	query.Set("order", "market_cap_rank")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", "1")
	query.Set("sparkline", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/coins/markets?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build coingecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch coingecko markets: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: coingecko returned %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var coins []models.Coin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, fmt.Errorf("unable to decode coingecko markets: %w", err)
	}

	zap.L().Debug("Fetched coin catalog", zap.String("currency", vsCurrency), zap.Int("count", len(coins)))
	return coins, nil
}
