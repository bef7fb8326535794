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

package listener

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"coin-ledger-go/internal/market"
	"coin-ledger-go/internal/models"

	"go.uber.org/zap"
)

// Source is the upstream the listener polls.
type Source interface {
	Coins(ctx context.Context, currency string) ([]models.Coin, error)
	Candles(ctx context.Context, symbol, currency, interval string) ([]models.Candle, market.Interval, error)
	Currency(currency string) string
}

// PriceListenerConfig contains configuration for PriceListener
type PriceListenerConfig struct {
	Source          Source
	Currencies      []string
	PollingInterval time.Duration
	MaxAge          time.Duration
	CleanupInterval time.Duration
}

// PriceListener polls the market catalog in the background and serves
// prices from the last snapshot while it is fresh.
type PriceListener struct {
	source Source

	snapshots       map[string]snapshot
	mutex           sync.RWMutex
	currencies      []string
	pollingInterval time.Duration
	maxAge          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	started  bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPriceListener creates a new price listener
func NewPriceListener(cfg PriceListenerConfig) *PriceListener {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = maxAge
	}

	currencies := make([]string, 0, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		c = cfg.Source.Currency(c)
		if !slices.Contains(currencies, c) {
			currencies = append(currencies, c)
		}
	}
	if len(currencies) == 0 {
		currencies = append(currencies, cfg.Source.Currency(""))
	}

	return &PriceListener{
		source:          cfg.Source,
		snapshots:       make(map[string]snapshot),
		currencies:      currencies,
		pollingInterval: cfg.PollingInterval,
		maxAge:          maxAge,
		cleanupInterval: cleanup,
		now:             time.Now,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start warms the snapshots and begins polling. A zero polling interval
// leaves the listener as a read-through cache.
func (l *PriceListener) Start(ctx context.Context) error {
	if l.pollingInterval <= 0 {
		zap.L().Info("Price polling disabled, serving prices on demand")
		return nil
	}

	zap.L().Info("Starting price listener", zap.Strings("currencies", l.currencies))

	if failed := l.pollCurrencies(ctx); len(failed) == len(l.currencies) {
		zap.L().Warn("Initial price poll failed for every currency, serving on demand until the next poll",
			zap.Strings("currencies", failed))
	}

	l.started = true
	go l.pollLoop(ctx)

	zap.L().Info("Price listener started successfully",
		zap.Duration("polling_interval", l.pollingInterval),
		zap.Duration("max_age", l.maxAge))
	return nil
}

// Stop gracefully stops the price listener
func (l *PriceListener) Stop() {
	if !l.started {
		return
	}
	l.stopOnce.Do(func() {
		zap.L().Info("Stopping price listener")
		close(l.stopChan)
		<-l.doneChan
		zap.L().Info("Price listener stopped")
	})
}

func (l *PriceListener) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.pollingInterval)
	defer ticker.Stop()
	cleanup := time.NewTicker(l.cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ticker.C:
			l.pollCurrencies(ctx)
		case <-cleanup.C:
			l.evictStale()
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pollCurrencies refreshes every configured currency and returns the ones
// that failed.
func (l *PriceListener) pollCurrencies(ctx context.Context) []string {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	for _, currency := range l.currencies {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			if _, err := l.refresh(ctx, c); err != nil {
				zap.L().Error("Failed to poll prices",
					zap.String("currency", c),
					zap.Error(err))
				mu.Lock()
				failed = append(failed, c)
				mu.Unlock()
			}
		}(currency)
	}

	wg.Wait()
	return failed
}

func (l *PriceListener) refresh(ctx context.Context, currency string) ([]models.Coin, error) {
	coins, err := l.source.Coins(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coins: %w", err)
	}
	l.store(currency, coins)

	zap.L().Debug("Prices refreshed",
		zap.String("currency", currency),
		zap.Int("coins", len(coins)))
	return slices.Clone(coins), nil
}

// Coins returns the priced catalog, from the snapshot while it is younger
// than the max age and from the source otherwise.
func (l *PriceListener) Coins(ctx context.Context, currency string) ([]models.Coin, error) {
	currency = l.source.Currency(currency)
	if coins, ok := l.fresh(currency); ok {
		return coins, nil
	}
	return l.refresh(ctx, currency)
}

// Quote returns coinId priced in currency.
func (l *PriceListener) Quote(ctx context.Context, coinId, currency string) (models.Coin, error) {
	coins, err := l.Coins(ctx, currency)
	if err != nil {
		return models.Coin{}, err
	}
	return market.FindCoin(coins, coinId)
}

// Candles are not cached.
func (l *PriceListener) Candles(ctx context.Context, symbol, currency, interval string) ([]models.Candle, market.Interval, error) {
	return l.source.Candles(ctx, symbol, currency, interval)
}
