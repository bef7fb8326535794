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

package api

import (
	"context"
	"fmt"

	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// MarketData is the slice of the market service the ledger needs to price
// trades and value holdings.
type MarketData interface {
	Quote(ctx context.Context, coinId, currency string) (models.Coin, error)
	Coins(ctx context.Context, currency string) ([]models.Coin, error)
}

// LedgerService is the UI-facing API. Every mutation follows the same
// cycle: read the user document, compute the next snapshot, write it, and
// only then report it.
type LedgerService struct {
	store  store.DocumentStore
	market MarketData
}

func NewLedgerService(store store.DocumentStore, market MarketData) *LedgerService {
	return &LedgerService{
		store:  store,
		market: market,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func dashboardOf(userId string, doc *models.UserDocument) *models.Dashboard {
	snapshot := doc.Ledger
	return &models.Dashboard{
		UserId:     userId,
		Balance:    snapshot.Balance,
		Spending:   snapshot.Spending,
		Sale:       snapshot.Sale,
		Profit:     snapshot.Profit,
		CoinsCount: snapshot.CoinsCount,
	}
}

func requireUser(userId string) error {
	if userId == "" {
		return fmt.Errorf("%w: user_id is required", store.ErrInvalidParameters)
	}
	return nil
}

func priceMap(coins []models.Coin) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(coins))
	for _, coin := range coins {
		if coin.CurrentPrice.IsPositive() {
			prices[coin.Id] = coin.CurrentPrice
		}
	}
	return prices
}
