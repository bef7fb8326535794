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
	"strings"
	"time"

	"coin-ledger-go/internal/models"

	"go.uber.org/zap"
)

// GetDashboard returns the totals shown above the market table
func (s *LedgerService) GetDashboard(ctx context.Context, userId string) (*models.Dashboard, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}

	doc, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return dashboardOf(userId, doc), nil
}

// GetPortfolio values every holding at the current market price. If market
// data is unavailable the holdings are returned unpriced.
func (s *LedgerService) GetPortfolio(ctx context.Context, userId, currency string) (*models.PortfolioView, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}

	doc, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = doc.Currency
	}

	images := map[string]string{}
	var coins []models.Coin
	if len(doc.Ledger.Portfolio) > 0 {
		coins, err = s.market.Coins(ctx, currency)
		if err != nil {
			zap.L().Warn("Market data unavailable, returning unpriced portfolio",
				zap.String("user_id", userId),
				zap.Error(err))
			coins = nil
		}
		for _, coin := range coins {
			images[coin.Id] = coin.Image
		}
	}
	prices := priceMap(coins)

	holdings := doc.Ledger.Holdings(prices)
	view := &models.PortfolioView{
		Dashboard:        *dashboardOf(userId, doc),
		Currency:         currency,
		Holdings:         make([]models.HoldingView, 0, len(holdings)),
		MarketValue:      doc.Ledger.MarketValue(prices),
		UnrealizedProfit: doc.Ledger.UnrealizedProfit(prices),
		PricedAt:         time.Now().UTC(),
	}
	for _, h := range holdings {
		view.Holdings = append(view.Holdings, models.HoldingView{
			CoinId:           h.CoinId,
			Symbol:           h.Position.Symbol,
			Name:             h.Position.Name,
			Image:            images[h.CoinId],
			Amount:           h.Position.Amount,
			AvgPrice:         h.Position.AvgPrice,
			CurrentPrice:     h.CurrentPrice,
			Value:            h.MarketValue,
			UnrealizedProfit: h.UnrealizedProfit,
			Priced:           h.Priced,
		})
	}

	return view, nil
}
