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
	"errors"
	"fmt"
	"strings"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/market"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeParams is a buy or sell order as entered by the user. Price is
// optional: when empty the order executes at the current market quote and
// the coin labels come from the catalog.
type TradeParams struct {
	CoinId   string `json:"coin_id"`
	Quantity string `json:"quantity"`
	Price    string `json:"price,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (s *LedgerService) Buy(ctx context.Context, userId string, params TradeParams) (*models.TradeResult, error) {
	return s.trade(ctx, userId, ledger.SideBuy, params)
}

func (s *LedgerService) Sell(ctx context.Context, userId string, params TradeParams) (*models.TradeResult, error) {
	return s.trade(ctx, userId, ledger.SideSell, params)
}

func (s *LedgerService) trade(ctx context.Context, userId string, side ledger.Side, params TradeParams) (*models.TradeResult, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}
	params.CoinId = strings.TrimSpace(params.CoinId)

	zap.L().Info("Processing trade",
		zap.String("user_id", userId),
		zap.String("side", string(side)),
		zap.String("coin_id", params.CoinId),
		zap.String("quantity", params.Quantity),
		zap.String("price", params.Price))

	quantity, err := ledger.ParseAmount(params.Quantity)
	if err != nil {
		return rejectedTrade(side, params.CoinId, err), nil
	}

	// read
	doc, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	request := ledger.TradeRequest{
		CoinId:   params.CoinId,
		Symbol:   params.Symbol,
		Name:     params.Name,
		Quantity: quantity,
		Side:     side,
	}
	if params.Price != "" {
		if request.UnitPrice, err = ledger.ParseAmount(params.Price); err != nil {
			return rejectedTrade(side, params.CoinId, err), nil
		}
	} else if params.CoinId != "" {
		coin, err := s.market.Quote(ctx, params.CoinId, doc.Currency)
		switch {
		case errors.Is(err, market.ErrUnknownCoin):
			return rejectedTrade(side, params.CoinId, &ledger.Error{Kind: ledger.KindInvalidRequest, Message: "Select a coin to trade"}), nil
		case errors.Is(err, market.ErrPriceUnavailable):
			return rejectedTrade(side, params.CoinId, &ledger.Error{Kind: ledger.KindInvalidRequest, Message: "Coin price is unavailable"}), nil
		case err != nil:
			zap.L().Error("Failed to quote coin", zap.String("coin_id", params.CoinId), zap.Error(err))
			return nil, fmt.Errorf("failed to quote %s: %w", params.CoinId, err)
		}
		request.UnitPrice = coin.CurrentPrice
		request.Symbol = coin.Symbol
		request.Name = coin.Name
	}

	// compute
	previous := doc.Ledger
	next, err := ledger.Apply(previous, request)
	if err != nil {
		if ledger.KindOf(err) == "" {
			return nil, err
		}
		zap.L().Info("Trade rejected",
			zap.String("user_id", userId),
			zap.String("side", string(side)),
			zap.String("coin_id", params.CoinId),
			zap.String("reason", string(ledger.KindOf(err))))
		return rejectedTrade(side, params.CoinId, err), nil
	}

	// write
	if err := s.store.Save(ctx, userId, store.NewLedgerFields(next)); err != nil {
		zap.L().Error("Failed to save trade",
			zap.String("user_id", userId),
			zap.String("coin_id", params.CoinId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save trade: %w", err)
	}

	// reflect
	doc.Ledger = next
	result := &models.TradeResult{
		Success:        true,
		Side:           string(side),
		CoinId:         request.CoinId,
		Symbol:         tradeSymbol(request, previous),
		Quantity:       request.Quantity,
		UnitPrice:      request.UnitPrice,
		Total:          request.Quantity.Mul(request.UnitPrice),
		RealizedProfit: next.Profit.Sub(previous.Profit),
		Dashboard:      dashboardOf(userId, doc),
	}

	zap.L().Info("Trade executed",
		zap.String("user_id", userId),
		zap.String("side", result.Side),
		zap.String("coin_id", result.CoinId),
		zap.String("quantity", result.Quantity.String()),
		zap.String("unit_price", result.UnitPrice.String()),
		zap.String("new_balance", next.Balance.String()))
	return result, nil
}

func rejectedTrade(side ledger.Side, coinId string, err error) *models.TradeResult {
	return &models.TradeResult{
		Success:        false,
		Side:           string(side),
		CoinId:         coinId,
		Quantity:       decimal.Zero,
		UnitPrice:      decimal.Zero,
		Total:          decimal.Zero,
		RealizedProfit: decimal.Zero,
		Reason:         string(ledger.KindOf(err)),
		Error:          err.Error(),
	}
}

func tradeSymbol(r ledger.TradeRequest, previous ledger.Snapshot) string {
	if r.Symbol != "" {
		return strings.ToUpper(r.Symbol)
	}
	if held, ok := previous.Position(r.CoinId); ok && held.Symbol != "" {
		return strings.ToUpper(held.Symbol)
	}
	return r.CoinId
}
