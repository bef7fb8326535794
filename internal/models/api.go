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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeResult is returned for every buy or sell attempt. A rejected trade has
// Success=false, a machine readable Reason and a message for display.
type TradeResult struct {
	Success        bool            `json:"success"`
	Side           string          `json:"side,omitempty"`
	CoinId         string          `json:"coin_id,omitempty"`
	Symbol         string          `json:"symbol,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	Dashboard      *Dashboard      `json:"dashboard,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// FundsResult is returned for deposits and withdrawals
type FundsResult struct {
	Success    bool            `json:"success"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reason     string          `json:"reason,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Dashboard is the summary row shown above the market table
type Dashboard struct {
	UserId     string          `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	Spending   decimal.Decimal `json:"spending"`
	Sale       decimal.Decimal `json:"sale"`
	Profit     decimal.Decimal `json:"profit"`
	CoinsCount int             `json:"coins_count"`
}

// HoldingView is one portfolio line valued at the current market price
type HoldingView struct {
	CoinId           string          `json:"coin_id"`
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Image            string          `json:"image,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	Value            decimal.Decimal `json:"value"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	Priced           bool            `json:"priced"`
}

// PortfolioView is the profile page: dashboard totals plus holdings
type PortfolioView struct {
	Dashboard
	Currency         string          `json:"currency"`
	Holdings         []HoldingView   `json:"holdings"`
	MarketValue      decimal.Decimal `json:"market_value"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	PricedAt         time.Time       `json:"priced_at"`
}

// ProfileView is the public part of a user document
type ProfileView struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photo     string    `json:"photo,omitempty"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}
