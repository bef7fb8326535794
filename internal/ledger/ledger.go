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

// Package ledger holds the paper-trading bookkeeping for a single user: a cash
// balance, the coins currently held and the running spending/sale/profit totals.
//
// Every operation is a pure function from one Snapshot to the next. A rejected
// operation returns the input snapshot untouched together with an *Error;
// persistence is the caller's job.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places kept when an average
// cost basis does not divide evenly.
const PricePrecision int32 = 18

// Side of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Position is a strictly positive holding of one coin.
type Position struct {
	Amount   decimal.Decimal `json:"amount"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
}

// Snapshot is the complete ledger state of one user.
type Snapshot struct {
	Balance    decimal.Decimal     `json:"balance"`
	Portfolio  map[string]Position `json:"portfolio"`
	CoinsCount int                 `json:"coinsCount"`
	Spending   decimal.Decimal     `json:"spending"`
	Sale       decimal.Decimal     `json:"sale"`
	Profit     decimal.Decimal     `json:"profit"`
}

// TradeRequest asks to buy or sell Quantity units of CoinId at UnitPrice.
type TradeRequest struct {
	CoinId    string
	Symbol    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	Side      Side
}

// NewSnapshot returns the state of a freshly registered user.
func NewSnapshot() Snapshot {
	return Snapshot{
		Balance:   decimal.Zero,
		Portfolio: map[string]Position{},
		Spending:  decimal.Zero,
		Sale:      decimal.Zero,
		Profit:    decimal.Zero,
	}
}

// Clone returns a deep copy; the portfolio map is never shared.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Portfolio = make(map[string]Position, len(s.Portfolio))
	for id, p := range s.Portfolio {
		c.Portfolio[id] = p
	}
	return c
}

// Validate checks the invariants every committed snapshot satisfies.
func (s Snapshot) Validate() error {
	if s.Balance.IsNegative() {
		return newError(KindInvalidAmount, "balance is negative: %s", s.Balance.String())
	}
	for id, p := range s.Portfolio {
		if id == "" {
			return newError(KindInvalidRequest, "position with empty coin id")
		}
		if !p.Amount.IsPositive() {
			return newError(KindInvalidAmount, "position %s has non-positive amount %s", id, p.Amount.String())
		}
		if p.AvgPrice.IsNegative() {
			return newError(KindInvalidAmount, "position %s has negative average price %s", id, p.AvgPrice.String())
		}
	}
	if s.CoinsCount != len(s.Portfolio) {
		return newError(KindInvalidRequest, "coins count %d does not match %d positions", s.CoinsCount, len(s.Portfolio))
	}
	return nil
}

// Position returns the holding for coinId, if any.
func (s Snapshot) Position(coinId string) (Position, bool) {
	p, ok := s.Portfolio[coinId]
	return p, ok
}

func (r TradeRequest) validate() error {
	if r.CoinId == "" {
		return newError(KindInvalidRequest, "Select a coin to trade")
	}
	if !r.Quantity.IsPositive() {
		return newError(KindInvalidAmount, "Enter a valid amount")
	}
	if !r.UnitPrice.IsPositive() {
		return newError(KindInvalidAmount, "Coin price is unavailable")
	}
	if err := checkMagnitude(r.Quantity); err != nil {
		return err
	}
	return checkMagnitude(r.UnitPrice)
}

// Apply dispatches r to Buy or Sell.
func Apply(s Snapshot, r TradeRequest) (Snapshot, error) {
	switch r.Side {
	case SideBuy:
		return Buy(s, r)
	case SideSell:
		return Sell(s, r)
	default:
		return s, newError(KindInvalidRequest, "unknown trade side %q", r.Side)
	}
}

// Buy debits quantity*unitPrice from the balance and adds the coins to the
// position, folding them into a quantity-weighted average cost basis.
func Buy(s Snapshot, r TradeRequest) (Snapshot, error) {
	if r.Side != SideBuy {
		return s, newError(KindInvalidRequest, "trade side must be %q, got %q", SideBuy, r.Side)
	}
	if err := r.validate(); err != nil {
		return s, err
	}

	totalCost := r.Quantity.Mul(r.UnitPrice)
	if s.Balance.LessThan(totalCost) {
		return s, newError(KindInsufficientFunds, "Insufficient balance to buy.")
	}

	next := s.Clone()
	if held, ok := next.Portfolio[r.CoinId]; ok {
		newAmount := held.Amount.Add(r.Quantity)
		newAvgPrice := held.Amount.Mul(held.AvgPrice).Add(totalCost).DivRound(newAmount, PricePrecision)
		next.Portfolio[r.CoinId] = Position{
			Amount:   newAmount,
			AvgPrice: newAvgPrice,
			Symbol:   firstNonEmpty(r.Symbol, held.Symbol),
			Name:     firstNonEmpty(r.Name, held.Name),
		}
	} else {
		next.Portfolio[r.CoinId] = Position{
			Amount:   r.Quantity,
			AvgPrice: r.UnitPrice,
			Symbol:   r.Symbol,
			Name:     r.Name,
		}
	}

	next.Balance = next.Balance.Sub(totalCost)
	next.Spending = next.Spending.Add(totalCost)
	next.CoinsCount = len(next.Portfolio)
	return next, nil
}

// Sell credits quantity*unitPrice to the balance and realizes the profit
// against the position's average cost. Selling the whole amount removes the
// position; a partial sell keeps the average price as is.
func Sell(s Snapshot, r TradeRequest) (Snapshot, error) {
	if r.Side != SideSell {
		return s, newError(KindInvalidRequest, "trade side must be %q, got %q", SideSell, r.Side)
	}
	if err := r.validate(); err != nil {
		return s, err
	}

	held, ok := s.Portfolio[r.CoinId]
	if !ok {
		return s, newError(KindNoPosition, "You do not hold any %s to sell.", displaySymbol(r))
	}
	if held.Amount.LessThan(r.Quantity) {
		return s, newError(KindInsufficientHoldings, "Insufficient coin amount to sell.")
	}

	revenue := r.Quantity.Mul(r.UnitPrice)
	realized := revenue.Sub(held.AvgPrice.Mul(r.Quantity))

	next := s.Clone()
	if held.Amount.Equal(r.Quantity) {
		delete(next.Portfolio, r.CoinId)
	} else {
		held.Amount = held.Amount.Sub(r.Quantity)
		next.Portfolio[r.CoinId] = held
	}

	next.Balance = next.Balance.Add(revenue)
	next.Profit = next.Profit.Add(realized)
	next.Sale = next.Sale.Add(revenue)
	next.CoinsCount = len(next.Portfolio)
	return next, nil
}

// Deposit adds cash to the balance.
func Deposit(s Snapshot, amount decimal.Decimal) (Snapshot, error) {
	if !amount.IsPositive() {
		return s, newError(KindInvalidAmount, "Please enter a valid amount")
	}
	if err := checkMagnitude(amount); err != nil {
		return s, err
	}
	next := s.Clone()
	next.Balance = next.Balance.Add(amount)
	next.CoinsCount = len(next.Portfolio)
	return next, nil
}

// Withdraw removes cash from the balance; it never goes below zero.
func Withdraw(s Snapshot, amount decimal.Decimal) (Snapshot, error) {
	if !amount.IsPositive() {
		return s, newError(KindInvalidAmount, "Please enter a valid amount")
	}
	if err := checkMagnitude(amount); err != nil {
		return s, err
	}
	if s.Balance.LessThan(amount) {
		return s, newError(KindInsufficientFunds, "Insufficient balance!")
	}
	next := s.Clone()
	next.Balance = next.Balance.Sub(amount)
	next.CoinsCount = len(next.Portfolio)
	return next, nil
}

func displaySymbol(r TradeRequest) string {
	if r.Symbol != "" {
		return strings.ToUpper(r.Symbol)
	}
	return r.CoinId
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
