package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Holding is a position marked to the current market price.
type Holding struct {
	CoinId           string
	Position         Position
	CostBasis        decimal.Decimal
	CurrentPrice     decimal.Decimal
	MarketValue      decimal.Decimal
	UnrealizedProfit decimal.Decimal
	Priced           bool
}

// Holdings values every position with prices keyed by coin id. Positions
// without a price are still listed with Priced=false and zero market value.
// The result is ordered by coin name, then id.
func (s Snapshot) Holdings(prices map[string]decimal.Decimal) []Holding {
	holdings := make([]Holding, 0, len(s.Portfolio))
	for id, p := range s.Portfolio {
		h := Holding{
			CoinId:    id,
			Position:  p,
			CostBasis: p.Amount.Mul(p.AvgPrice),
		}
		if price, ok := prices[id]; ok && price.IsPositive() {
			h.Priced = true
			h.CurrentPrice = price
			h.MarketValue = p.Amount.Mul(price)
			h.UnrealizedProfit = h.MarketValue.Sub(h.CostBasis)
		}
		holdings = append(holdings, h)
	}

	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Position.Name != holdings[j].Position.Name {
			return holdings[i].Position.Name < holdings[j].Position.Name
		}
		return holdings[i].CoinId < holdings[j].CoinId
	})
	return holdings
}

// MarketValue sums the value of all priced holdings.
func (s Snapshot) MarketValue(prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, h := range s.Holdings(prices) {
		total = total.Add(h.MarketValue)
	}
	return total
}

// UnrealizedProfit sums the paper profit of all priced holdings.
func (s Snapshot) UnrealizedProfit(prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, h := range s.Holdings(prices) {
		total = total.Add(h.UnrealizedProfit)
	}
	return total
}
