package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldings(t *testing.T) {
	s := funded("10000")
	s, err := Buy(s, TradeRequest{CoinId: "ethereum", Symbol: "eth", Name: "Ethereum", Quantity: d("2"), UnitPrice: d("1500"), Side: SideBuy})
	require.NoError(t, err)
	s, err = Buy(s, TradeRequest{CoinId: "bitcoin", Symbol: "btc", Name: "Bitcoin", Quantity: d("0.1"), UnitPrice: d("30000"), Side: SideBuy})
	require.NoError(t, err)

	prices := map[string]decimal.Decimal{"bitcoin": d("32000")}
	holdings := s.Holdings(prices)
	require.Len(t, holdings, 2)

	assert.Equal(t, "bitcoin", holdings[0].CoinId)
	assert.True(t, holdings[0].Priced)
	assertDecimal(t, "3200", holdings[0].MarketValue)
	assertDecimal(t, "200", holdings[0].UnrealizedProfit)

	assert.Equal(t, "ethereum", holdings[1].CoinId)
	assert.False(t, holdings[1].Priced)
	assertDecimal(t, "3000", holdings[1].CostBasis)

	assertDecimal(t, "3200", s.MarketValue(prices))
	assertDecimal(t, "200", s.UnrealizedProfit(prices))
}
