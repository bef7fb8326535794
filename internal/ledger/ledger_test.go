package ledger

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func funded(balance string) Snapshot {
	s := NewSnapshot()
	s.Balance = d(balance)
	return s
}

func buyReq(coin, qty, price string) TradeRequest {
	return TradeRequest{CoinId: coin, Symbol: coin, Name: coin, Quantity: d(qty), UnitPrice: d(price), Side: SideBuy}
}

func sellReq(coin, qty, price string) TradeRequest {
	return TradeRequest{CoinId: coin, Symbol: coin, Name: coin, Quantity: d(qty), UnitPrice: d(price), Side: SideSell}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestBuySellScenario(t *testing.T) {
	s := funded("1000")

	s, err := Buy(s, buyReq("btc", "2", "100"))
	require.NoError(t, err)
	assertDecimal(t, "800", s.Balance)
	require.Contains(t, s.Portfolio, "btc")
	assertDecimal(t, "2", s.Portfolio["btc"].Amount)
	assertDecimal(t, "100", s.Portfolio["btc"].AvgPrice)

	s, err = Buy(s, buyReq("btc", "2", "200"))
	require.NoError(t, err)
	assertDecimal(t, "150", s.Portfolio["btc"].AvgPrice)
	assertDecimal(t, "4", s.Portfolio["btc"].Amount)
	assertDecimal(t, "400", s.Balance)
	assertDecimal(t, "600", s.Spending)

	s, err = Sell(s, sellReq("btc", "1", "300"))
	require.NoError(t, err)
	assertDecimal(t, "3", s.Portfolio["btc"].Amount)
	assertDecimal(t, "150", s.Portfolio["btc"].AvgPrice)
	assertDecimal(t, "700", s.Balance)
	assertDecimal(t, "150", s.Profit)
	assertDecimal(t, "300", s.Sale)
	assert.Equal(t, 1, s.CoinsCount)
}

func TestBuy_InsufficientFunds(t *testing.T) {
	s := funded("100")

	next, err := Buy(s, buyReq("eth", "1", "100.01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.Equal(t, "Insufficient balance to buy.", err.Error())
	assertDecimal(t, "100", next.Balance)
	assert.Empty(t, next.Portfolio)
}

func TestBuy_ExactBalanceAllowed(t *testing.T) {
	s, err := Buy(funded("100"), buyReq("eth", "0.5", "200"))
	require.NoError(t, err)
	assert.True(t, s.Balance.IsZero())
}

func TestBuy_WeightedAverage(t *testing.T) {
	q1, p1, q2, p2 := d("0.3"), d("27000.5"), d("1.7"), d("31000.25")

	s := funded("100000")
	s, err := Buy(s, TradeRequest{CoinId: "btc", Quantity: q1, UnitPrice: p1, Side: SideBuy})
	require.NoError(t, err)
	s, err = Buy(s, TradeRequest{CoinId: "btc", Quantity: q2, UnitPrice: p2, Side: SideBuy})
	require.NoError(t, err)

	want := q1.Mul(p1).Add(q2.Mul(p2)).DivRound(q1.Add(q2), PricePrecision)
	assertDecimal(t, want.String(), s.Portfolio["btc"].AvgPrice)
	assertDecimal(t, "2", s.Portfolio["btc"].Amount)
}

func TestBuy_RepeatingAverageIsRounded(t *testing.T) {
	s := funded("1000")
	s, err := Buy(s, buyReq("sol", "1", "100"))
	require.NoError(t, err)
	s, err = Buy(s, buyReq("sol", "2", "200"))
	require.NoError(t, err)

	assert.Equal(t, "166.666666666666666667", s.Portfolio["sol"].AvgPrice.String())
}

func TestBuy_KeepsExistingLabelsWhenRequestHasNone(t *testing.T) {
	s := funded("1000")
	s, err := Buy(s, TradeRequest{CoinId: "bitcoin", Symbol: "btc", Name: "Bitcoin", Quantity: d("1"), UnitPrice: d("10"), Side: SideBuy})
	require.NoError(t, err)
	s, err = Buy(s, TradeRequest{CoinId: "bitcoin", Quantity: d("1"), UnitPrice: d("10"), Side: SideBuy})
	require.NoError(t, err)

	assert.Equal(t, "btc", s.Portfolio["bitcoin"].Symbol)
	assert.Equal(t, "Bitcoin", s.Portfolio["bitcoin"].Name)
}

func TestBuy_RejectsInvalidRequests(t *testing.T) {
	s := funded("1000")
	tests := []struct {
		name string
		req  TradeRequest
		kind Kind
	}{
		{"zero quantity", buyReq("btc", "0", "10"), KindInvalidAmount},
		{"negative quantity", buyReq("btc", "-1", "10"), KindInvalidAmount},
		{"zero price", buyReq("btc", "1", "0"), KindInvalidAmount},
		{"missing coin", buyReq("", "1", "10"), KindInvalidRequest},
		{"wrong side", sellReq("btc", "1", "10"), KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Buy(s, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assertDecimal(t, "1000", next.Balance)
			assert.Empty(t, next.Portfolio)
		})
	}
}

func TestOversizedAmountsAreRejected(t *testing.T) {
	huge := decimal.New(1, 2000000000)
	tiny := decimal.New(1, -2000000000)
	s := funded("0.5")

	_, err := Buy(s, TradeRequest{CoinId: "btc", Quantity: huge, UnitPrice: huge, Side: SideBuy})
	assert.True(t, errors.Is(err, ErrInvalidAmount), "huge buy: %v", err)

	_, err = Buy(s, TradeRequest{CoinId: "btc", Quantity: tiny, UnitPrice: d("1"), Side: SideBuy})
	assert.True(t, errors.Is(err, ErrInvalidAmount), "tiny buy: %v", err)

	held := funded("100")
	held.Portfolio["btc"] = Position{Amount: d("1"), AvgPrice: d("10")}
	held.CoinsCount = 1
	_, err = Sell(held, TradeRequest{CoinId: "btc", Quantity: d("1"), UnitPrice: huge, Side: SideSell})
	assert.True(t, errors.Is(err, ErrInvalidAmount), "huge sell price: %v", err)

	next, err := Deposit(s, decimal.New(1, 30000000))
	assert.True(t, errors.Is(err, ErrInvalidAmount), "huge deposit: %v", err)
	assert.True(t, next.Balance.Equal(d("0.5")))

	_, err = Withdraw(s, huge)
	assert.True(t, errors.Is(err, ErrInvalidAmount), "huge withdraw: %v", err)
}

func TestSell_NoPosition(t *testing.T) {
	s := funded("10")
	_, err := Sell(s, sellReq("doge", "1", "1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPosition))
}

func TestSell_InsufficientHoldingsLeavesSnapshotUnchanged(t *testing.T) {
	s, err := Buy(funded("1000"), buyReq("btc", "2", "100"))
	require.NoError(t, err)

	next, err := Sell(s, sellReq("btc", "2.5", "100"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientHoldings))
	assert.Equal(t, s, next)
	assertDecimal(t, "2", s.Portfolio["btc"].Amount)
	assertDecimal(t, "800", s.Balance)
}

func TestSell_FullLiquidationRemovesPosition(t *testing.T) {
	s, err := Buy(funded("1000"), buyReq("btc", "2", "100"))
	require.NoError(t, err)
	s, err = Buy(s, buyReq("eth", "1", "50"))
	require.NoError(t, err)
	require.Equal(t, 2, s.CoinsCount)

	s, err = Sell(s, sellReq("btc", "2", "80"))
	require.NoError(t, err)

	_, held := s.Position("btc")
	assert.False(t, held)
	assert.Equal(t, 1, s.CoinsCount)
	assertDecimal(t, "-40", s.Profit)
	assertDecimal(t, "910", s.Balance)
}

func TestSell_PartialKeepsAveragePrice(t *testing.T) {
	s := funded("1000")
	s, err := Buy(s, buyReq("sol", "1", "100"))
	require.NoError(t, err)
	s, err = Buy(s, buyReq("sol", "2", "200"))
	require.NoError(t, err)
	before := s.Portfolio["sol"].AvgPrice

	s, err = Sell(s, sellReq("sol", "0.75", "170"))
	require.NoError(t, err)

	after := s.Portfolio["sol"].AvgPrice
	assert.Equal(t, before.String(), after.String())
	assertDecimal(t, "2.25", s.Portfolio["sol"].Amount)
}

func TestRoundTripRestoresBalance(t *testing.T) {
	start := funded("1234.56")
	s, err := Buy(start, buyReq("ada", "17.3", "0.4512"))
	require.NoError(t, err)
	s, err = Sell(s, sellReq("ada", "17.3", "0.4512"))
	require.NoError(t, err)

	assertDecimal(t, "1234.56", s.Balance)
	assert.True(t, s.Profit.IsZero())
	assert.Empty(t, s.Portfolio)
	assert.Equal(t, 0, s.CoinsCount)
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	s, err := Buy(funded("1000"), buyReq("btc", "1", "100"))
	require.NoError(t, err)
	before := s.Clone()

	_, err = Buy(s, buyReq("eth", "1", "10"))
	require.NoError(t, err)
	_, err = Sell(s, sellReq("btc", "1", "100"))
	require.NoError(t, err)

	assert.Equal(t, before, s)
}

func TestDepositWithdraw(t *testing.T) {
	s, err := Deposit(NewSnapshot(), d("1000"))
	require.NoError(t, err)
	assertDecimal(t, "1000", s.Balance)

	_, err = Withdraw(s, d("1001"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	s, err = Withdraw(s, d("1000"))
	require.NoError(t, err)
	assert.True(t, s.Balance.IsZero())

	_, err = Deposit(s, d("0"))
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	_, err = Withdraw(s, d("-5"))
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestApply(t *testing.T) {
	s, err := Apply(funded("10"), buyReq("btc", "1", "5"))
	require.NoError(t, err)
	s, err = Apply(s, sellReq("btc", "1", "6"))
	require.NoError(t, err)
	assertDecimal(t, "11", s.Balance)

	_, err = Apply(s, TradeRequest{CoinId: "btc", Quantity: d("1"), UnitPrice: d("1"), Side: "hold"})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestValidate(t *testing.T) {
	s, err := Buy(funded("10"), buyReq("btc", "1", "5"))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	stale := s.Clone()
	stale.CoinsCount = 3
	assert.Error(t, stale.Validate())

	zeroed := s.Clone()
	zeroed.Portfolio["btc"] = Position{Amount: decimal.Zero, AvgPrice: d("5")}
	assert.Error(t, zeroed.Validate())

	negative := s.Clone()
	negative.Balance = d("-1")
	assert.Error(t, negative.Validate())
}

// TestRandomSequencesKeepInvariants drives random trades and checks the
// balance, position and count invariants after every committed step.
func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	coins := []string{"btc", "eth", "sol"}

	s := funded("5000")
	for i := 0; i < 2000; i++ {
		coin := coins[rng.Intn(len(coins))]
		qty := decimal.New(int64(rng.Intn(500)+1), -2)
		price := decimal.New(int64(rng.Intn(20000)+1), -1)

		var next Snapshot
		var err error
		switch rng.Intn(4) {
		case 0:
			next, err = Buy(s, TradeRequest{CoinId: coin, Quantity: qty, UnitPrice: price, Side: SideBuy})
		case 1:
			if p, ok := s.Portfolio[coin]; ok && rng.Intn(3) == 0 {
				qty = p.Amount
			}
			next, err = Sell(s, TradeRequest{CoinId: coin, Quantity: qty, UnitPrice: price, Side: SideSell})
		case 2:
			next, err = Deposit(s, price)
		default:
			next, err = Withdraw(s, price)
		}

		if err != nil {
			var ledgerErr *Error
			require.True(t, errors.As(err, &ledgerErr), "unexpected error type: %v", err)
			require.Equal(t, s, next)
			continue
		}

		require.NoError(t, next.Validate(), "step %d", i)
		require.False(t, next.Balance.IsNegative())
		require.Equal(t, len(next.Portfolio), next.CoinsCount)
		s = next
	}
}
