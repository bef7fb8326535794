package common

import (
	"bytes"
	"strings"
	"testing"

	"coin-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

var reportUser = UserInfo{Id: "u1", Name: "Ada", Email: "ada@example.com", Currency: "usd"}

func TestReport_TradeExecuted(t *testing.T) {
	var buf bytes.Buffer
	NewReport(&buf).Trade(reportUser, &models.TradeResult{
		Success:        true,
		Side:           "sell",
		CoinId:         "bitcoin",
		Symbol:         "BTC",
		Quantity:       decimal.NewFromInt(1),
		UnitPrice:      decimal.NewFromInt(300),
		Total:          decimal.NewFromInt(300),
		RealizedProfit: decimal.NewFromInt(150),
		Dashboard:      &models.Dashboard{Balance: decimal.NewFromInt(700), CoinsCount: 1},
	})

	out := buf.String()
	for _, want := range []string{"TRADE EXECUTED", "Side:        SELL", "Coin:        BTC (bitcoin)", "Realized:    150", "Balance:     700", "Coins:       1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReport_Rejections(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport(&buf)
	report.Trade(reportUser, &models.TradeResult{Reason: "InsufficientFunds", Error: "Insufficient balance to buy."})
	report.Funds(reportUser, "withdraw", &models.FundsResult{Reason: "InsufficientFunds", Error: "Insufficient balance!"})

	out := buf.String()
	for _, want := range []string{"TRADE REJECTED", "WITHDRAW REJECTED", "Insufficient balance to buy.", "Reason:      InsufficientFunds"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Balance:") {
		t.Errorf("rejections should not print a dashboard:\n%s", out)
	}
}

func TestReport_Funds(t *testing.T) {
	var buf bytes.Buffer
	NewReport(&buf).Funds(reportUser, "deposit", &models.FundsResult{
		Success:    true,
		Amount:     decimal.NewFromInt(50),
		NewBalance: decimal.NewFromInt(1050),
	})

	out := buf.String()
	if !strings.Contains(out, "DEPOSIT COMPLETED") || !strings.Contains(out, "New Balance: 1050 usd") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestReport_UserBlock(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport(&buf)

	report.UserBlock(reportUser, &models.PortfolioView{Currency: "usd"})
	if !strings.Contains(buf.String(), "(no coins held)") {
		t.Errorf("expected empty marker:\n%s", buf.String())
	}

	buf.Reset()
	holdings := []models.HoldingView{
		{CoinId: "bitcoin", Symbol: "BTC", Amount: decimal.NewFromInt(3), AvgPrice: decimal.NewFromInt(150)},
		{CoinId: "ethereum", Symbol: "ETH", Amount: decimal.NewFromInt(2), AvgPrice: decimal.NewFromInt(10),
			Priced: true, Value: decimal.NewFromInt(40), UnrealizedProfit: decimal.NewFromInt(20)},
	}
	report.UserBlock(reportUser, &models.PortfolioView{Currency: "usd", Holdings: holdings})
	report.Holding(holdings[0], true, false)
	report.Holding(holdings[1], false, true)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if strings.Contains(buf.String(), "(no coins held)") {
		t.Errorf("unexpected empty marker:\n%s", buf.String())
	}
	last := lines[len(lines)-2]
	if !strings.HasPrefix(last, "└   ETH") {
		t.Errorf("expected closing box prefix on last holding, got %q", last)
	}
	if !strings.Contains(buf.String(), "│  *BTC") || !strings.Contains(buf.String(), "unpriced") {
		t.Errorf("expected watched unpriced BTC line:\n%s", buf.String())
	}
	if !strings.HasSuffix(lines[len(lines)-1], "value 40.00, p/l 20.00") {
		t.Errorf("unexpected detail line %q", lines[len(lines)-1])
	}
}
