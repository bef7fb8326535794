package common

import (
	"fmt"
	"io"
	"strings"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
)

const (
	DefaultWidth = 80
	boxWidth     = DefaultWidth - 2
)

// Report renders ledger results for the operator CLI tools.
type Report struct {
	w     io.Writer
	width int
}

func NewReport(w io.Writer) *Report {
	return &Report{w: w, width: DefaultWidth}
}

func (r *Report) Rule(char string) {
	fmt.Fprintln(r.w, strings.Repeat(char, r.width))
}

// Header prints a title between two "=" rules, preceded by a blank line.
func (r *Report) Header(title string) {
	fmt.Fprintln(r.w)
	r.Rule("=")
	fmt.Fprintln(r.w, title)
	r.Rule("=")
}

func (r *Report) Footer(message string) {
	fmt.Fprintln(r.w)
	r.Rule("=")
	fmt.Fprintln(r.w, message)
	r.Rule("=")
	fmt.Fprintln(r.w)
}

// Field prints one aligned "Label: value" line.
func (r *Report) Field(label string, value any) {
	fmt.Fprintf(r.w, "%-12s %v\n", label+":", value)
}

// Rejected prints a ledger rejection with its reason and display message.
func (r *Report) Rejected(title string, user UserInfo, reason, message string) {
	r.Header(title + " REJECTED")
	r.Field("User", fmt.Sprintf("%s (%s)", user.Name, user.Email))
	r.Field("Reason", reason)
	r.Field("Message", message)
	r.Rule("=")
}

func (r *Report) Trade(user UserInfo, result *models.TradeResult) {
	if !result.Success {
		r.Rejected("TRADE", user, result.Reason, result.Error)
		return
	}

	r.Header("TRADE EXECUTED")
	r.Field("User", fmt.Sprintf("%s (%s)", user.Name, user.Email))
	r.Field("Side", strings.ToUpper(result.Side))
	r.Field("Coin", fmt.Sprintf("%s (%s)", result.Symbol, result.CoinId))
	r.Field("Quantity", result.Quantity.String())
	r.Field("Unit Price", result.UnitPrice.String())
	r.Field("Total", result.Total.String())
	if result.Side == string(ledger.SideSell) {
		r.Field("Realized", result.RealizedProfit.String())
	}
	if result.Dashboard != nil {
		r.Rule("-")
		r.Dashboard(*result.Dashboard)
	}
	r.Rule("=")
}

func (r *Report) Dashboard(d models.Dashboard) {
	r.Field("Balance", d.Balance.String())
	r.Field("Spending", d.Spending.String())
	r.Field("Sale", d.Sale.String())
	r.Field("Profit", d.Profit.String())
	r.Field("Coins", d.CoinsCount)
}

// Funds prints the outcome of a deposit or withdrawal.
func (r *Report) Funds(user UserInfo, action string, result *models.FundsResult) {
	title := strings.ToUpper(action)
	if !result.Success {
		r.Rejected(title, user, result.Reason, result.Error)
		return
	}

	r.Header(title + " COMPLETED")
	r.Field("User", fmt.Sprintf("%s (%s)", user.Name, user.Email))
	r.Field("Amount", result.Amount.String()+" "+user.Currency)
	r.Field("New Balance", result.NewBalance.String()+" "+user.Currency)
	r.Rule("=")
}

// UserBlock opens a boxed portfolio section for one user.
func (r *Report) UserBlock(user UserInfo, view *models.PortfolioView) {
	fmt.Fprintf(r.w, "\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Fprintf(r.w, "│  ID: %s\n", user.Id)
	fmt.Fprintf(r.w, "│  Balance: %s %s   Spending: %s   Sale: %s   Profit: %s\n",
		view.Balance.StringFixed(2), view.Currency,
		view.Spending.StringFixed(2), view.Sale.StringFixed(2), view.Profit.StringFixed(2))
	fmt.Fprintf(r.w, "│  Coins: %d   Market value: %s   Unrealized: %s\n",
		view.CoinsCount, view.MarketValue.StringFixed(2), view.UnrealizedProfit.StringFixed(2))
	fmt.Fprintln(r.w, "├"+strings.Repeat("─", boxWidth))

	if len(view.Holdings) == 0 {
		fmt.Fprintln(r.w, "└  (no coins held)")
	}
}

// Holding prints one position inside a user block; watched coins are
// marked with "*".
func (r *Report) Holding(holding models.HoldingView, watched, isLast bool) {
	prefix, detail := "│  ", "│  "
	if isLast {
		prefix, detail = "└  ", "   "
	}
	marker := " "
	if watched {
		marker = "*"
	}

	value := "unpriced"
	if holding.Priced {
		value = fmt.Sprintf("value %s, p/l %s", holding.Value.StringFixed(2), holding.UnrealizedProfit.StringFixed(2))
	}

	fmt.Fprintf(r.w, "%s%s%-8s: %20s @ avg %s\n",
		prefix, marker, holding.Symbol, holding.Amount.String(), holding.AvgPrice.StringFixed(2))
	fmt.Fprintf(r.w, "%s  %s\n", detail, value)
}
