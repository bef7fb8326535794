package market

import "strings"

// Interval is one chart range of the dashboard and the binance kline
// resolution that covers it.
type Interval struct {
	Label   string
	Binance string
	Limit   int
}

var intervals = map[string]Interval{
	"1D": {Label: "1D", Binance: "15m", Limit: 96},
	"7D": {Label: "7D", Binance: "1h", Limit: 168},
	"1M": {Label: "1M", Binance: "4h", Limit: 180},
	"3M": {Label: "3M", Binance: "1d", Limit: 90},
	"1Y": {Label: "1Y", Binance: "1w", Limit: 52},
}

const DefaultInterval = "1D"

// LookupInterval resolves a chart range label. Empty means DefaultInterval.
func LookupInterval(label string) (Interval, error) {
	if label == "" {
		label = DefaultInterval
	}
	interval, ok := intervals[strings.ToUpper(label)]
	if !ok {
		return Interval{}, ErrUnknownInterval
	}
	return interval, nil
}

// QuoteAsset maps a fiat currency to the binance quote asset. USD trades
// against USDT.
func QuoteAsset(currency string) string {
	quote := strings.ToUpper(strings.TrimSpace(currency))
	if quote == "USD" || quote == "" {
		return "USDT"
	}
	return quote
}

// Pair builds the binance pair of a coin symbol in currency, e.g. BTCUSDT.
func Pair(symbol, currency string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + QuoteAsset(currency)
}
