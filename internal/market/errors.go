package market

import "errors"

var (
	ErrUnknownCoin      = errors.New("unknown coin")
	ErrUnknownSymbol    = errors.New("unknown trading pair")
	ErrUnknownInterval  = errors.New("unknown chart interval")
	ErrPriceUnavailable = errors.New("coin price is unavailable")
	ErrUpstream         = errors.New("market data provider error")
)
