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

package ledger

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are bounded so that products and sums of them stay cheap and
// never overflow the decimal exponent: at most MaxAmountDigits significant
// digits, below 10^MaxIntegerDigits, and no digit smaller than
// 10^-(MaxAmountDigits+PricePrecision).
const (
	MaxAmountDigits  = 38
	MaxIntegerDigits = 20
)

// checkMagnitude rejects decimals outside the amount bounds without
// rescaling them.
func checkMagnitude(amount decimal.Decimal) error {
	digits := int64(amount.NumDigits())
	exp := int64(amount.Exponent())
	if digits > MaxAmountDigits {
		return newError(KindInvalidAmount, "Amount has too many digits")
	}
	if digits+exp > MaxIntegerDigits {
		return newError(KindInvalidAmount, "Amount is too large")
	}
	if exp < -int64(MaxAmountDigits+PricePrecision) {
		return newError(KindInvalidAmount, "Amount is too small")
	}
	return nil
}

// checkInput applies the amount bounds to user input, which additionally
// may not carry more than PricePrecision decimal places.
func checkInput(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, "Amount must be greater than zero")
	}
	if err := checkMagnitude(amount); err != nil {
		return decimal.Zero, err
	}
	if amount.Exponent() < -PricePrecision {
		truncated := amount.Truncate(PricePrecision)
		if !truncated.Equal(amount) {
			return decimal.Zero, newError(KindInvalidAmount, "Amount has too many decimal places")
		}
		amount = truncated
	}
	return amount, nil
}

// ParseAmount parses a user-entered amount. Anything that is not a finite,
// strictly positive number within the amount bounds is rejected with
// KindInvalidAmount.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, newError(KindInvalidAmount, "Please enter a valid amount")
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, newError(KindInvalidAmount, "Please enter a valid amount")
	}
	return checkInput(amount)
}

// AmountFromFloat converts a float64 coming from a JSON feed or a flag.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, newError(KindInvalidAmount, "Please enter a valid amount")
	}
	if f <= 0 {
		return decimal.Zero, newError(KindInvalidAmount, "Amount must be greater than zero")
	}
	return checkInput(decimal.NewFromFloat(f))
}
