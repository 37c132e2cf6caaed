package domain

import (
	"fmt"
	"math"
	"strings"
)

// ApplicationFee returns the platform commission, rounded half away from zero.
func ApplicationFee(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}

// Split returns the commission and the seller payout; the two always sum to amount.
func Split(amount int64, rate float64) (fee int64, payout int64) {
	fee = ApplicationFee(amount, rate)
	return fee, amount - fee
}

var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// FormatAmount renders minor units as "USD 29.99".
func FormatAmount(amount int64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimalCurrencies[strings.ToLower(code)]; ok {
		return fmt.Sprintf("%s %d", code, amount)
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", code, sign, amount/100, amount%100)
}
