package wallet

import (
	"github.com/shopspring/decimal"
)

var satsPerCoin = decimal.New(1, 8)

// CoinToSatoshis converts a decimal coin amount, as returned by block
// explorers, into satoshis. The amount is rounded to 8 decimals first.
func CoinToSatoshis(value string) (uint64, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if amount.IsNegative() {
		return 0, ErrInvalidAmount
	}
	sats := amount.Round(8).Mul(satsPerCoin).Round(0)
	return uint64(sats.IntPart()), nil
}

// SatoshisToCoin converts an amount in satoshis to its decimal coin value.
func SatoshisToCoin(sats uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(sats)).Div(satsPerCoin)
}
