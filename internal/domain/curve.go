package domain

import (
	"github.com/shopspring/decimal"
)

// Linear bonding curve: the price of one whole share rises with the number of
// shares already issued on the same entry, so each successive fixed-size
// stake yields fewer shares than the one before it.
//
//	price  = basePrice + floor(totalShares) × increment
//	shares = floor(stake / price)  at ValueScale precision
//
// Cumulative shares are normalised to whole units before pricing so the
// increment applies per whole share, not per fractional unit. There is no
// upper bound: at extreme cumulative scale the floored issuance legitimately
// reaches zero for a real stake. That degenerate result is expected curve
// behaviour, not an error — callers that must refuse zero-share stakes do so
// themselves.

// SharePrice returns the current price of one whole share for an entry with
// the given cumulative issued shares.
func SharePrice(totalShares, basePrice, increment decimal.Decimal) decimal.Decimal {
	return basePrice.Add(totalShares.Floor().Mul(increment))
}

// SharesForStake returns the number of shares issued for one fixed-size stake
// at the entry's current cumulative share count. QuoRem keeps the floor exact
// regardless of how long the quotient's expansion runs. Returns decimal.Zero
// when the price is zero or negative (misconfigured curve) rather than
// dividing by zero.
func SharesForStake(stake, totalShares, basePrice, increment decimal.Decimal) decimal.Decimal {
	price := SharePrice(totalShares, basePrice, increment)
	if !price.IsPositive() {
		return decimal.Zero
	}
	q, _ := stake.QuoRem(price, ValueScale)
	return q
}
