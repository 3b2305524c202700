package hyperliquid

import (
	"github.com/shopspring/decimal"
)

const (
	maxSignificantFigures = 5
	perpMaxDecimals       = 6
)

var bpsDivisor = decimal.NewFromInt(10_000)

// aggressivePrice moves ref by bps in the direction that crosses the book.
func aggressivePrice(ref decimal.Decimal, bps int, buy bool) decimal.Decimal {
	factor := decimal.NewFromInt(int64(bps)).Div(bpsDivisor)
	if buy {
		return ref.Mul(decimal.NewFromInt(1).Add(factor))
	}
	return ref.Mul(decimal.NewFromInt(1).Sub(factor))
}

// roundPrice limits px to five significant figures and 6-szDecimals
// decimals. Buys round up and sells round down so the order still crosses.
// Integer prices are always valid.
func roundPrice(px decimal.Decimal, szDecimals int, up bool) decimal.Decimal {
	places := int32(perpMaxDecimals - szDecimals)
	if sig := sigFigPlaces(px); sig < places {
		places = sig
	}
	if places < 0 {
		places = 0
	}
	if up {
		return px.RoundCeil(places)
	}
	return px.RoundFloor(places)
}

// sigFigPlaces is the number of decimal places that keeps px at
// maxSignificantFigures.
func sigFigPlaces(px decimal.Decimal) int32 {
	px = px.Abs()
	if px.IsZero() {
		return 0
	}
	one := decimal.NewFromInt(1)
	if px.GreaterThanOrEqual(one) {
		digits := int32(len(px.Truncate(0).String()))
		return maxSignificantFigures - digits
	}
	// leading zeros after the decimal point
	zeros := int32(0)
	for px.Shift(zeros + 1).LessThan(one) {
		zeros++
	}
	return zeros + maxSignificantFigures
}

// roundSize truncates size to the asset's lot precision.
func roundSize(size decimal.Decimal, szDecimals int) decimal.Decimal {
	return size.Truncate(int32(szDecimals))
}
