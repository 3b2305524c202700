package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the order.action of an alert.
type Action string

const (
	ActionBuy        Action = "buy"
	ActionSell       Action = "sell"
	ActionCloseLong  Action = "close_long"
	ActionCloseShort Action = "close_short"
)

// MarketPosition is the strategy position direction reported by an alert.
type MarketPosition string

const (
	PositionLong  MarketPosition = "long"
	PositionShort MarketPosition = "short"
	PositionFlat  MarketPosition = "flat"
)

// Signal is a fully parsed alert. It is built once by the parser and passed
// by value afterwards.
type Signal struct {
	Strategy  string
	Ticker    string
	Exchange  string
	Interval  string
	Time      time.Time // bar time
	TimeNow   time.Time // alert fire time
	Leverage  string    // raw hint, e.g. "5X"; empty when absent
	Secret    string
	HasSecret bool

	Open   decimal.Decimal
	Close  decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Volume decimal.Decimal

	QuoteCurrency string
	BaseCurrency  string

	PositionSize decimal.Decimal

	Action       Action
	Contracts    decimal.Decimal
	Price        decimal.Decimal
	OrderID      string
	Comment      string
	AlertMessage string

	MarketPosition         MarketPosition
	MarketPositionSize     decimal.Decimal
	PrevMarketPosition     MarketPosition
	PrevMarketPositionSize decimal.Decimal
}

// Exposure returns the signed current position: positive long, negative short.
func (s Signal) Exposure() decimal.Decimal {
	return signed(s.MarketPosition, s.MarketPositionSize)
}

// PrevExposure returns the signed previous position.
func (s Signal) PrevExposure() decimal.Decimal {
	return signed(s.PrevMarketPosition, s.PrevMarketPositionSize)
}

// Stale reports whether the alert fired before the bar it refers to.
func (s Signal) Stale() bool {
	return s.TimeNow.Before(s.Time)
}

func signed(p MarketPosition, size decimal.Decimal) decimal.Decimal {
	switch p {
	case PositionFlat:
		return decimal.Zero
	case PositionShort:
		return size.Abs().Neg()
	case PositionLong:
		return size.Abs()
	}
	return size
}
