package models

import (
	"github.com/shopspring/decimal"
)

// Side is the exchange order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) IsBuy() bool { return s == SideBuy }

// SignalType classifies what an alert asks the account to do.
type SignalType string

const (
	SignalOpenLong       SignalType = "OPEN_LONG"
	SignalCloseLong      SignalType = "CLOSE_LONG"
	SignalAddLong        SignalType = "ADD_LONG"
	SignalReduceLong     SignalType = "REDUCE_LONG"
	SignalOpenShort      SignalType = "OPEN_SHORT"
	SignalCloseShort     SignalType = "CLOSE_SHORT"
	SignalAddShort       SignalType = "ADD_SHORT"
	SignalReduceShort    SignalType = "REDUCE_SHORT"
	SignalReverseToLong  SignalType = "REVERSE_TO_LONG"
	SignalReverseToShort SignalType = "REVERSE_TO_SHORT"
	SignalNoAction       SignalType = "NO_ACTION"
)

// Side returns the order side that realizes the signal. Flips report the
// side of their opening leg.
func (t SignalType) Side() Side {
	switch t {
	case SignalOpenLong, SignalAddLong, SignalCloseShort, SignalReduceShort, SignalReverseToLong:
		return SideBuy
	}
	return SideSell
}

// ReduceOnly reports whether the signal only shrinks an existing position.
func (t SignalType) ReduceOnly() bool {
	switch t {
	case SignalCloseLong, SignalCloseShort, SignalReduceLong, SignalReduceShort:
		return true
	}
	return false
}

// IsFlip reports whether the signal crosses from one side to the other.
func (t SignalType) IsFlip() bool {
	return t == SignalReverseToLong || t == SignalReverseToShort
}

// Leg names a step of an OrderPlan.
type Leg string

const (
	LegSingle Leg = "single"
	LegClose  Leg = "close"
	LegOpen   Leg = "open"
)

// OrderIntent is the exchange-neutral description of one order.
type OrderIntent struct {
	Coin           string          `json:"coin"`
	Side           Side            `json:"side"`
	Size           decimal.Decimal `json:"size"`
	Price          decimal.Decimal `json:"price"` // reference price from the alert
	Leverage       int             `json:"leverage"`
	ReduceOnly     bool            `json:"reduce_only"`
	IdempotencyKey string          `json:"idempotency_key"`
	Leg            Leg             `json:"leg"`
}

// ClientOrderID derives the 128-bit exchange client order id from the key.
func (o OrderIntent) ClientOrderID() string {
	k := o.IdempotencyKey
	if len(k) > 32 {
		k = k[:32]
	}
	return "0x" + k
}

// OrderPlan is the output of the risk builder: one leg, or close-then-open
// for a flip.
type OrderPlan struct {
	Signal          SignalType    `json:"signal"`
	Key             string        `json:"key"`
	Legs            []OrderIntent `json:"legs"`
	LeverageClamped bool          `json:"leverage_clamped,omitempty"`
}

// Primary returns the leg that carries the plan's direction.
func (p OrderPlan) Primary() OrderIntent {
	return p.Legs[len(p.Legs)-1]
}
