// Package signal turns validated alert payloads into typed signals.
package signal

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/util"

	"github.com/shopspring/decimal"
)

var errMissing = errors.New("section missing")

// Parse decodes raw and converts it into a Signal. Payloads are expected to
// have passed schema validation; Parse still refuses anything it cannot
// convert exactly.
func Parse(raw []byte) (models.Signal, error) {
	var alert models.TradingViewAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return models.Signal{}, models.ParseError("$", "", err)
	}
	return FromAlert(&alert)
}

// FromAlert converts the wire form into a Signal, stopping at the first
// field that does not convert.
func FromAlert(a *models.TradingViewAlert) (models.Signal, error) {
	switch {
	case a.General == nil:
		return models.Signal{}, models.ParseError("general", "", errMissing)
	case a.SymbolData == nil:
		return models.Signal{}, models.ParseError("symbol_data", "", errMissing)
	case a.Currency == nil:
		return models.Signal{}, models.ParseError("currency", "", errMissing)
	case a.Position == nil:
		return models.Signal{}, models.ParseError("position", "", errMissing)
	case a.Order == nil:
		return models.Signal{}, models.ParseError("order", "", errMissing)
	case a.Market == nil:
		return models.Signal{}, models.ParseError("market", "", errMissing)
	}

	p := &fieldParser{}
	s := models.Signal{
		Strategy:      a.General.Strategy,
		Ticker:        strings.TrimSpace(a.General.Ticker),
		Exchange:      a.General.Exchange,
		Interval:      a.General.Interval,
		Leverage:      a.General.Leverage,
		QuoteCurrency: a.Currency.Quote,
		BaseCurrency:  a.Currency.Base,
		OrderID:       a.Order.ID,
	}
	if a.General.Secret != nil {
		s.Secret = *a.General.Secret
		s.HasSecret = true
	}
	if a.Order.Comment != nil {
		s.Comment = *a.Order.Comment
	}
	if a.Order.AlertMessage != nil {
		s.AlertMessage = *a.Order.AlertMessage
	}

	s.Time = p.instant("general.time", a.General.Time)
	s.TimeNow = p.instant("general.timenow", a.General.TimeNow)

	s.Open = p.decimal("symbol_data.open", a.SymbolData.Open)
	s.Close = p.decimal("symbol_data.close", a.SymbolData.Close)
	s.High = p.decimal("symbol_data.high", a.SymbolData.High)
	s.Low = p.decimal("symbol_data.low", a.SymbolData.Low)
	s.Volume = p.decimal("symbol_data.volume", a.SymbolData.Volume)

	s.PositionSize = p.decimal("position.position_size", a.Position.PositionSize)

	s.Action = p.action("order.action", a.Order.Action)
	s.Contracts = p.decimal("order.contracts", a.Order.Contracts)
	s.Price = p.decimal("order.price", a.Order.Price)

	s.MarketPosition = p.position("market.position", a.Market.Position)
	s.MarketPositionSize = p.decimal("market.position_size", a.Market.PositionSize)
	s.PrevMarketPosition = p.position("market.previous_position", a.Market.PreviousPosition)
	s.PrevMarketPositionSize = p.decimal("market.previous_position_size", a.Market.PreviousPositionSize)

	if p.err != nil {
		return models.Signal{}, p.err
	}
	return s, nil
}

// fieldParser keeps the first conversion error and skips the rest.
type fieldParser struct {
	err error
}

func (p *fieldParser) decimal(field, value string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := util.ParseDecimal(value)
	if err != nil {
		p.err = models.ParseError(field, value, err)
		return decimal.Zero
	}
	return d
}

func (p *fieldParser) instant(field, value string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := util.ParseInstant(value)
	if err != nil {
		p.err = models.ParseError(field, value, err)
		return time.Time{}
	}
	return t
}

func (p *fieldParser) action(field, value string) models.Action {
	if p.err != nil {
		return ""
	}
	switch a := models.Action(strings.ToLower(value)); a {
	case models.ActionBuy, models.ActionSell, models.ActionCloseLong, models.ActionCloseShort:
		return a
	}
	p.err = models.ParseError(field, value, errors.New("unknown action"))
	return ""
}

func (p *fieldParser) position(field, value string) models.MarketPosition {
	if p.err != nil {
		return ""
	}
	switch mp := models.MarketPosition(strings.ToLower(value)); mp {
	case models.PositionLong, models.PositionShort, models.PositionFlat:
		return mp
	}
	p.err = models.ParseError(field, value, errors.New("unknown position"))
	return ""
}
