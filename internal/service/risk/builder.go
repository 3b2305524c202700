// Package risk turns signals into bounded order plans.
package risk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/util"
)

// Builder is immutable after NewBuilder.
type Builder struct {
	policy  Policy
	asset   AssetPolicy
	tickers map[string]struct{}
}

func NewBuilder(p Policy) (*Builder, error) {
	if p.LeverageMode == "" {
		p.LeverageMode = ModeReject
	}
	if p.LeverageMode != ModeReject && p.LeverageMode != ModeClamp {
		return nil, fmt.Errorf("unknown leverage mode %q", p.LeverageMode)
	}
	asset, err := p.active()
	if err != nil {
		return nil, err
	}
	if asset.MaxLeverage < 1 {
		return nil, fmt.Errorf("max leverage for %s must be >= 1", asset.Coin)
	}
	if asset.DefaultLeverage < 1 || asset.DefaultLeverage > asset.MaxLeverage {
		asset.DefaultLeverage = min(3, asset.MaxLeverage)
	}
	return &Builder{policy: p, asset: asset, tickers: tickerSet(asset)}, nil
}

// Coin returns the active asset.
func (b *Builder) Coin() string {
	return b.asset.Coin
}

// Build validates sig against the policy and returns its order plan.
// A NO_ACTION classification is reported as a PolicyError with
// CodeNoAction so callers can acknowledge it without executing.
func (b *Builder) Build(sig models.Signal) (models.OrderPlan, error) {
	if sig.Stale() && !b.policy.AllowStale {
		return models.OrderPlan{}, models.PolicyError(models.CodeStale, "alert fired before its bar time")
	}

	if _, ok := b.tickers[NormalizeTicker(sig.Ticker)]; !ok {
		return models.OrderPlan{}, models.PolicyError(models.CodeAssetMismatch,
			fmt.Sprintf("ticker %s does not map to %s", sig.Ticker, b.asset.Coin))
	}

	if !sig.Contracts.IsPositive() {
		return models.OrderPlan{}, models.PolicyError(models.CodeInvalidSize, "contracts must be greater than zero")
	}

	leverage, clamped, err := b.leverage(sig.Leverage)
	if err != nil {
		return models.OrderPlan{}, err
	}

	kind, err := Classify(sig)
	if err != nil {
		return models.OrderPlan{}, err
	}
	if kind == models.SignalNoAction {
		return models.OrderPlan{Signal: kind}, models.PolicyError(models.CodeNoAction,
			fmt.Sprintf("no action for %s with %s -> %s", sig.Action, sig.PrevMarketPosition, sig.MarketPosition))
	}

	key := IdempotencyKey(sig)
	plan := models.OrderPlan{Signal: kind, Key: key, LeverageClamped: clamped}

	base := models.OrderIntent{
		Coin:     b.asset.Coin,
		Price:    sig.Price,
		Leverage: leverage,
	}

	if !kind.IsFlip() {
		leg := base
		leg.Side = kind.Side()
		leg.Size = sig.Contracts
		leg.ReduceOnly = kind.ReduceOnly()
		leg.IdempotencyKey = key
		leg.Leg = models.LegSingle
		plan.Legs = []models.OrderIntent{leg}
		return plan, nil
	}

	closeSize := sig.PrevMarketPositionSize.Abs()
	openSize := sig.MarketPositionSize.Abs()
	if !closeSize.IsPositive() || !openSize.IsPositive() {
		return models.OrderPlan{}, models.PolicyError(models.CodeInvalidSize, "flip needs non-zero previous and current position sizes")
	}
	// The alert's contracts cover both legs of a reversal.
	if !closeSize.Add(openSize).Equal(sig.Contracts) {
		return models.OrderPlan{}, models.PolicyError(models.CodeInvalidSize,
			fmt.Sprintf("flip contracts %s do not equal close %s plus open %s",
				sig.Contracts.String(), closeSize.String(), openSize.String()))
	}

	closeLeg := base
	closeLeg.Side = kind.Side()
	closeLeg.Size = closeSize
	closeLeg.ReduceOnly = true
	closeLeg.IdempotencyKey = legKey(key, models.LegClose)
	closeLeg.Leg = models.LegClose

	openLeg := base
	openLeg.Side = kind.Side()
	openLeg.Size = openSize
	openLeg.IdempotencyKey = legKey(key, models.LegOpen)
	openLeg.Leg = models.LegOpen

	plan.Legs = []models.OrderIntent{closeLeg, openLeg}
	return plan, nil
}

func (b *Builder) leverage(hint string) (int, bool, error) {
	if hint == "" {
		return b.asset.DefaultLeverage, false, nil
	}
	lev, err := ParseLeverage(hint)
	if err != nil {
		return 0, false, models.PolicyError(models.CodeInvalidLeverage, err.Error())
	}
	if lev <= b.asset.MaxLeverage {
		return lev, false, nil
	}
	if b.policy.LeverageMode == ModeClamp {
		return b.asset.MaxLeverage, true, nil
	}
	return 0, false, models.PolicyError(models.CodeLeverage,
		fmt.Sprintf("leverage %dx exceeds %dx ceiling for %s", lev, b.asset.MaxLeverage, b.asset.Coin))
}

// ParseLeverage reads hints such as "5", "5x" or "5X".
func ParseLeverage(hint string) (int, error) {
	s := strings.TrimRight(strings.TrimSpace(hint), "xX")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid leverage hint %q", hint)
	}
	return n, nil
}

// IdempotencyKey hashes the alert identity (ticker, strategy, order id, bar
// time). Re-deliveries of one alert produce the same key.
func IdempotencyKey(sig models.Signal) string {
	identity := strings.Join([]string{
		NormalizeTicker(sig.Ticker),
		sig.Strategy,
		sig.OrderID,
		util.FormatInstant(sig.Time),
	}, "|")
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

func legKey(key string, leg models.Leg) string {
	sum := sha256.Sum256([]byte(key + ":" + string(leg)))
	return hex.EncodeToString(sum[:])
}
