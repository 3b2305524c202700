package risk

import (
	"fmt"
	"strings"
)

// LeverageMode decides what happens when a hint exceeds the asset ceiling.
type LeverageMode string

const (
	ModeReject LeverageMode = "reject"
	ModeClamp  LeverageMode = "clamp"
)

// AssetPolicy bounds trading on one coin.
type AssetPolicy struct {
	Coin            string
	Tickers         []string // extra alert tickers that map to Coin
	MaxLeverage     int
	DefaultLeverage int
}

// Policy is the risk configuration of the sub-account.
type Policy struct {
	ActiveCoin   string
	Assets       []AssetPolicy
	LeverageMode LeverageMode
	AllowStale   bool
}

var quoteSuffixes = []string{"", "USD", "USDT", "USDC", "PERP"}

func (p Policy) active() (AssetPolicy, error) {
	coin := strings.ToUpper(p.ActiveCoin)
	for _, a := range p.Assets {
		if strings.EqualFold(a.Coin, coin) {
			a.Coin = coin
			return a, nil
		}
	}
	return AssetPolicy{}, fmt.Errorf("no risk policy for active coin %q", p.ActiveCoin)
}

// tickerSet lists every normalized alert ticker accepted for asset.
func tickerSet(asset AssetPolicy) map[string]struct{} {
	set := make(map[string]struct{})
	for _, suffix := range quoteSuffixes {
		set[asset.Coin+suffix] = struct{}{}
	}
	for _, t := range asset.Tickers {
		set[NormalizeTicker(t)] = struct{}{}
	}
	return set
}

// NormalizeTicker upper-cases a TradingView ticker and strips the exchange
// prefix ("BINANCE:") and the perpetual suffix (".P").
func NormalizeTicker(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if i := strings.LastIndexByte(t, ':'); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSuffix(t, ".P")
}
