package hyperliquid

import (
	"strings"
	"time"
)

const (
	MainnetAPIURL = "https://api.hyperliquid.xyz"
	TestnetAPIURL = "https://api.hyperliquid-testnet.xyz"

	TransportREST = "rest"
	TransportWS   = "ws"
)

// Config describes how the client reaches and signs for the exchange.
type Config struct {
	Network        string // mainnet or testnet
	APIURL         string
	WSURL          string
	Transport      string
	PrivateKey     string // API wallet key, hex
	VaultAddress   string // sub-account traded on behalf of the master
	SlippageBps    int
	CrossMargin    bool
	RequestTimeout time.Duration
	MetaTTL        time.Duration
	MidsTTL        time.Duration
}

func (c *Config) mainnet() bool {
	return !strings.EqualFold(c.Network, "testnet")
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = MainnetAPIURL
		if !c.mainnet() {
			c.APIURL = TestnetAPIURL
		}
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.WSURL == "" {
		c.WSURL = "wss://" + strings.TrimPrefix(strings.TrimPrefix(c.APIURL, "https://"), "http://") + "/ws"
		if strings.HasPrefix(c.APIURL, "http://") {
			c.WSURL = "ws://" + strings.TrimPrefix(c.APIURL, "http://") + "/ws"
		}
	}
	if c.Transport == "" {
		c.Transport = TransportREST
	}
	if c.SlippageBps <= 0 {
		c.SlippageBps = 50
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 8 * time.Second
	}
	if c.MetaTTL <= 0 {
		c.MetaTTL = 5 * time.Minute
	}
	if c.MidsTTL <= 0 {
		c.MidsTTL = 2 * time.Second
	}
}
