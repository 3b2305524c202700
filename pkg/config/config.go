package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"HyperTrade/pkg/util"
)

const envPrefix = "HYPERTRADE_"

type Config struct {
	Environment string `yaml:"environment" default:"local"`
	Server      struct {
		Host                string        `yaml:"host" default:"0.0.0.0"`
		Port                int           `yaml:"port" default:"6487"`
		ReadTimeout         time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout        time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout     time.Duration `yaml:"shutdown_timeout" default:"15s"`
		TrustedHostsEnabled bool          `yaml:"trusted_hosts_enabled"`
		TrustedHosts        []string      `yaml:"trusted_hosts" default:"[\"localhost\",\"127.0.0.1\"]"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	State struct {
		// Path of the JSON-lines audit journal.
		Path string `yaml:"path" default:"./hypertrade-audit.jsonl"`
	} `yaml:"state"`
	Security struct {
		WebhookSecret      string   `yaml:"webhook_secret"`
		IPAllowlistEnabled bool     `yaml:"ip_whitelist_enabled" default:"true"`
		TVWebhookIPs       []string `yaml:"tv_webhook_ips" default:"[\"52.89.214.238\",\"34.212.75.30\",\"54.218.53.128\",\"52.32.178.7\"]"`
		TrustForwardedFor  bool     `yaml:"trust_forwarded_for" default:"true"`
		MaxPayloadBytes    int64    `yaml:"max_payload_bytes" default:"65536"`
		RateLimit          struct {
			Enabled      bool    `yaml:"enabled" default:"true"`
			Capacity     float64 `yaml:"capacity" default:"30"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Hyperliquid struct {
		MasterAddr     string        `yaml:"master_addr"`
		APIWalletPriv  string        `yaml:"api_wallet_priv"`
		SubaccountAddr string        `yaml:"subaccount_addr"`
		Network        string        `yaml:"network" default:"mainnet"`
		APIURL         string        `yaml:"api_url"`
		WSURL          string        `yaml:"ws_url"`
		Transport      string        `yaml:"transport" default:"rest"`
		Mock           bool          `yaml:"mock"`
		SlippageBps    int           `yaml:"slippage_bps" default:"50"`
		CrossMargin    bool          `yaml:"cross_margin" default:"true"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"8s"`
		MetaTTL        time.Duration `yaml:"meta_ttl" default:"5m"`
		MidsTTL        time.Duration `yaml:"mids_ttl" default:"2s"`
		Asset          string        `yaml:"asset" default:"SOL"`
	} `yaml:"hyperliquid"`
	Risk struct {
		LeverageMode string        `yaml:"leverage_mode" default:"reject"`
		AllowStale   bool          `yaml:"allow_stale"`
		Assets       []AssetConfig `yaml:"assets"`
	} `yaml:"risk"`
	Executor struct {
		Timeout           time.Duration `yaml:"timeout" default:"10s"`
		MaxAttempts       uint          `yaml:"max_attempts" default:"3"`
		BackoffMin        time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax        time.Duration `yaml:"backoff_max" default:"2s"`
		SerializePerAsset bool          `yaml:"serialize_per_asset" default:"true"`
	} `yaml:"executor"`
	Idempotency struct {
		Backend     string        `yaml:"backend" default:"memory"`
		Retention   time.Duration `yaml:"retention" default:"10m"`
		WaitTimeout time.Duration `yaml:"wait_timeout" default:"30s"`
		MaxEntries  int           `yaml:"max_entries" default:"10000"`
	} `yaml:"idempotency"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"hypertrade"`
	} `yaml:"redis"`
	Notifications struct {
		Workers    int           `yaml:"workers" default:"2"`
		QueueSize  int           `yaml:"queue_size" default:"256"`
		RetryLimit int           `yaml:"retry_limit" default:"1"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"2s"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
		Telegram   struct {
			Enabled  bool   `yaml:"enabled"`
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
			APIURL   string `yaml:"api_url" default:"https://api.telegram.org"`
		} `yaml:"telegram"`
	} `yaml:"notifications"`
	Audit struct {
		MemorySize int `yaml:"memory_size" default:"1000"`
		ClickHouse struct {
			Enabled      bool          `yaml:"enabled"`
			Host         string        `yaml:"host" default:"localhost"`
			Port         int           `yaml:"port" default:"9000"`
			Database     string        `yaml:"database" default:"hypertrade"`
			User         string        `yaml:"user" default:"default"`
			Password     string        `yaml:"password"`
			Table        string        `yaml:"table" default:"orders"`
			UseHTTP      bool          `yaml:"use_http"`
			AsyncInsert  bool          `yaml:"async_insert" default:"true"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"clickhouse"`
		Kafka struct {
			Enabled      bool          `yaml:"enabled"`
			Brokers      []string      `yaml:"brokers" default:"[\"localhost:9092\"]"`
			Topic        string        `yaml:"topic" default:"hypertrade.audit"`
			RequiredAcks int           `yaml:"required_acks" default:"1"`
			Compression  string        `yaml:"compression" default:"snappy"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		} `yaml:"kafka"`
	} `yaml:"audit"`
}

// AssetConfig is the risk entry for one tradable coin.
type AssetConfig struct {
	Coin            string   `yaml:"coin"`
	Tickers         []string `yaml:"tickers"`
	MaxLeverage     int      `yaml:"max_leverage"`
	DefaultLeverage int      `yaml:"default_leverage"`
}

// Default returns a config populated from struct defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML (optional) and overrides with environment
// variables, then validates. A .env file in the working directory is read
// first; variables already set in the environment win.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		c   *Config
		err error
	)
	if path != "" {
		c, err = Load(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if c == nil {
		if c, err = Default(); err != nil {
			return nil, err
		}
	}

	c.applyEnv(os.Getenv)
	c.applyAssetDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := func(name string) string { return getenv(envPrefix + name) }

	if v := env("MASTER_ADDR"); v != "" {
		c.Hyperliquid.MasterAddr = v
	}
	if v := env("API_WALLET_PRIV"); v != "" {
		c.Hyperliquid.APIWalletPriv = v
	}
	if v := env("SUBACCOUNT_ADDR"); v != "" {
		c.Hyperliquid.SubaccountAddr = v
	}
	if v := env("NETWORK"); v != "" {
		c.Hyperliquid.Network = v
	}
	if v := env("BASE_URL"); v != "" {
		c.Hyperliquid.APIURL = v
	}
	if v := env("MOCK"); v != "" {
		c.Hyperliquid.Mock = util.ParseBoolDefault(v, c.Hyperliquid.Mock)
	}
	if v := env("ASSET"); v != "" {
		c.Hyperliquid.Asset = v
	}
	if v := env("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := env("DB_PATH"); v != "" {
		c.State.Path = v
	}
	if v := env("WEBHOOK_SECRET"); v != "" {
		c.Security.WebhookSecret = v
	}
	if v := env("IP_WHITELIST_ENABLED"); v != "" {
		c.Security.IPAllowlistEnabled = util.ParseBoolDefault(v, c.Security.IPAllowlistEnabled)
	}
	if v := env("TV_WEBHOOK_IPS"); v != "" {
		c.Security.TVWebhookIPs = util.ParseList(v)
	}
	if v := env("TRUST_FORWARDED_FOR"); v != "" {
		c.Security.TrustForwardedFor = util.ParseBoolDefault(v, c.Security.TrustForwardedFor)
	}
	if v := env("MAX_PAYLOAD_BYTES"); v != "" {
		c.Security.MaxPayloadBytes = int64(util.ParseIntDefault(v, int(c.Security.MaxPayloadBytes)))
	}
	if v := env("ENABLE_TRUSTED_HOSTS"); v != "" {
		c.Server.TrustedHostsEnabled = util.ParseBoolDefault(v, c.Server.TrustedHostsEnabled)
	}
	if v := env("TRUSTED_HOSTS"); v != "" {
		c.Server.TrustedHosts = util.ParseList(v)
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := env("LEVERAGE_MODE"); v != "" {
		c.Risk.LeverageMode = strings.ToLower(v)
	}
	if v := env("IDEMPOTENCY_BACKEND"); v != "" {
		c.Idempotency.Backend = v
	}
	if v := env("TELEGRAM_ENABLED"); v != "" {
		c.Notifications.Telegram.Enabled = util.ParseBoolDefault(v, c.Notifications.Telegram.Enabled)
	}
	if v := env("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := env("TELEGRAM_CHAT_ID"); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := env("KAFKA_BROKERS"); v != "" {
		c.Audit.Kafka.Brokers = util.ParseList(v)
	}
}

// applyAssetDefaults makes sure the active asset has a risk entry and that
// every entry carries usable leverage bounds.
func (c *Config) applyAssetDefaults() {
	active := strings.ToUpper(c.Hyperliquid.Asset)
	c.Hyperliquid.Asset = active

	found := false
	for i := range c.Risk.Assets {
		a := &c.Risk.Assets[i]
		a.Coin = strings.ToUpper(a.Coin)
		if a.DefaultLeverage == 0 && a.MaxLeverage > 0 {
			a.DefaultLeverage = min(3, a.MaxLeverage)
		}
		if a.Coin == active {
			found = true
		}
	}
	if !found && active != "" {
		c.Risk.Assets = append(c.Risk.Assets, AssetConfig{
			Coin:            active,
			MaxLeverage:     10,
			DefaultLeverage: 3,
		})
	}
}

// ActiveAsset returns the risk entry of the configured sub-account asset.
func (c *Config) ActiveAsset() (AssetConfig, bool) {
	for _, a := range c.Risk.Assets {
		if a.Coin == c.Hyperliquid.Asset {
			return a, true
		}
	}
	return AssetConfig{}, false
}

// IsMainnet reports whether the exchange network is mainnet.
func (c *Config) IsMainnet() bool {
	return !strings.EqualFold(c.Hyperliquid.Network, "testnet")
}

// ExecutionBudget is the longest one order submission can take: every attempt
// timing out, with the longest backoff between attempts.
func (c *Config) ExecutionBudget() time.Duration {
	n := time.Duration(c.Executor.MaxAttempts)
	if n == 0 {
		return 0
	}
	return c.Executor.Timeout*n + c.Executor.BackoffMax*(n-1)
}

// IdempotencyWait is how long a duplicate delivery waits for the owner of its
// key. It never ends before the owner's execution budget does.
func (c *Config) IdempotencyWait() time.Duration {
	floor := c.ExecutionBudget() + 5*time.Second
	if c.Idempotency.WaitTimeout > floor {
		return c.Idempotency.WaitTimeout
	}
	return floor
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Hyperliquid.MasterAddr == "" {
		return fmt.Errorf("hyperliquid.master_addr is required")
	}
	if c.Hyperliquid.APIWalletPriv == "" {
		return fmt.Errorf("hyperliquid.api_wallet_priv is required")
	}
	if c.Hyperliquid.SubaccountAddr == "" {
		return fmt.Errorf("hyperliquid.subaccount_addr is required")
	}
	if c.Hyperliquid.Asset == "" {
		return fmt.Errorf("hyperliquid.asset is required")
	}
	if t := c.Hyperliquid.Transport; t != "rest" && t != "ws" {
		return fmt.Errorf("hyperliquid.transport must be 'rest' or 'ws', got '%s'", t)
	}
	if m := c.Risk.LeverageMode; m != "reject" && m != "clamp" {
		return fmt.Errorf("risk.leverage_mode must be 'reject' or 'clamp', got '%s'", m)
	}
	if _, ok := c.ActiveAsset(); !ok {
		return fmt.Errorf("risk.assets has no entry for %s", c.Hyperliquid.Asset)
	}
	for _, a := range c.Risk.Assets {
		if a.MaxLeverage < 1 {
			return fmt.Errorf("risk.assets[%s].max_leverage must be >= 1", a.Coin)
		}
		if a.DefaultLeverage < 1 || a.DefaultLeverage > a.MaxLeverage {
			return fmt.Errorf("risk.assets[%s].default_leverage must be within 1..%d", a.Coin, a.MaxLeverage)
		}
	}
	if b := c.Idempotency.Backend; b != "memory" && b != "redis" {
		return fmt.Errorf("idempotency.backend must be 'memory' or 'redis', got '%s'", b)
	}
	if c.Security.MaxPayloadBytes <= 0 {
		return fmt.Errorf("security.max_payload_bytes must be positive")
	}
	if c.Executor.MaxAttempts == 0 {
		return fmt.Errorf("executor.max_attempts must be >= 1")
	}
	if c.Notifications.Telegram.Enabled && (c.Notifications.Telegram.BotToken == "" || c.Notifications.Telegram.ChatID == "") {
		return fmt.Errorf("notifications.telegram requires bot_token and chat_id when enabled")
	}
	if c.Audit.Kafka.Enabled && len(c.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("audit.kafka.brokers cannot be empty")
	}
	return nil
}
