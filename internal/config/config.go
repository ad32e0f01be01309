// Package config loads the application configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"tokengate/internal/domain"
	"tokengate/internal/policy"
)

// Config holds all application configuration. Token amounts are decimal
// strings so full 256-bit values survive the YAML round trip.
type Config struct {
	Owner string `yaml:"owner"`

	Features struct {
		Reflection    bool `yaml:"reflection"`
		AntiWhale     bool `yaml:"anti_whale"`
		AutoLiquidity bool `yaml:"auto_liquidity"`
		Cooldown      bool `yaml:"cooldown"`
		Blacklist     bool `yaml:"blacklist"`
		AutoBurn      bool `yaml:"auto_burn"`
	} `yaml:"features"`

	Fees struct {
		ReflectionPct uint64 `yaml:"reflection_pct"`
		LiquidityPct  uint64 `yaml:"liquidity_pct"`
		MarketingPct  uint64 `yaml:"marketing_pct"`
		BurnPct       uint64 `yaml:"burn_pct"`
	} `yaml:"fees"`

	Limits struct {
		MaxTransaction  string `yaml:"max_transaction"`
		MaxWallet       string `yaml:"max_wallet"`
		CooldownSeconds int64  `yaml:"cooldown_seconds"`
	} `yaml:"limits"`

	Destinations struct {
		Liquidity string `yaml:"liquidity"`
		Marketing string `yaml:"marketing"`
		// ReflectionPool receives the reflection leg. Empty disables the
		// reflector; the reflection toggle then collects nothing.
		ReflectionPool string `yaml:"reflection_pool"`
	} `yaml:"destinations"`

	Blacklist struct {
		EnforceOnlyWhenEnabled    bool `yaml:"enforce_only_when_enabled"`
		DedupHistory              bool `yaml:"dedup_history"`
		RequireFeatureForMutation bool `yaml:"require_feature_for_mutation"`
	} `yaml:"blacklist"`

	FeeExcluded []string          `yaml:"fee_excluded"`
	Genesis     map[string]string `yaml:"genesis"`

	Journal struct {
		Backend       string `yaml:"backend"` // memory, sqlite, postgres
		SQLitePath    string `yaml:"sqlite_path"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional analytic mirror
	} `yaml:"journal"`

	Server struct {
		Listen           string `yaml:"listen"`
		WSSendBuffer     int    `yaml:"ws_send_buffer"`
		MetricsNamespace string `yaml:"metrics_namespace"`
	} `yaml:"server"`

	Audit struct {
		Cron string `yaml:"cron"`
	} `yaml:"audit"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TOKENGATE_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("TOKENGATE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("TOKENGATE_JOURNAL_BACKEND"); v != "" {
		cfg.Journal.Backend = v
	}
	if v := os.Getenv("TOKENGATE_SQLITE_PATH"); v != "" {
		cfg.Journal.SQLitePath = v
	}
	if v := os.Getenv("TOKENGATE_POSTGRES_DSN"); v != "" {
		cfg.Journal.PostgresDSN = v
	}
	if v := os.Getenv("TOKENGATE_CLICKHOUSE_DSN"); v != "" {
		cfg.Journal.ClickhouseDSN = v
	}
	if v := os.Getenv("TOKENGATE_AUDIT_CRON"); v != "" {
		cfg.Audit.Cron = v
	}

	// Defaults
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.WSSendBuffer == 0 {
		cfg.Server.WSSendBuffer = 64
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = "memory"
	}
	if cfg.Journal.SQLitePath == "" {
		cfg.Journal.SQLitePath = "data/journal.db"
	}
	if cfg.Audit.Cron == "" {
		cfg.Audit.Cron = "@every 5m"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if _, err := domain.ParseAddress(c.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	schedule := domain.FeeSchedule{
		ReflectionPct: c.Fees.ReflectionPct,
		LiquidityPct:  c.Fees.LiquidityPct,
		MarketingPct:  c.Fees.MarketingPct,
		BurnPct:       c.Fees.BurnPct,
	}
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("fees: %w", err)
	}
	switch c.Journal.Backend {
	case "memory", "sqlite":
	case "postgres":
		if c.Journal.PostgresDSN == "" {
			return fmt.Errorf("journal.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("journal.backend %q is not one of memory, sqlite, postgres", c.Journal.Backend)
	}
	if len(c.Genesis) == 0 {
		return fmt.Errorf("genesis allocations are required")
	}
	return nil
}

// PolicyOptions materializes the registry options. The sink and clock are
// left for the caller to attach.
func (c *Config) PolicyOptions() (policy.Options, error) {
	var opts policy.Options

	owner, err := domain.ParseAddress(c.Owner)
	if err != nil {
		return opts, fmt.Errorf("owner: %w", err)
	}
	opts.Owner = owner

	opts.Features = domain.FeatureSet{
		Reflection:    c.Features.Reflection,
		AntiWhale:     c.Features.AntiWhale,
		AutoLiquidity: c.Features.AutoLiquidity,
		Cooldown:      c.Features.Cooldown,
		Blacklist:     c.Features.Blacklist,
		AutoBurn:      c.Features.AutoBurn,
	}
	opts.Fees = domain.FeeSchedule{
		ReflectionPct: c.Fees.ReflectionPct,
		LiquidityPct:  c.Fees.LiquidityPct,
		MarketingPct:  c.Fees.MarketingPct,
		BurnPct:       c.Fees.BurnPct,
	}

	maxTx, err := parseAmount(c.Limits.MaxTransaction)
	if err != nil {
		return opts, fmt.Errorf("limits.max_transaction: %w", err)
	}
	maxWallet, err := parseAmount(c.Limits.MaxWallet)
	if err != nil {
		return opts, fmt.Errorf("limits.max_wallet: %w", err)
	}
	opts.Limits = domain.Limits{
		MaxTransaction: maxTx,
		MaxWallet:      maxWallet,
		Cooldown:       time.Duration(c.Limits.CooldownSeconds) * time.Second,
	}

	if c.Destinations.Liquidity != "" {
		if opts.Destinations.Liquidity, err = domain.ParseAddress(c.Destinations.Liquidity); err != nil {
			return opts, fmt.Errorf("destinations.liquidity: %w", err)
		}
	}
	if c.Destinations.Marketing != "" {
		if opts.Destinations.Marketing, err = domain.ParseAddress(c.Destinations.Marketing); err != nil {
			return opts, fmt.Errorf("destinations.marketing: %w", err)
		}
	}

	opts.Variant = policy.BlacklistPolicy{
		EnforceOnlyWhenEnabled:    c.Blacklist.EnforceOnlyWhenEnabled,
		DedupHistory:              c.Blacklist.DedupHistory,
		RequireFeatureForMutation: c.Blacklist.RequireFeatureForMutation,
	}

	for _, s := range c.FeeExcluded {
		addr, err := domain.ParseAddress(s)
		if err != nil {
			return opts, fmt.Errorf("fee_excluded %q: %w", s, err)
		}
		opts.FeeExcluded = append(opts.FeeExcluded, addr)
	}

	return opts, nil
}

// ReflectionPool returns the reflection pool address, or the zero address
// when no pool is configured.
func (c *Config) ReflectionPool() (domain.Address, error) {
	if c.Destinations.ReflectionPool == "" {
		return domain.ZeroAddress, nil
	}
	addr, err := domain.ParseAddress(c.Destinations.ReflectionPool)
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("destinations.reflection_pool: %w", err)
	}
	return addr, nil
}

// GenesisBalances materializes the initial allocations.
func (c *Config) GenesisBalances() (map[domain.Address]*uint256.Int, error) {
	out := make(map[domain.Address]*uint256.Int, len(c.Genesis))
	for addrStr, amountStr := range c.Genesis {
		addr, err := domain.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("genesis %q: %w", addrStr, err)
		}
		amount, err := parseAmount(amountStr)
		if err != nil {
			return nil, fmt.Errorf("genesis %q: %w", addrStr, err)
		}
		if amount == nil {
			amount = new(uint256.Int)
		}
		out[addr] = amount
	}
	return out, nil
}

// parseAmount parses a decimal token amount. Empty means unset (nil).
func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}
