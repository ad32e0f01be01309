package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"tokengate/internal/domain"
)

func testAddr(b byte) string {
	var raw [32]byte
	raw[0] = b
	raw[31] = b
	return base58.Encode(raw[:])
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndMaterialize(t *testing.T) {
	ownerStr := testAddr(0x01)
	liqStr := testAddr(0x11)
	holderStr := testAddr(0xa1)

	body := fmt.Sprintf(`
owner: %s
features:
  anti_whale: true
  auto_burn: true
fees:
  liquidity_pct: 2
  marketing_pct: 2
  burn_pct: 1
limits:
  max_transaction: "1000000"
  cooldown_seconds: 30
destinations:
  liquidity: %s
blacklist:
  dedup_history: true
fee_excluded:
  - %s
genesis:
  %s: "115792089237316195423570985008687907853269984665640564039457584007913129639935"
journal:
  backend: sqlite
  sqlite_path: /tmp/j.db
`, ownerStr, liqStr, ownerStr, holderStr)

	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	opts, err := cfg.PolicyOptions()
	if err != nil {
		t.Fatalf("PolicyOptions failed: %v", err)
	}
	if !opts.Features.AntiWhale || !opts.Features.AutoBurn || opts.Features.Reflection {
		t.Errorf("features wrong: %+v", opts.Features)
	}
	if opts.Fees.Sum() != 5 {
		t.Errorf("fee sum = %d, want 5", opts.Fees.Sum())
	}
	if opts.Limits.MaxTransaction == nil || opts.Limits.MaxTransaction.Uint64() != 1_000_000 {
		t.Errorf("max transaction wrong: %v", opts.Limits.MaxTransaction)
	}
	if opts.Limits.MaxWallet != nil {
		t.Error("unset max wallet must stay nil")
	}
	if opts.Limits.Cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", opts.Limits.Cooldown)
	}
	if !opts.Variant.DedupHistory || opts.Variant.EnforceOnlyWhenEnabled {
		t.Errorf("variant wrong: %+v", opts.Variant)
	}
	if len(opts.FeeExcluded) != 1 || opts.FeeExcluded[0] != opts.Owner {
		t.Errorf("fee excluded wrong: %v", opts.FeeExcluded)
	}

	genesis, err := cfg.GenesisBalances()
	if err != nil {
		t.Fatalf("GenesisBalances failed: %v", err)
	}
	holder, err := domain.ParseAddress(holderStr)
	if err != nil {
		t.Fatal(err)
	}
	// Full 256-bit value survives the round trip.
	if amount := genesis[holder]; amount == nil || amount.IsUint64() {
		t.Errorf("genesis amount lost precision: %v", amount)
	}

	// Defaults.
	if cfg.Server.Listen != ":8080" || cfg.Audit.Cron != "@every 5m" {
		t.Errorf("defaults wrong: listen %q cron %q", cfg.Server.Listen, cfg.Audit.Cron)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TOKENGATE_LISTEN", ":9090")
	t.Setenv("TOKENGATE_JOURNAL_BACKEND", "postgres")
	t.Setenv("TOKENGATE_POSTGRES_DSN", "postgres://x")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != ":9090" {
		t.Errorf("listen = %q, want :9090", cfg.Server.Listen)
	}
	if cfg.Journal.Backend != "postgres" || cfg.Journal.PostgresDSN != "postgres://x" {
		t.Errorf("journal overrides wrong: %+v", cfg.Journal)
	}
}

func TestValidateRejections(t *testing.T) {
	owner := testAddr(0x01)
	holder := testAddr(0xa1)

	cases := []struct {
		name string
		body string
	}{
		{"missing owner", fmt.Sprintf("genesis:\n  %s: \"1\"\n", holder)},
		{"bad owner", fmt.Sprintf("owner: not-an-address\ngenesis:\n  %s: \"1\"\n", holder)},
		{"fee ceiling", fmt.Sprintf("owner: %s\nfees:\n  marketing_pct: 26\ngenesis:\n  %s: \"1\"\n", owner, holder)},
		{"unknown backend", fmt.Sprintf("owner: %s\njournal:\n  backend: oracle\ngenesis:\n  %s: \"1\"\n", owner, holder)},
		{"postgres without dsn", fmt.Sprintf("owner: %s\njournal:\n  backend: postgres\ngenesis:\n  %s: \"1\"\n", owner, holder)},
		{"no genesis", fmt.Sprintf("owner: %s\n", owner)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.body))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
