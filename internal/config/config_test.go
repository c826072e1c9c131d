package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func serveFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.Bool("default-show-risk", false, "")
	flags.StringSlice("trusted-origin", nil, "")
	return flags
}

func TestLoadServeDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadServe("", serveFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr mismatch: %s", cfg.Addr)
	}
	if cfg.DefaultShowRisk {
		t.Fatalf("show risk should default to false")
	}
	if cfg.Risk.Endpoint == "" || cfg.Risk.Timeout != 10*time.Second {
		t.Fatalf("risk defaults mismatch: %+v", cfg.Risk)
	}
	if cfg.RPC.MaxRetries != 3 {
		t.Fatalf("max retries mismatch: %d", cfg.RPC.MaxRetries)
	}
}

func TestLoadServeEnvAndFlags(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RISKSCAN_DEFAULT_SHOW_RISK", "true")
	t.Setenv("RISKSCAN_RISK_TIMEOUT", "2s")

	flags := serveFlags()
	if err := flags.Parse([]string{"--addr=:9090", "--trusted-origin= https://a.example , ,https://b.example"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := LoadServe("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr mismatch: %s", cfg.Addr)
	}
	if !cfg.DefaultShowRisk {
		t.Fatalf("expected env to enable show risk")
	}
	if cfg.Risk.Timeout != 2*time.Second {
		t.Fatalf("timeout mismatch: %s", cfg.Risk.Timeout)
	}
	if len(cfg.TrustedOrigins) != 2 || cfg.TrustedOrigins[0] != "https://a.example" {
		t.Fatalf("origins mismatch: %v", cfg.TrustedOrigins)
	}
}

func TestLoadScanFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "scan.yaml")
	content := "address: \"0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82\"\nretry: true\nwait: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadScan(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != "56" || !cfg.Retry || cfg.Wait != 5*time.Second {
		t.Fatalf("scan config mismatch: %+v", cfg)
	}
}

func TestLoadScanRequiresAddress(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := LoadScan("", nil); err == nil {
		t.Fatalf("expected missing address error")
	}
}

func TestLoadMigrateRequiresDSN(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := LoadMigrate("", nil); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
