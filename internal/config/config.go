package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"riskscan/internal/riskapi"
)

// ServeConfig holds configuration for the HTTP and websocket server.
type ServeConfig struct {
	Addr            string
	Risk            RiskConfig
	RPC             RPCConfig
	PGDSN           string
	ScanLog         string
	PreferencesFile string
	DefaultShowRisk bool
	LocalesDir      string
	TrustedOrigins  []string
	LogLevel        string
}

// ScanConfig holds configuration for a single terminal scan.
type ScanConfig struct {
	ChainID    string
	Address    string
	Symbol     string
	Risk       RiskConfig
	RPC        RPCConfig
	Retry      bool
	Wait       time.Duration
	Lang       string
	LocalesDir string
	ScanLog    string
	LogLevel   string
}

// MigrateConfig holds configuration for schema migrations.
type MigrateConfig struct {
	PGDSN    string
	LogLevel string
}

// RiskConfig configures the risk provider client.
type RiskConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// RPCConfig configures the optional chain RPC used for token symbols.
type RPCConfig struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"addr":              ":8080",
		"default-show-risk": false,
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Addr:            v.GetString("addr"),
		Risk:            riskConfig(v),
		RPC:             rpcConfig(v),
		PGDSN:           v.GetString("pg-dsn"),
		ScanLog:         v.GetString("scan-log"),
		PreferencesFile: v.GetString("preferences-file"),
		DefaultShowRisk: v.GetBool("default-show-risk"),
		LocalesDir:      v.GetString("locales-dir"),
		TrustedOrigins:  getStringSlice(v, "trusted-origin"),
		LogLevel:        v.GetString("log-level"),
	}
	if cfg.Addr == "" {
		return ServeConfig{}, fmt.Errorf("addr is required")
	}
	return cfg, nil
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"chain-id": "56",
		"wait":     30 * time.Second,
		"lang":     "en",
	})
	if err != nil {
		return ScanConfig{}, err
	}

	cfg := ScanConfig{
		ChainID:    v.GetString("chain-id"),
		Address:    v.GetString("address"),
		Symbol:     v.GetString("symbol"),
		Risk:       riskConfig(v),
		RPC:        rpcConfig(v),
		Retry:      v.GetBool("retry"),
		Wait:       v.GetDuration("wait"),
		Lang:       v.GetString("lang"),
		LocalesDir: v.GetString("locales-dir"),
		ScanLog:    v.GetString("scan-log"),
		LogLevel:   v.GetString("log-level"),
	}
	if cfg.Address == "" {
		return ScanConfig{}, fmt.Errorf("address is required")
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 30 * time.Second
	}
	return cfg, nil
}

// LoadMigrate merges config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return MigrateConfig{}, err
	}

	cfg := MigrateConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.PGDSN == "" {
		return MigrateConfig{}, fmt.Errorf("pg-dsn is required")
	}
	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RISKSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("risk-endpoint", riskapi.DefaultEndpoint)
	v.SetDefault("risk-timeout", 10*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func riskConfig(v *viper.Viper) RiskConfig {
	return RiskConfig{
		Endpoint: v.GetString("risk-endpoint"),
		Timeout:  v.GetDuration("risk-timeout"),
	}
}

func rpcConfig(v *viper.Viper) RPCConfig {
	return RPCConfig{
		URL:          v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		if typed == "" {
			return nil
		}
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
