package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Listen           string
	APIKey           string
	PGDSN            string
	AuditLogPath     string
	NetworkMode      string
	DefaultNetwork   string
	MerchantWallet   string
	MarginPercent    float64
	PriceCacheTTL    time.Duration
	FiatCacheTTL     time.Duration
	RPCTimeout       time.Duration
	VerifyAttempts   int
	VerifyDelay      time.Duration
	StrictOrderMatch bool
	ToleranceBps     int64
	RetentionDays    int
	LogLevel         string

	Networks map[string]Network
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("network-mode", "test")
	v.SetDefault("default-network", "base_sepolia")
	v.SetDefault("margin-percent", 2.0)
	v.SetDefault("price-cache-ttl", 60*time.Second)
	v.SetDefault("fiat-cache-ttl", 1800*time.Second)
	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("verify-attempts", 10)
	v.SetDefault("verify-delay", 3*time.Second)
	v.SetDefault("strict-order-match", true)
	v.SetDefault("tolerance-bps", 10)
	v.SetDefault("retention-days", 365)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Listen:           v.GetString("listen"),
		APIKey:           v.GetString("api-key"),
		PGDSN:            v.GetString("pg-dsn"),
		AuditLogPath:     v.GetString("audit-log"),
		NetworkMode:      v.GetString("network-mode"),
		DefaultNetwork:   v.GetString("default-network"),
		MerchantWallet:   strings.ToLower(v.GetString("merchant-wallet")),
		MarginPercent:    v.GetFloat64("margin-percent"),
		PriceCacheTTL:    v.GetDuration("price-cache-ttl"),
		FiatCacheTTL:     v.GetDuration("fiat-cache-ttl"),
		RPCTimeout:       v.GetDuration("rpc-timeout"),
		VerifyAttempts:   v.GetInt("verify-attempts"),
		VerifyDelay:      v.GetDuration("verify-delay"),
		StrictOrderMatch: v.GetBool("strict-order-match"),
		ToleranceBps:     v.GetInt64("tolerance-bps"),
		RetentionDays:    v.GetInt("retention-days"),
		LogLevel:         v.GetString("log-level"),
		Networks:         loadNetworks(v),
	}

	if cfg.NetworkMode != "test" && cfg.NetworkMode != "live" {
		return Config{}, fmt.Errorf("network-mode must be test or live, got %q", cfg.NetworkMode)
	}
	if _, ok := cfg.Networks[cfg.DefaultNetwork]; !ok {
		return Config{}, fmt.Errorf("unknown default network %q", cfg.DefaultNetwork)
	}

	return cfg, nil
}

// loadNetworks applies per-network overrides from the config file on top of
// the built-in table. Supported override keys (under "networks.<key>"):
// contract, rpc-url, usdc-address.
func loadNetworks(v *viper.Viper) map[string]Network {
	networks := DefaultNetworks()
	for key, n := range networks {
		prefix := "networks." + key + "."
		if contract := v.GetString(prefix + "contract"); contract != "" {
			n.Contract = contract
		}
		if rpcURL := v.GetString(prefix + "rpc-url"); rpcURL != "" {
			n.RPCURL = rpcURL
		}
		if usdc := v.GetString(prefix + "usdc-address"); usdc != "" {
			n.USDCAddress = usdc
		}
		networks[key] = n
	}
	return networks
}
