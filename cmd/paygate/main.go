package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "paygate",
		Short:        "EVM merchant payment verification gateway",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	addGatewayFlags(serveCmd.Flags())
	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().String("api-key", "", "API key for the verify endpoint")
	root.AddCommand(serveCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a transaction hash from the command line",
		RunE:  runVerify,
	}
	addGatewayFlags(verifyCmd.Flags())
	verifyCmd.Flags().String("tx-hash", "", "transaction hash to verify")
	verifyCmd.Flags().Int64("order-id", 0, "order id the payment should settle")
	verifyCmd.Flags().String("network", "", "network key (defaults to configured default)")
	verifyCmd.Flags().String("expected-amount", "", "minimum amount in smallest units")
	root.AddCommand(verifyCmd)

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Quote a fiat amount in crypto",
		RunE:  runConvert,
	}
	addGatewayFlags(convertCmd.Flags())
	convertCmd.Flags().String("amount", "", "fiat amount")
	convertCmd.Flags().String("currency", "eur", "fiat currency code")
	convertCmd.Flags().Bool("usdc", false, "quote in USDC instead of ETH")
	root.AddCommand(convertCmd)

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune replay-guard and audit rows past the retention period",
		RunE:  runCleanup,
	}
	addGatewayFlags(cleanupCmd.Flags())
	root.AddCommand(cleanupCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addGatewayFlags(flags *pflag.FlagSet) {
	flags.String("pg-dsn", "", "Postgres DSN (empty runs the in-memory store)")
	flags.String("audit-log", "", "optional JSONL audit log path")
	flags.String("network-mode", "test", "network mode (test or live)")
	flags.String("default-network", "base_sepolia", "default network key")
	flags.String("merchant-wallet", "", "merchant wallet address")
	flags.Float64("margin-percent", 2.0, "price safety margin percent")
	flags.Duration("price-cache-ttl", 60*time.Second, "crypto price cache TTL")
	flags.Duration("fiat-cache-ttl", 1800*time.Second, "fiat rate cache TTL")
	flags.Duration("rpc-timeout", 30*time.Second, "per-request RPC timeout")
	flags.Int("verify-attempts", 10, "receipt polling attempts")
	flags.Duration("verify-delay", 3*time.Second, "delay between polling attempts")
	flags.Bool("strict-order-match", true, "require on-chain order id to match")
	flags.Int64("tolerance-bps", 10, "underpayment tolerance in basis points")
	flags.Int("retention-days", 365, "replay-guard retention in days")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
