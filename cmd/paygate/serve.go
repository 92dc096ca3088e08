package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paygate/internal/api"
	"paygate/internal/chain"
	"paygate/internal/config"
	"paygate/internal/pricing"
	"paygate/internal/store"
	"paygate/internal/store/postgres"
	"paygate/internal/verify"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.MerchantWallet == "" {
		return fmt.Errorf("merchant wallet is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api key is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	service, oracle, pool := buildService(cfg, st, logger)
	defer pool.Close()

	server := api.NewServer(cfg, service, oracle, logger)

	logger.Info("gateway start",
		zap.String("listen", cfg.Listen),
		zap.String("network_mode", cfg.NetworkMode),
		zap.String("default_network", cfg.DefaultNetwork),
		zap.String("merchant_wallet", cfg.MerchantWallet),
		zap.Float64("margin_percent", cfg.MarginPercent),
		zap.Int("verify_attempts", cfg.VerifyAttempts),
		zap.Duration("verify_delay", cfg.VerifyDelay),
		zap.Bool("strict_order_match", cfg.StrictOrderMatch),
	)

	return server.Run(ctx)
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.PGDSN == "" {
		logger.Warn("no pg-dsn configured, replay guard runs in-memory (single instance only)")
		return store.NewMemoryStore(), nil
	}

	pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pgStore.Migrate(ctx); err != nil {
		pgStore.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pgStore, nil
}

func buildService(cfg config.Config, st store.Store, logger *zap.Logger) (*verify.Service, *pricing.Oracle, *chain.Pool) {
	oracle := pricing.NewOracle(pricing.OracleConfig{
		CryptoTTL: cfg.PriceCacheTTL,
		FiatTTL:   cfg.FiatCacheTTL,
	}, logger)
	converter := pricing.NewConverter(oracle)

	pool := chain.NewPool(cfg.RPCTimeout)
	verifier := verify.NewVerifier(verify.VerifierConfig{
		Attempts:         cfg.VerifyAttempts,
		Delay:            cfg.VerifyDelay,
		StrictOrderMatch: cfg.StrictOrderMatch,
		ToleranceBps:     cfg.ToleranceBps,
	}, pool, logger)

	var audit *store.AuditLog
	if cfg.AuditLogPath != "" {
		audit = store.NewAuditLog(cfg.AuditLogPath)
	}

	service := verify.NewService(cfg, verifier, converter, st, audit, logger)
	return service, oracle, pool
}
