package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paygate/internal/config"
	"paygate/internal/store/postgres"
)

func runCleanup(cmd *cobra.Command, _ []string) error {
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

	if cfg.PGDSN == "" {
		return fmt.Errorf("cleanup requires pg-dsn")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer st.Close()

	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
	deleted, err := st.Prune(ctx, cutoff)
	if err != nil {
		return err
	}

	logger.Info("cleanup complete",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)
	return nil
}
