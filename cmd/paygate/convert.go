package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paygate/internal/config"
	"paygate/internal/model"
	"paygate/internal/store"
)

func runConvert(cmd *cobra.Command, _ []string) error {
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

	amountStr, _ := cmd.Flags().GetString("amount")
	currency, _ := cmd.Flags().GetString("currency")
	usdc, _ := cmd.Flags().GetBool("usdc")

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q", amountStr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, _, pool := buildService(cfg, store.NewMemoryStore(), logger)
	defer pool.Close()

	var quote *model.ConversionQuote
	if usdc {
		quote, err = service.ConvertToken(ctx, amount, currency)
	} else {
		quote, err = service.ConvertNative(ctx, amount, currency)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(quote)
}
