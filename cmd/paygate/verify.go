package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"paygate/internal/config"
	"paygate/internal/verify"
)

func runVerify(cmd *cobra.Command, _ []string) error {
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

	txHash, _ := cmd.Flags().GetString("tx-hash")
	orderID, _ := cmd.Flags().GetInt64("order-id")
	network, _ := cmd.Flags().GetString("network")
	expectedAmount, _ := cmd.Flags().GetString("expected-amount")

	if txHash == "" {
		return fmt.Errorf("tx-hash is required")
	}
	if cfg.MerchantWallet == "" {
		return fmt.Errorf("merchant wallet is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	service, _, pool := buildService(cfg, st, logger)
	defer pool.Close()

	result, err := service.VerifyPayment(ctx, verify.Request{
		TxHash:         txHash,
		OrderID:        orderID,
		Network:        network,
		ExpectedAmount: expectedAmount,
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
