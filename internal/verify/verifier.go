package verify

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"paygate/internal/config"
	"paygate/internal/events"
	"paygate/internal/model"
)

// ReceiptFetcher fetches a raw receipt from a network RPC endpoint. A nil
// receipt with nil error means the transaction is not yet mined.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, rpcURL, txHash string) (*model.Receipt, error)
}

// VerifierConfig holds the verification policy knobs.
type VerifierConfig struct {
	// receipt polling: propagation on testnets and L2s can take 10-30s
	Attempts int
	Delay    time.Duration

	// StrictOrderMatch requires the decoded order id to equal the expected
	// one. The lenient mode exists for callers that bind hash to order
	// through the replay guard alone.
	StrictOrderMatch bool

	// ToleranceBps is the underpayment tolerance in basis points. Price
	// feeds and margin rounding produce sub-basis-point drift between the
	// quoted and the on-chain amount; exact equality would spuriously
	// reject valid payments.
	ToleranceBps int64
}

// Expectation is what a payment must prove on-chain.
type Expectation struct {
	OrderID   int64
	Merchant  string   // merchant wallet, any hex case
	MinAmount *big.Int // nil skips the amount check
}

// Result is a successful verification.
type Result struct {
	Event       *model.PaymentEvent
	BlockNumber uint64
}

// Verifier answers whether a tx hash is a valid, sufficient payment to a
// merchant for an order on a given network.
type Verifier struct {
	cfg     VerifierConfig
	fetcher ReceiptFetcher
	decoder *events.Decoder
	logger  *zap.Logger
}

// NewVerifier builds a Verifier.
func NewVerifier(cfg VerifierConfig, fetcher ReceiptFetcher, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 10
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 3 * time.Second
	}
	if cfg.ToleranceBps < 0 {
		cfg.ToleranceBps = 0
	}
	return &Verifier{
		cfg:     cfg,
		fetcher: fetcher,
		decoder: events.NewDecoder(),
		logger:  logger,
	}
}

// Verify runs the full check sequence against the chain. Failures are
// returned as *Failure; any other error is an internal fault.
func (v *Verifier) Verify(ctx context.Context, network config.Network, txHash string, expect Expectation) (*Result, error) {
	receipt, err := v.fetchReceipt(ctx, network, txHash)
	if err != nil {
		return nil, err
	}

	if !receipt.Succeeded() {
		return nil, &Failure{Code: CodeTxFailed, Reason: "transaction failed on blockchain"}
	}

	// The primary defense against an unrelated transaction hash.
	if strings.ToLower(receipt.To) != strings.ToLower(network.Contract) {
		return nil, &Failure{Code: CodeWrongContract, Reason: "transaction sent to wrong contract address"}
	}

	// First matching log wins; the contract emits one payment event per
	// transaction, scanning order keeps the choice deterministic.
	var event *model.PaymentEvent
	for _, log := range receipt.Logs {
		if event = v.decoder.DecodeLog(log); event != nil {
			break
		}
	}
	if event == nil {
		return nil, &Failure{Code: CodeNoEvent, Reason: "no valid payment event found in transaction"}
	}

	if event.Merchant != strings.ToLower(expect.Merchant) {
		return nil, &Failure{Code: CodeWrongMerchant, Reason: "payment sent to wrong merchant address"}
	}

	if v.cfg.StrictOrderMatch && event.OrderID.Cmp(big.NewInt(expect.OrderID)) != 0 {
		return nil, &Failure{
			Code:   CodeOrderMismatch,
			Reason: fmt.Sprintf("order id mismatch: expected %d, got %s", expect.OrderID, event.OrderID),
		}
	}

	if expect.MinAmount != nil {
		floor := toleranceFloor(expect.MinAmount, v.cfg.ToleranceBps)
		if event.Amount.Cmp(floor) < 0 {
			return nil, &Failure{
				Code:     CodeUnderpaid,
				Reason:   "payment amount is less than expected",
				Expected: expect.MinAmount.String(),
				Received: event.Amount.String(),
			}
		}
	}

	return &Result{
		Event:       event,
		BlockNumber: receipt.BlockNumberUint(),
	}, nil
}

// fetchReceipt polls for the receipt with a fixed delay between attempts.
// Transport errors and a null receipt both retry; the final attempt decides
// between rpc_error and tx_pending.
func (v *Verifier) fetchReceipt(ctx context.Context, network config.Network, txHash string) (*model.Receipt, error) {
	var lastErr error
	for attempt := 1; attempt <= v.cfg.Attempts; attempt++ {
		receipt, err := v.fetcher.TransactionReceipt(ctx, network.RPCURL, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		lastErr = err

		if err != nil {
			v.logger.Warn("receipt fetch failed",
				zap.String("network", network.Key),
				zap.String("tx_hash", txHash),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		if attempt == v.cfg.Attempts {
			break
		}
		if err := sleep(ctx, v.cfg.Delay); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, &Failure{Code: CodeRPCError, Reason: "failed to fetch transaction receipt", Retryable: true}
	}
	return nil, &Failure{Code: CodeTxPending, Reason: "transaction not yet confirmed, try again shortly", Retryable: true}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// toleranceFloor computes expected * (10000 - bps) / 10000 in integer
// arithmetic.
func toleranceFloor(expected *big.Int, bps int64) *big.Int {
	if bps <= 0 {
		return new(big.Int).Set(expected)
	}
	floor := new(big.Int).Mul(expected, big.NewInt(10000-bps))
	return floor.Quo(floor, big.NewInt(10000))
}
