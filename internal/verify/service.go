package verify

import (
	"context"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paygate/internal/config"
	"paygate/internal/model"
	"paygate/internal/pricing"
	"paygate/internal/store"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Request is a payment verification submission.
type Request struct {
	TxHash  string
	OrderID int64
	// Network key; empty selects the configured default.
	Network string
	// ExpectedAmount is the minimum acceptable amount in smallest units,
	// as a decimal integer string. Empty skips the amount check.
	ExpectedAmount string
}

// PaymentResult is a successful, claimed, persisted verification.
type PaymentResult struct {
	TxHash       string            `json:"tx_hash"`
	OrderID      int64             `json:"order_id"`
	Network      string            `json:"network"`
	PaymentType  model.PaymentType `json:"payment_type"`
	Amount       string            `json:"amount"`
	Merchant     string            `json:"merchant"`
	Payer        string            `json:"payer"`
	TokenAddress string            `json:"token_address,omitempty"`
	BlockNumber  uint64            `json:"block_number"`
	ExplorerURL  string            `json:"explorer_url"`
}

// Service is the single entry point for payment submission: it validates
// input, verifies on-chain, claims the tx hash, and persists the outcome.
// Both the REST endpoint and any other caller go through here.
type Service struct {
	cfg       config.Config
	verifier  *Verifier
	converter *pricing.Converter
	store     store.Store
	audit     *store.AuditLog
	logger    *zap.Logger
}

// NewService builds the verification service. audit may be nil.
func NewService(cfg config.Config, verifier *Verifier, converter *pricing.Converter, st store.Store, audit *store.AuditLog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		verifier:  verifier,
		converter: converter,
		store:     st,
		audit:     audit,
		logger:    logger,
	}
}

// ConvertNative quotes a fiat amount in ETH using the configured margin.
func (s *Service) ConvertNative(ctx context.Context, amount decimal.Decimal, currency string) (*model.ConversionQuote, error) {
	return s.converter.ConvertToNative(ctx, amount, currency, decimal.NewFromFloat(s.cfg.MarginPercent))
}

// ConvertToken quotes a fiat amount in USDC using the configured margin and
// the default network's token decimals.
func (s *Service) ConvertToken(ctx context.Context, amount decimal.Decimal, currency string) (*model.ConversionQuote, error) {
	network := s.cfg.Networks[s.cfg.DefaultNetwork]
	return s.converter.ConvertToToken(ctx, amount, currency, decimal.NewFromFloat(s.cfg.MarginPercent), network.USDCDecimals)
}

// Network resolves a network key against the table and the current mode.
func (s *Service) Network(key string) (config.Network, *Failure) {
	if key == "" {
		key = s.cfg.DefaultNetwork
	}
	network, ok := s.cfg.Networks[key]
	if !ok {
		return config.Network{}, failInvalidInput("unknown network " + key)
	}
	if network.Testnet != (s.cfg.NetworkMode != "live") {
		return config.Network{}, failInvalidInput("network " + key + " is not available in " + s.cfg.NetworkMode + " mode")
	}
	return network, nil
}

// VerifyPayment runs the full submission flow. State transitions are
// persisted before returning so a disconnecting caller loses nothing.
func (s *Service) VerifyPayment(ctx context.Context, req Request) (*PaymentResult, error) {
	txHash := strings.ToLower(strings.TrimSpace(req.TxHash))
	if !txHashPattern.MatchString(txHash) {
		return nil, failInvalidInput("invalid transaction hash format")
	}
	if req.OrderID <= 0 {
		return nil, failInvalidInput("order id must be a positive integer")
	}

	network, fail := s.Network(req.Network)
	if fail != nil {
		return nil, fail
	}

	var expectedMin *big.Int
	if req.ExpectedAmount != "" {
		parsed, ok := new(big.Int).SetString(req.ExpectedAmount, 10)
		if !ok || parsed.Sign() <= 0 {
			return nil, failInvalidInput("expected amount must be a positive integer string")
		}
		expectedMin = parsed
	}

	// Pre-flight read: short-circuits resubmits without paying the RPC
	// cost. The authoritative check is the TryClaim after verification.
	claim, err := s.store.IsClaimed(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		if claim.OrderID == req.OrderID {
			return s.replayOwnClaim(ctx, txHash, network)
		}
		return nil, s.rejectDuplicate(txHash, req.OrderID, claim)
	}

	result, err := s.verifier.Verify(ctx, network, txHash, Expectation{
		OrderID:   req.OrderID,
		Merchant:  s.cfg.MerchantWallet,
		MinAmount: expectedMin,
	})
	if err != nil {
		if failure, ok := err.(*Failure); ok {
			s.persistRecord(ctx, failureRecord(txHash, req.OrderID, network.Key, failure))
		}
		return nil, err
	}

	claimResult, err := s.store.TryClaim(ctx, txHash, req.OrderID, network.Key)
	if err != nil {
		return nil, err
	}
	if !claimResult.Claimed {
		if claimResult.Existing.OrderID != req.OrderID {
			return nil, s.rejectDuplicate(txHash, req.OrderID, claimResult.Existing)
		}
		// Our own earlier claim; fall through and refresh the record.
	}

	record := successRecord(txHash, req.OrderID, network.Key, result)
	s.persistRecord(ctx, record)

	s.logger.Info("payment verified",
		zap.String("tx_hash", txHash),
		zap.Int64("order_id", req.OrderID),
		zap.String("network", network.Key),
		zap.String("payment_type", string(result.Event.Type)),
		zap.String("amount", result.Event.Amount.String()),
		zap.Uint64("block_number", result.BlockNumber),
	)

	return &PaymentResult{
		TxHash:       txHash,
		OrderID:      req.OrderID,
		Network:      network.Key,
		PaymentType:  result.Event.Type,
		Amount:       result.Event.Amount.String(),
		Merchant:     result.Event.Merchant,
		Payer:        result.Event.Payer,
		TokenAddress: result.Event.Token,
		BlockNumber:  result.BlockNumber,
		ExplorerURL:  network.TxURL(txHash),
	}, nil
}

// replayOwnClaim serves a resubmission of an already-claimed hash by the
// same order from the stored record.
func (s *Service) replayOwnClaim(ctx context.Context, txHash string, network config.Network) (*PaymentResult, error) {
	record, err := s.store.GetRecord(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Outcome != model.OutcomeVerified {
		return nil, &Failure{Code: CodeDuplicate, Reason: "transaction hash already submitted"}
	}
	return &PaymentResult{
		TxHash:       txHash,
		OrderID:      record.OrderID,
		Network:      record.Network,
		PaymentType:  record.PaymentType,
		Amount:       record.Amount,
		Merchant:     record.Merchant,
		Payer:        record.Payer,
		TokenAddress: record.TokenAddress,
		BlockNumber:  record.BlockNumber,
		ExplorerURL:  network.TxURL(txHash),
	}, nil
}

// rejectDuplicate handles a hash already bound to another order. The
// verified record of the legitimate order is left untouched; the attempt is
// logged loudly since hash reuse across orders is an attack signal.
func (s *Service) rejectDuplicate(txHash string, orderID int64, existing *store.Claim) *Failure {
	s.logger.Warn("transaction hash reuse rejected",
		zap.String("tx_hash", txHash),
		zap.Int64("order_id", orderID),
		zap.Int64("claimed_by_order", existing.OrderID),
		zap.String("claimed_on_network", existing.Network),
	)
	if s.audit != nil {
		rec := model.VerificationRecord{
			TxHash:    txHash,
			OrderID:   orderID,
			Network:   existing.Network,
			Outcome:   model.OutcomeDuplicate,
			ErrorText: "tx hash already used by another order",
			CreatedAt: time.Now().UTC(),
		}
		if err := s.audit.Append(rec); err != nil {
			s.logger.Error("audit append failed", zap.Error(err))
		}
	}
	return &Failure{Code: CodeDuplicate, Reason: "transaction hash already used for another order"}
}

func (s *Service) persistRecord(ctx context.Context, rec model.VerificationRecord) {
	if err := s.store.SaveRecord(ctx, rec); err != nil {
		s.logger.Error("save verification record failed",
			zap.String("tx_hash", rec.TxHash),
			zap.Error(err),
		)
	}
	if s.audit != nil {
		if err := s.audit.Append(rec); err != nil {
			s.logger.Error("audit append failed", zap.Error(err))
		}
	}
}

func failureRecord(txHash string, orderID int64, networkKey string, failure *Failure) model.VerificationRecord {
	return model.VerificationRecord{
		TxHash:    txHash,
		OrderID:   orderID,
		Network:   networkKey,
		Outcome:   failure.Outcome(),
		ErrorText: failure.Reason,
		CreatedAt: time.Now().UTC(),
	}
}

func successRecord(txHash string, orderID int64, networkKey string, result *Result) model.VerificationRecord {
	event := result.Event
	return model.VerificationRecord{
		TxHash:         txHash,
		OrderID:        orderID,
		Network:        networkKey,
		Outcome:        model.OutcomeVerified,
		PaymentType:    event.Type,
		Payer:          event.Payer,
		Merchant:       event.Merchant,
		TokenAddress:   event.Token,
		Amount:         event.Amount.String(),
		MerchantAmount: event.MerchantAmount.String(),
		PlatformFee:    event.PlatformFee.String(),
		BlockNumber:    result.BlockNumber,
		CreatedAt:      time.Now().UTC(),
	}
}
