package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paygate/internal/model"
	"paygate/internal/store"
)

// Store provides Postgres persistence for the replay guard and the
// verification audit trail.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the gateway tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS used_txhash (
			tx_hash VARCHAR(66) PRIMARY KEY,
			order_id BIGINT NOT NULL,
			network VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS verification_records (
			tx_hash VARCHAR(66) PRIMARY KEY,
			order_id BIGINT NOT NULL,
			network VARCHAR(50) NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			payment_type VARCHAR(10) NOT NULL DEFAULT '',
			payer VARCHAR(42) NOT NULL DEFAULT '',
			merchant VARCHAR(42) NOT NULL DEFAULT '',
			token_address VARCHAR(42) NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '',
			merchant_amount TEXT NOT NULL DEFAULT '',
			platform_fee TEXT NOT NULL DEFAULT '',
			block_number BIGINT NOT NULL DEFAULT 0,
			error_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// TryClaim performs the atomic insert-if-absent. The primary key on tx_hash
// resolves concurrent claims; application code never does check-then-insert.
func (s *Store) TryClaim(ctx context.Context, txHash string, orderID int64, network string) (store.ClaimResult, error) {
	txHash = strings.ToLower(txHash)

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO used_txhash (tx_hash, order_id, network)
		VALUES ($1, $2, $3)
		ON CONFLICT (tx_hash) DO NOTHING
	`, txHash, orderID, network)
	if err != nil {
		return store.ClaimResult{}, fmt.Errorf("claim tx hash: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return store.ClaimResult{Claimed: true}, nil
	}

	existing, err := s.IsClaimed(ctx, txHash)
	if err != nil {
		return store.ClaimResult{}, err
	}
	if existing == nil {
		// Lost the race and the winner's row is already pruned; vanishingly
		// unlikely, treat as a conflict the caller can retry.
		return store.ClaimResult{}, fmt.Errorf("claim conflict for %s", txHash)
	}
	return store.ClaimResult{Existing: existing}, nil
}

func (s *Store) IsClaimed(ctx context.Context, txHash string) (*store.Claim, error) {
	txHash = strings.ToLower(txHash)

	var claim store.Claim
	row := s.pool.QueryRow(ctx, `
		SELECT tx_hash, order_id, network, created_at
		FROM used_txhash WHERE tx_hash = $1
	`, txHash)
	if err := row.Scan(&claim.TxHash, &claim.OrderID, &claim.Network, &claim.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read claim: %w", err)
	}
	return &claim, nil
}

func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM used_txhash WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune claims: %w", err)
	}
	recTag, err := s.pool.Exec(ctx, `DELETE FROM verification_records WHERE created_at < $1`, olderThan)
	if err != nil {
		return tag.RowsAffected(), fmt.Errorf("prune records: %w", err)
	}
	return tag.RowsAffected() + recTag.RowsAffected(), nil
}

// SaveRecord upserts a verification record to its latest state.
func (s *Store) SaveRecord(ctx context.Context, rec model.VerificationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_records (
			tx_hash, order_id, network, outcome, payment_type, payer, merchant,
			token_address, amount, merchant_amount, platform_fee, block_number,
			error_text, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
		ON CONFLICT (tx_hash)
		DO UPDATE SET
			order_id = EXCLUDED.order_id,
			outcome = EXCLUDED.outcome,
			payment_type = EXCLUDED.payment_type,
			payer = EXCLUDED.payer,
			merchant = EXCLUDED.merchant,
			token_address = EXCLUDED.token_address,
			amount = EXCLUDED.amount,
			merchant_amount = EXCLUDED.merchant_amount,
			platform_fee = EXCLUDED.platform_fee,
			block_number = EXCLUDED.block_number,
			error_text = EXCLUDED.error_text,
			updated_at = now()
	`,
		strings.ToLower(rec.TxHash),
		rec.OrderID,
		rec.Network,
		string(rec.Outcome),
		string(rec.PaymentType),
		rec.Payer,
		rec.Merchant,
		rec.TokenAddress,
		rec.Amount,
		rec.MerchantAmount,
		rec.PlatformFee,
		int64(rec.BlockNumber),
		rec.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, txHash string) (*model.VerificationRecord, error) {
	txHash = strings.ToLower(txHash)

	var rec model.VerificationRecord
	var blockNumber int64
	var outcome, paymentType string
	row := s.pool.QueryRow(ctx, `
		SELECT tx_hash, order_id, network, outcome, payment_type, payer,
		       merchant, token_address, amount, merchant_amount, platform_fee,
		       block_number, error_text, created_at
		FROM verification_records WHERE tx_hash = $1
	`, txHash)
	err := row.Scan(
		&rec.TxHash, &rec.OrderID, &rec.Network, &outcome, &paymentType,
		&rec.Payer, &rec.Merchant, &rec.TokenAddress, &rec.Amount,
		&rec.MerchantAmount, &rec.PlatformFee, &blockNumber, &rec.ErrorText,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read verification record: %w", err)
	}
	rec.Outcome = model.Outcome(outcome)
	rec.PaymentType = model.PaymentType(paymentType)
	rec.BlockNumber = uint64(blockNumber)
	return &rec, nil
}
