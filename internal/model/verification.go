package model

import "time"

// Outcome is the terminal (or pending) state of a verification attempt.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeVerified  Outcome = "verified"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnderpaid Outcome = "underpaid"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeDuplicate Outcome = "duplicate"
)

// VerificationRecord is the persisted audit entry for a tx hash.
// Amounts are decimal integer strings.
type VerificationRecord struct {
	TxHash         string      `json:"tx_hash"`
	OrderID        int64       `json:"order_id"`
	Network        string      `json:"network"`
	Outcome        Outcome     `json:"outcome"`
	PaymentType    PaymentType `json:"payment_type,omitempty"`
	Payer          string      `json:"payer,omitempty"`
	Merchant       string      `json:"merchant,omitempty"`
	TokenAddress   string      `json:"token_address,omitempty"`
	Amount         string      `json:"amount,omitempty"`
	MerchantAmount string      `json:"merchant_amount,omitempty"`
	PlatformFee    string      `json:"platform_fee,omitempty"`
	BlockNumber    uint64      `json:"block_number,omitempty"`
	ErrorText      string      `json:"error_text,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
