package model

import "math/big"

// PaymentType distinguishes native-coin and ERC-20 payments.
type PaymentType string

const (
	PaymentNative PaymentType = "eth"
	PaymentToken  PaymentType = "token"
)

// PaymentEvent is a decoded merchant-contract payment event.
// Addresses are normalized to lowercase hex.
type PaymentEvent struct {
	Type           PaymentType
	Payer          string
	Merchant       string
	Token          string // token payments only
	OrderID        *big.Int
	Amount         *big.Int
	MerchantAmount *big.Int
	PlatformFee    *big.Int
	Timestamp      *big.Int
}
