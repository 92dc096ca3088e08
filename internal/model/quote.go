package model

import "github.com/shopspring/decimal"

// ConversionQuote is the result of a fiat to crypto conversion.
// SmallestUnit is an arbitrary-precision integer string; float types are
// never used for the final integer amount.
type ConversionQuote struct {
	FiatAmount    decimal.Decimal `json:"fiat_amount"`
	FiatCurrency  string          `json:"fiat_currency"`
	Rate          float64         `json:"rate"`
	RateSource    string          `json:"rate_source"`
	CryptoAmount  decimal.Decimal `json:"crypto_amount"`
	RawAmount     decimal.Decimal `json:"raw_amount"`
	SmallestUnit  string          `json:"smallest_unit"`
	Decimals      int32           `json:"decimals"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	Timestamp     int64           `json:"timestamp"`
	ValidFor      int             `json:"valid_for"`
}
