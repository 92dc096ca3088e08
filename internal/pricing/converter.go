package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/model"
)

// ErrInvalidAmount rejects non-positive fiat amounts before any network I/O.
var ErrInvalidAmount = errors.New("amount must be greater than 0")

const (
	nativeDecimals = 18
	// display precision for native amounts; the smallest-unit integer is
	// produced from the rounded value so quote and wei stay consistent
	nativeRoundPlaces = 8
	// stablecoin, cents are enough
	tokenRoundPlaces = 2
)

// RateSource supplies exchange rates. *Oracle is the production source.
type RateSource interface {
	EthPrice(ctx context.Context, currency string) (Rate, error)
	FiatToUSD(ctx context.Context, currency string) (Rate, error)
	CryptoCacheTTLSeconds() int
}

// Converter turns fiat totals into crypto amounts with a safety margin.
type Converter struct {
	oracle RateSource
}

// NewConverter builds a converter on top of the rate source.
func NewConverter(oracle RateSource) *Converter {
	return &Converter{oracle: oracle}
}

// ConvertToNative converts a fiat amount into ETH with margin applied.
// The wei value is computed by decimal shifting, never through floats.
func (c *Converter) ConvertToNative(ctx context.Context, fiatAmount decimal.Decimal, currency string, marginPercent decimal.Decimal) (*model.ConversionQuote, error) {
	if fiatAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	rate, err := c.oracle.EthPrice(ctx, currency)
	if err != nil {
		return nil, err
	}

	price := decimal.NewFromFloat(rate.Value)
	raw := fiatAmount.DivRound(price, nativeDecimals)
	withMargin := applyMargin(raw, marginPercent).Round(nativeRoundPlaces)
	wei := withMargin.Shift(nativeDecimals).Truncate(0)

	return &model.ConversionQuote{
		FiatAmount:    fiatAmount,
		FiatCurrency:  currency,
		Rate:          rate.Value,
		RateSource:    rate.Source,
		CryptoAmount:  withMargin,
		RawAmount:     raw,
		SmallestUnit:  wei.BigInt().String(),
		Decimals:      nativeDecimals,
		MarginPercent: marginPercent,
		Timestamp:     time.Now().Unix(),
		ValidFor:      c.oracle.CryptoCacheTTLSeconds(),
	}, nil
}

// ConvertToToken converts a fiat amount into a USD-pegged token amount. A
// USD quote skips the fiat conversion entirely (rate 1.0).
func (c *Converter) ConvertToToken(ctx context.Context, fiatAmount decimal.Decimal, currency string, marginPercent decimal.Decimal, tokenDecimals int32) (*model.ConversionQuote, error) {
	if fiatAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	rate, err := c.oracle.FiatToUSD(ctx, currency)
	if err != nil {
		return nil, err
	}

	raw := fiatAmount.Mul(decimal.NewFromFloat(rate.Value))
	withMargin := applyMargin(raw, marginPercent).Round(tokenRoundPlaces)
	smallest := withMargin.Shift(tokenDecimals).Truncate(0)

	return &model.ConversionQuote{
		FiatAmount:    fiatAmount,
		FiatCurrency:  currency,
		Rate:          rate.Value,
		RateSource:    rate.Source,
		CryptoAmount:  withMargin,
		RawAmount:     raw,
		SmallestUnit:  smallest.BigInt().String(),
		Decimals:      tokenDecimals,
		MarginPercent: marginPercent,
		Timestamp:     time.Now().Unix(),
		ValidFor:      c.oracle.CryptoCacheTTLSeconds(),
	}, nil
}

func applyMargin(amount, marginPercent decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return amount.Mul(one.Add(marginPercent.Div(hundred)))
}
