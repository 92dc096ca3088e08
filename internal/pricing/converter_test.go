package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type stubRates struct {
	eth     Rate
	ethErr  error
	fiat    Rate
	fiatErr error
}

func (s *stubRates) EthPrice(context.Context, string) (Rate, error) {
	return s.eth, s.ethErr
}

func (s *stubRates) FiatToUSD(context.Context, string) (Rate, error) {
	return s.fiat, s.fiatErr
}

func (s *stubRates) CryptoCacheTTLSeconds() int { return 60 }

func TestConvertToNative(t *testing.T) {
	converter := NewConverter(&stubRates{eth: Rate{Value: 3000, Source: SourceCoinGecko}})

	quote, err := converter.ConvertToNative(context.Background(), decimal.NewFromInt(100), "eur", decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 100 / 3000 = 0.0333..., +2% = 0.034 after rounding to 8 places
	if !quote.CryptoAmount.Equal(decimal.RequireFromString("0.034")) {
		t.Fatalf("crypto amount mismatch: %s", quote.CryptoAmount)
	}
	if quote.SmallestUnit != "34000000000000000" {
		t.Fatalf("wei mismatch: %s", quote.SmallestUnit)
	}
	if quote.Decimals != 18 {
		t.Fatalf("decimals mismatch: %d", quote.Decimals)
	}
	if quote.Rate != 3000 {
		t.Fatalf("rate mismatch: %f", quote.Rate)
	}
	if quote.RateSource != SourceCoinGecko {
		t.Fatalf("rate source mismatch: %s", quote.RateSource)
	}
	if quote.ValidFor != 60 {
		t.Fatalf("valid_for mismatch: %d", quote.ValidFor)
	}
}

func TestConvertToNativeZeroMargin(t *testing.T) {
	converter := NewConverter(&stubRates{eth: Rate{Value: 2500, Source: SourceCoinGecko}})

	quote, err := converter.ConvertToNative(context.Background(), decimal.NewFromInt(100), "eur", decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.SmallestUnit != "40000000000000000" {
		t.Fatalf("wei mismatch: %s", quote.SmallestUnit)
	}
}

func TestConvertToNativeInvalidAmount(t *testing.T) {
	converter := NewConverter(&stubRates{eth: Rate{Value: 3000}})

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		if _, err := converter.ConvertToNative(context.Background(), amount, "eur", decimal.NewFromInt(2)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %s, got %v", amount, err)
		}
	}
}

func TestConvertToNativeRateError(t *testing.T) {
	converter := NewConverter(&stubRates{ethErr: ErrRateUnavailable})

	if _, err := converter.ConvertToNative(context.Background(), decimal.NewFromInt(100), "eur", decimal.NewFromInt(2)); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
}

func TestConvertToTokenUSD(t *testing.T) {
	converter := NewConverter(&stubRates{fiat: Rate{Value: 1.0, Source: SourceFallbackStatic}})

	quote, err := converter.ConvertToToken(context.Background(), decimal.NewFromInt(50), "usd", decimal.NewFromInt(2), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 50 USD +2% = 51.00 USDC
	if !quote.CryptoAmount.Equal(decimal.RequireFromString("51")) {
		t.Fatalf("token amount mismatch: %s", quote.CryptoAmount)
	}
	if quote.SmallestUnit != "51000000" {
		t.Fatalf("smallest unit mismatch: %s", quote.SmallestUnit)
	}
	if quote.Decimals != 6 {
		t.Fatalf("decimals mismatch: %d", quote.Decimals)
	}
}

func TestConvertToTokenEUR(t *testing.T) {
	converter := NewConverter(&stubRates{fiat: Rate{Value: 1.08, Source: SourceExchangeRate}})

	quote, err := converter.ConvertToToken(context.Background(), decimal.NewFromInt(100), "eur", decimal.NewFromInt(2), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 100 * 1.08 = 108 USD, +2% = 110.16 USDC
	if !quote.CryptoAmount.Equal(decimal.RequireFromString("110.16")) {
		t.Fatalf("token amount mismatch: %s", quote.CryptoAmount)
	}
	if quote.SmallestUnit != "110160000" {
		t.Fatalf("smallest unit mismatch: %s", quote.SmallestUnit)
	}
}

func TestConvertToTokenRateError(t *testing.T) {
	converter := NewConverter(&stubRates{fiatErr: ErrRateUnavailable})

	if _, err := converter.ConvertToToken(context.Background(), decimal.NewFromInt(100), "gbp", decimal.NewFromInt(2), 6); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
}
