package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrRateUnavailable means every provider layer failed and no static
// fallback covers the requested pair.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrUnsupportedCurrency rejects quote currencies outside the allow-list.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Source tags for Rate; callers should treat SourceFallbackStatic specially.
const (
	SourceCoinGecko      = "coingecko"
	SourceCryptoCompare  = "cryptocompare"
	SourceExchangeRate   = "exchangerate-api"
	SourceFallbackStatic = "fallback-static"
)

// SupportedCurrencies is the fiat allow-list. Requests outside it fall back
// to the default currency at the API boundary.
var SupportedCurrencies = []string{"eur", "usd", "gbp", "chf", "cad", "aud", "jpy"}

// Rate is an exchange rate with its provenance.
type Rate struct {
	Value  float64
	Source string
}

// OracleConfig holds oracle settings. The base URLs exist so tests can point
// the oracle at local fake providers.
type OracleConfig struct {
	CryptoTTL time.Duration
	FiatTTL   time.Duration
	Timeout   time.Duration

	CoinGeckoBaseURL     string
	CryptoCompareBaseURL string
	ExchangeRateBaseURL  string
}

// Oracle fetches fiat and crypto exchange rates with caching and layered
// fallback providers.
type Oracle struct {
	cfg    OracleConfig
	http   *resty.Client
	cache  *rateCache
	logger *zap.Logger
}

// NewOracle builds a price oracle.
func NewOracle(cfg OracleConfig, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CryptoTTL <= 0 {
		cfg.CryptoTTL = 60 * time.Second
	}
	if cfg.FiatTTL <= 0 {
		cfg.FiatTTL = 1800 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CoinGeckoBaseURL == "" {
		cfg.CoinGeckoBaseURL = "https://api.coingecko.com"
	}
	if cfg.CryptoCompareBaseURL == "" {
		cfg.CryptoCompareBaseURL = "https://min-api.cryptocompare.com"
	}
	if cfg.ExchangeRateBaseURL == "" {
		cfg.ExchangeRateBaseURL = "https://api.exchangerate-api.com"
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Oracle{
		cfg:    cfg,
		http:   httpClient,
		cache:  newRateCache(),
		logger: logger,
	}
}

// IsSupportedCurrency reports whether the currency is on the allow-list.
func IsSupportedCurrency(currency string) bool {
	currency = strings.ToLower(currency)
	for _, c := range SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// EthPrice returns the ETH price in the given fiat currency, trying
// CoinGecko then CryptoCompare, with a process-local cache in front.
func (o *Oracle) EthPrice(ctx context.Context, currency string) (Rate, error) {
	currency = strings.ToLower(currency)
	if !IsSupportedCurrency(currency) {
		return Rate{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	cacheKey := "eth:" + currency
	if rate, ok := o.cache.get(cacheKey); ok {
		return rate, nil
	}

	rate, err := o.ethPriceCoinGecko(ctx, currency)
	if err != nil {
		o.logger.Warn("coingecko price fetch failed", zap.String("currency", currency), zap.Error(err))
		rate, err = o.ethPriceCryptoCompare(ctx, currency)
	}
	if err != nil {
		o.logger.Error("all eth price sources failed", zap.String("currency", currency), zap.Error(err))
		return Rate{}, ErrRateUnavailable
	}

	o.cache.set(cacheKey, rate, o.cfg.CryptoTTL)
	return rate, nil
}

// FiatToUSD returns the currency→USD rate, trying exchangerate-api then the
// CoinGecko tether cross-rate. EUR gets a static approximate rate as a last
// resort so checkout survives a full provider outage.
func (o *Oracle) FiatToUSD(ctx context.Context, currency string) (Rate, error) {
	currency = strings.ToLower(currency)
	if currency == "usd" {
		return Rate{Value: 1.0, Source: SourceFallbackStatic}, nil
	}
	if !IsSupportedCurrency(currency) {
		return Rate{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	cacheKey := "usd:" + currency
	if rate, ok := o.cache.get(cacheKey); ok {
		return rate, nil
	}

	rate, err := o.fiatToUSDExchangeRate(ctx, currency)
	if err != nil {
		o.logger.Warn("exchangerate-api fetch failed", zap.String("currency", currency), zap.Error(err))
		rate, err = o.fiatToUSDTetherRatio(ctx, currency)
	}
	if err != nil {
		if currency == "eur" {
			o.logger.Warn("all fiat rate sources failed, using static EUR/USD rate")
			return Rate{Value: 1.08, Source: SourceFallbackStatic}, nil
		}
		o.logger.Error("all fiat rate sources failed", zap.String("currency", currency), zap.Error(err))
		return Rate{}, ErrRateUnavailable
	}

	o.cache.set(cacheKey, rate, o.cfg.FiatTTL)
	return rate, nil
}

func (o *Oracle) ethPriceCoinGecko(ctx context.Context, currency string) (Rate, error) {
	var out map[string]map[string]float64
	resp, err := o.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "ethereum",
			"vs_currencies": currency,
		}).
		SetResult(&out).
		Get(o.cfg.CoinGeckoBaseURL + "/api/v3/simple/price")
	if err != nil {
		return Rate{}, err
	}
	if resp.IsError() {
		return Rate{}, fmt.Errorf("coingecko status %d", resp.StatusCode())
	}

	price, ok := out["ethereum"][currency]
	if !ok || price <= 0 {
		return Rate{}, fmt.Errorf("coingecko response missing ethereum.%s", currency)
	}
	return Rate{Value: price, Source: SourceCoinGecko}, nil
}

func (o *Oracle) ethPriceCryptoCompare(ctx context.Context, currency string) (Rate, error) {
	var out map[string]float64
	resp, err := o.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fsym":  "ETH",
			"tsyms": strings.ToUpper(currency),
		}).
		SetResult(&out).
		Get(o.cfg.CryptoCompareBaseURL + "/data/price")
	if err != nil {
		return Rate{}, err
	}
	if resp.IsError() {
		return Rate{}, fmt.Errorf("cryptocompare status %d", resp.StatusCode())
	}

	price, ok := out[strings.ToUpper(currency)]
	if !ok || price <= 0 {
		return Rate{}, fmt.Errorf("cryptocompare response missing %s", strings.ToUpper(currency))
	}
	return Rate{Value: price, Source: SourceCryptoCompare}, nil
}

func (o *Oracle) fiatToUSDExchangeRate(ctx context.Context, currency string) (Rate, error) {
	var out struct {
		Rates map[string]float64 `json:"rates"`
	}
	resp, err := o.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(o.cfg.ExchangeRateBaseURL + "/v4/latest/" + strings.ToUpper(currency))
	if err != nil {
		return Rate{}, err
	}
	if resp.IsError() {
		return Rate{}, fmt.Errorf("exchangerate-api status %d", resp.StatusCode())
	}

	rate, ok := out.Rates["USD"]
	if !ok || rate <= 0 {
		return Rate{}, fmt.Errorf("exchangerate-api response missing USD rate")
	}
	return Rate{Value: rate, Source: SourceExchangeRate}, nil
}

// fiatToUSDTetherRatio derives the rate from tether quotes: if 1 USDT = X
// fiat and 1 USDT = Y USD, then 1 fiat = Y/X USD.
func (o *Oracle) fiatToUSDTetherRatio(ctx context.Context, currency string) (Rate, error) {
	var out map[string]map[string]float64
	resp, err := o.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "tether",
			"vs_currencies": currency + ",usd",
		}).
		SetResult(&out).
		Get(o.cfg.CoinGeckoBaseURL + "/api/v3/simple/price")
	if err != nil {
		return Rate{}, err
	}
	if resp.IsError() {
		return Rate{}, fmt.Errorf("coingecko status %d", resp.StatusCode())
	}

	fiat, okFiat := out["tether"][currency]
	usd, okUSD := out["tether"]["usd"]
	if !okFiat || !okUSD || fiat <= 0 || usd <= 0 {
		return Rate{}, fmt.Errorf("coingecko tether response incomplete")
	}
	return Rate{Value: usd / fiat, Source: SourceCoinGecko}, nil
}

// CryptoCacheTTLSeconds exposes the crypto price TTL as the quote validity
// window for API responses.
func (o *Oracle) CryptoCacheTTLSeconds() int {
	return int(o.cfg.CryptoTTL / time.Second)
}
