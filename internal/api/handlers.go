package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paygate/internal/config"
	"paygate/internal/model"
	"paygate/internal/pricing"
	"paygate/internal/verify"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePrice(c *gin.Context) {
	currency := normalizeCurrency(c.Query("currency"))

	rate, err := s.oracle.EthPrice(c.Request.Context(), currency)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"price":    rate.Value,
		"currency": strings.ToUpper(currency),
		"source":   rate.Source,
	})
}

func (s *Server) handleConvert(c *gin.Context) {
	amount, currency, ok := s.bindConversion(c)
	if !ok {
		return
	}

	quote, err := s.service.ConvertNative(c.Request.Context(), amount, currency)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"fiat_amount":    quote.FiatAmount,
		"fiat_currency":  strings.ToUpper(quote.FiatCurrency),
		"eth_price":      quote.Rate,
		"rate_source":    quote.RateSource,
		"eth_amount":     quote.CryptoAmount,
		"eth_amount_raw": quote.RawAmount,
		"wei_amount":     quote.SmallestUnit,
		"margin_percent": quote.MarginPercent,
		"timestamp":      quote.Timestamp,
		"valid_for":      quote.ValidFor,
	})
}

func (s *Server) handleConvertUSDC(c *gin.Context) {
	amount, currency, ok := s.bindConversion(c)
	if !ok {
		return
	}

	quote, err := s.service.ConvertToken(c.Request.Context(), amount, currency)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"fiat_amount":        quote.FiatAmount,
		"fiat_currency":      strings.ToUpper(quote.FiatCurrency),
		"exchange_rate":      quote.Rate,
		"rate_source":        quote.RateSource,
		"usdc_amount":        quote.CryptoAmount,
		"usdc_amount_raw":    quote.RawAmount,
		"usdc_smallest_unit": quote.SmallestUnit,
		"usdc_decimals":      quote.Decimals,
		"margin_percent":     quote.MarginPercent,
		"timestamp":          quote.Timestamp,
		"valid_for":          quote.ValidFor,
	})
}

func (s *Server) handleNetworks(c *gin.Context) {
	available := config.AvailableNetworks(s.cfg.Networks, s.cfg.NetworkMode)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"mode":     s.cfg.NetworkMode,
		"default":  s.cfg.DefaultNetwork,
		"networks": available,
	})
}

type verifyRequest struct {
	TxHash         string `json:"tx_hash" binding:"required"`
	OrderID        int64  `json:"order_id" binding:"required"`
	Network        string `json:"network"`
	ExpectedAmount string `json:"expected_amount"`
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := s.service.VerifyPayment(c.Request.Context(), verify.Request{
		TxHash:         req.TxHash,
		OrderID:        req.OrderID,
		Network:        req.Network,
		ExpectedAmount: req.ExpectedAmount,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"verified":      true,
		"tx_hash":       result.TxHash,
		"order_id":      result.OrderID,
		"network":       result.Network,
		"payment_type":  result.PaymentType,
		"amount":        result.Amount,
		"merchant":      result.Merchant,
		"payer":         result.Payer,
		"token_address": result.TokenAddress,
		"block_number":  result.BlockNumber,
		"explorer_url":  result.ExplorerURL,
	})
}

// bindConversion validates the shared amount/currency query parameters.
func (s *Server) bindConversion(c *gin.Context) (decimal.Decimal, string, bool) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "amount must be a positive number"})
		return decimal.Decimal{}, "", false
	}
	return amount, normalizeCurrency(c.Query("currency")), true
}

// normalizeCurrency applies the allow-list with the original's EUR default.
func normalizeCurrency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if !pricing.IsSupportedCurrency(currency) {
		return "eur"
	}
	return currency
}

// writeError maps the failure taxonomy to HTTP. Internal details (RPC
// endpoints, driver errors) never reach the response body.
func (s *Server) writeError(c *gin.Context, err error) {
	var failure *verify.Failure
	if errors.As(err, &failure) {
		status := http.StatusUnprocessableEntity
		body := gin.H{"success": false, "error": failure.Reason, "code": failure.Code}

		switch failure.Code {
		case verify.CodeInvalidInput:
			status = http.StatusBadRequest
		case verify.CodeDuplicate:
			status = http.StatusConflict
		case verify.CodeTxPending:
			status = http.StatusOK
			body["status"] = string(model.OutcomePending)
		case verify.CodeRPCError:
			status = http.StatusBadGateway
		case verify.CodeUnderpaid:
			body["expected"] = failure.Expected
			body["received"] = failure.Received
		}

		c.JSON(status, body)
		return
	}

	switch {
	case errors.Is(err, pricing.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, pricing.ErrUnsupportedCurrency):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, pricing.ErrRateUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "exchange rate temporarily unavailable, try again"})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}
