package verify

import "paygate/internal/model"

// Code identifies a verification failure class. Codes are stable API
// values; human-readable reasons may change.
type Code string

const (
	CodeInvalidInput    Code = "invalid_input"
	CodeRateUnavailable Code = "rate_unavailable"
	CodeRPCError        Code = "rpc_error"
	CodeTxPending       Code = "tx_pending"
	CodeTxFailed        Code = "tx_failed"
	CodeWrongContract   Code = "wrong_contract"
	CodeNoEvent         Code = "no_event"
	CodeWrongMerchant   Code = "wrong_merchant"
	CodeOrderMismatch   Code = "order_mismatch"
	CodeUnderpaid       Code = "underpaid"
	CodeDuplicate       Code = "duplicate_tx_hash"
)

// Failure is a typed verification failure. Retryable failures are infra or
// timing issues the caller may resubmit; the rest are permanent for the
// tx hash.
type Failure struct {
	Code      Code
	Reason    string
	Retryable bool

	// underpayment diagnostics
	Expected string
	Received string
}

func (f *Failure) Error() string { return string(f.Code) + ": " + f.Reason }

// Outcome maps the failure to the persisted record state.
func (f *Failure) Outcome() model.Outcome {
	switch f.Code {
	case CodeTxPending:
		return model.OutcomePending
	case CodeRPCError, CodeTxFailed:
		return model.OutcomeFailed
	case CodeUnderpaid:
		return model.OutcomeUnderpaid
	case CodeDuplicate:
		return model.OutcomeDuplicate
	default:
		return model.OutcomeInvalid
	}
}

func failInvalidInput(reason string) *Failure {
	return &Failure{Code: CodeInvalidInput, Reason: reason}
}
