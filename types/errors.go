package types

import "fmt"

// ErrorCode discriminates the failure stages of the payment pipeline.
type ErrorCode string

const (
	// ErrMalformedEnvelope: the X-Payment header could not be decoded into
	// an envelope carrying transaction bytes.
	ErrMalformedEnvelope ErrorCode = "MALFORMED_ENVELOPE"

	// ErrMalformedTransaction: the envelope's transaction bytes are not a
	// parseable settlement transaction.
	ErrMalformedTransaction ErrorCode = "MALFORMED_TRANSACTION"

	// ErrInsufficientOrInvalidTransfer: no instruction in the transaction
	// moves enough of the configured asset to the configured recipient.
	ErrInsufficientOrInvalidTransfer ErrorCode = "INSUFFICIENT_OR_INVALID_TRANSFER"

	// ErrSettlementRejected: the settlement network refused the transaction.
	ErrSettlementRejected ErrorCode = "SETTLEMENT_REJECTED"

	// ErrSettlementTimeout: the transaction was broadcast but did not reach
	// the configured commitment in time.
	ErrSettlementTimeout ErrorCode = "SETTLEMENT_TIMEOUT"

	// ErrUpstreamUnavailable: payment settled but the upstream relay failed.
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
)

// PaymentError is the typed error carried through the payment pipeline.
// Exactly one ErrorCode maps to each externally observable outcome.
type PaymentError struct {
	Code    ErrorCode
	Message string
	Err     error

	// Signature is set for post-settlement failures so the broadcast
	// identifier is never hidden from the caller.
	Signature string
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// PreSettlement reports whether the failure happened before any value moved.
// Pre-settlement failures are fully recoverable and map to HTTP 402.
func (e *PaymentError) PreSettlement() bool {
	return e.Code != ErrUpstreamUnavailable
}

// NewPaymentError builds a PaymentError, optionally wrapping a cause.
func NewPaymentError(code ErrorCode, message string, cause error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Err: cause}
}
