package types

import "errors"

// Error is the structured error type returned across package boundaries.
// Code identifies the failure class; Data carries context the caller needs
// for external remediation (status codes, transaction references).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes.
const (
	// ErrInvalidKey means the identity material is malformed. Fatal, no retry.
	ErrInvalidKey = "INVALID_KEY"

	// ErrAuthInvalid means the server rejected the request signature or
	// timestamp. Distinct from a payment challenge; the caller must fix the
	// clock or key, not pay.
	ErrAuthInvalid = "AUTH_INVALID"

	// ErrUnsupportedNetwork means no offered settlement option overlaps the
	// configured network preference.
	ErrUnsupportedNetwork = "UNSUPPORTED_NETWORK"

	// ErrRPCUnavailable means the settlement RPC endpoint could not be
	// reached or answered with an error before broadcast.
	ErrRPCUnavailable = "RPC_UNAVAILABLE"

	// ErrTransactionReverted means the settlement transaction was mined but
	// reported failure.
	ErrTransactionReverted = "TRANSACTION_REVERTED"

	// ErrConfirmationTimeout means the transaction was broadcast but no
	// receipt was observed before the deadline. Funds may have moved; Data
	// carries the transaction reference for external reconciliation. Never
	// retried automatically.
	ErrConfirmationTimeout = "CONFIRMATION_TIMEOUT"

	// ErrPaymentFailed means on-chain settlement failed before or during
	// broadcast. Fatal for this call; a new logical call is safe.
	ErrPaymentFailed = "PAYMENT_FAILED"

	// ErrPaymentRejected means the server answered 402 again after a proof
	// was attached. Terminal; no second settlement is attempted.
	ErrPaymentRejected = "PAYMENT_REJECTED"

	// ErrServerError covers any other non-2xx status. Data carries the status
	// code and response body.
	ErrServerError = "SERVER_ERROR"

	// ErrInvalidChallenge means a 402 body could not be decoded into a
	// payment challenge.
	ErrInvalidChallenge = "INVALID_CHALLENGE"

	// ErrConfig means client configuration is incomplete or inconsistent.
	ErrConfig = "CONFIG_ERROR"
)

// NewError builds an *Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWithData builds an *Error carrying remediation context.
func NewErrorWithData(code, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// CodeOf extracts the error code from err, unwrapping as needed. Returns ""
// for nil or foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
