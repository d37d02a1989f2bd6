package transfer

import "fmt"

// Code is a stable, machine-readable transfer error code. Codes map
// onto the failure taxonomy: configuration errors are fatal and need
// an operator, precondition errors are safe to retry once the
// condition changes, submission errors are safe to retry as a new
// attempt, execution errors require re-validation, and a confirmation
// timeout leaves the record pending for reconciliation.
type Code string

const (
	CodeRelayerNotConfigured       Code = "relayer_not_configured"
	CodeUnsupportedNetwork         Code = "unsupported_network"
	CodeInvalidAmount              Code = "invalid_amount"
	CodeInvalidDestination         Code = "invalid_destination"
	CodeInsufficientUserBalance    Code = "insufficient_user_balance"
	CodeInsufficientRelayerBalance Code = "insufficient_relayer_balance"
	CodeKeyAccessFailed            Code = "key_access_failed"
	CodeOracleUnavailable          Code = "oracle_unavailable"
	CodeSubmissionFailed           Code = "submission_failed"
	CodeExecutionFailed            Code = "execution_failed"
	CodeConfirmationTimeout        Code = "confirmation_timeout"
)

// Error is a transfer failure with a stable code and a human-readable
// reason suitable for the ledger's failure_reason field.
type Error struct {
	Code   Code
	Reason string
	// ObservedBalance carries the on-chain balance seen during an
	// insufficient-balance check, for diagnostics.
	ObservedBalance string
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may be retried as a new
// attempt without re-validating chain state.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeOracleUnavailable, CodeSubmissionFailed:
		return true
	}
	return false
}

// Fatal reports whether the failure is an operational misconfiguration
// that must never be retried automatically.
func (e *Error) Fatal() bool {
	switch e.Code {
	case CodeRelayerNotConfigured, CodeInsufficientRelayerBalance:
		return true
	}
	return false
}

func newError(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

func wrapError(code Code, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
