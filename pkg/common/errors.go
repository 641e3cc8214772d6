package common

import (
	"errors"
	"net/http"
)

// Error kinds surfaced by the ride engine.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAlreadyActive       = errors.New("ride operation already active")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNetworkFailure      = errors.New("network failure")
	ErrMalformedRecord     = errors.New("malformed record")
)

// Fixed user-facing messages.
const (
	MsgStartInsufficientBalance = "Insufficient balance to unlock; top up your account and try again."
	MsgEndInsufficientBalance   = "Insufficient balance to end the ride; top up your account and try again."
	MsgStartFailed              = "Could not start the ride. Please try again."
	MsgEndFailed                = "Could not end the ride. Please try again."
	MsgZoneCheckFailed          = "Could not check zone rules. Tap to retry."
	MsgRideInProgress           = "A ride operation is already in progress. Please wait."
	MsgGeneric                  = "Something went wrong. Please try again."
)

// Stable machine-readable codes, one per kind.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeAlreadyActive       = "ALREADY_ACTIVE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeNetworkFailure      = "NETWORK_FAILURE"
	CodeMalformedRecord     = "MALFORMED_RECORD"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the kind sentinel (or cause) for errors.Is.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, errorCode, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		ErrorCode: errorCode,
		Message:   message,
		Err:       err,
	}
}

// kindError joins a kind sentinel with its underlying cause so that both
// errors.Is(err, kind) and errors.Is(err, cause) hold.
type kindError struct {
	kind  error
	cause error
}

func (k *kindError) Error() string {
	if k.cause == nil {
		return k.kind.Error()
	}
	return k.kind.Error() + ": " + k.cause.Error()
}

func (k *kindError) Unwrap() []error {
	if k.cause == nil {
		return []error{k.kind}
	}
	return []error{k.kind, k.cause}
}

func wrapKind(kind, cause error) error {
	return &kindError{kind: kind, cause: cause}
}

// NewInvalidInputError reports a missing or malformed caller argument.
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeInvalidInput,
		Message:   message,
		Err:       ErrInvalidInput,
	}
}

// NewAlreadyActiveError reports a tripped re-entrancy guard.
func NewAlreadyActiveError(message string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeAlreadyActive,
		Message:   message,
		Err:       ErrAlreadyActive,
	}
}

// NewInsufficientBalanceError reports a business rejection the user can act on.
func NewInsufficientBalanceError(message string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusPaymentRequired,
		ErrorCode: CodeInsufficientBalance,
		Message:   message,
		Err:       wrapKind(ErrInsufficientBalance, cause),
	}
}

// NewNetworkError reports a transient transport or upstream failure.
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusBadGateway,
		ErrorCode: CodeNetworkFailure,
		Message:   message,
		Err:       wrapKind(ErrNetworkFailure, cause),
	}
}

// NewMalformedRecordError reports backend data that could not be normalized.
func NewMalformedRecordError(message string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusUnprocessableEntity,
		ErrorCode: CodeMalformedRecord,
		Message:   message,
		Err:       wrapKind(ErrMalformedRecord, cause),
	}
}

// UserMessage returns the message a UI should display for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return MsgGeneric
}

// IsRetryable reports whether retrying the same call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}
