package rpcprovider

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Classification categorizes an Error for retry logic, generalizing
// teacher's ChainError.ErrorClassification to the five error kinds of
// spec.md §7 (this RPC-transport core never produces the wallet-level
// UserIntervention kind; see SPEC_FULL.md ambient stack notes).
type Classification int

const (
	// Transport errors are network I/O or HTTP non-2xx failures.
	Transport Classification = iota
	// Protocol errors are JSON-RPC {code,message,data} error objects.
	Protocol
	// Validation errors are caller mistakes: invalid address length,
	// unsafe deposit id, bad block range, unknown chain id. Always fatal.
	Validation
	// Quorum errors mean fewer than Q providers agreed. Always fatal,
	// carries the per-provider result/error set for diagnosis.
	Quorum
	// Logical errors are API misuse, e.g. a fill status outside {0,1,2}.
	Logical
)

func (c Classification) String() string {
	switch c {
	case Transport:
		return "Transport"
	case Protocol:
		return "Protocol"
	case Validation:
		return "Validation"
	case Quorum:
		return "Quorum"
	case Logical:
		return "Logical"
	default:
		return "Unknown"
	}
}

// Error is the structured error type every exported rpcprovider operation
// returns. Transport and Protocol errors carry Retryable=true unless a
// fail-fast rule downgraded them; Validation, Quorum and Logical errors are
// always fatal.
type Error struct {
	Code      string
	Message   string
	Class     Classification
	Retryable bool
	Cause     error

	// Quorum-only diagnostic fields (spec.md §7 "structured fields").
	AgreeingProviders   []string
	MismatchingProviders []string
	ErroringProviders   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	if e.Class == Quorum {
		fmt.Fprintf(&b, " [agreeing=%v mismatching=%v erroring=%v]",
			e.AgreeingProviders, e.MismatchingProviders, e.ErroringProviders)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewTransportError wraps a network/HTTP failure, retryable by default.
func NewTransportError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Class: Transport, Retryable: true, Cause: cause}
}

// NewProtocolError wraps a JSON-RPC error object. retryable is supplied by
// the fail-fast classifier (retry.go).
func NewProtocolError(code, message string, retryable bool, cause error) *Error {
	return &Error{Code: code, Message: message, Class: Protocol, Retryable: retryable, Cause: cause}
}

// NewValidationError wraps a caller-input mistake. Always fatal.
func NewValidationError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Class: Validation, Retryable: false, Cause: cause}
}

// NewLogicalError wraps an API-misuse condition. Always fatal.
func NewLogicalError(code, message string) *Error {
	return &Error{Code: code, Message: message, Class: Logical, Retryable: false}
}

// NewQuorumError wraps a quorum-not-met failure, carrying the per-provider
// diagnostic breakdown required by spec.md §4.4.7/§7.
func NewQuorumError(message string, agreeing, mismatching, erroring []string, errs []error) *Error {
	return &Error{
		Code:                 "ERR_QUORUM_NOT_MET",
		Message:              message,
		Class:                Quorum,
		Retryable:            false,
		Cause:                multierr.Combine(errs...),
		AgreeingProviders:    agreeing,
		MismatchingProviders: mismatching,
		ErroringProviders:    erroring,
	}
}

// IsRetryable reports whether err (if it is, or wraps, an *Error) should be
// retried.
func IsRetryable(err error) bool {
	var e *Error
	if asError(err, &e) {
		return e.Retryable
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
