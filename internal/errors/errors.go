// Package errors defines the cognitive processor's error taxonomy.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the stable category carried by every boundary-facing error, as
// required by the result contract (error{kind, message, stage?, step?}).
type Kind string

const (
	KindCanceled          Kind = "Canceled"
	KindTimeout           Kind = "Timeout"
	KindNetwork           Kind = "Network"
	KindRateLimited       Kind = "RateLimited"
	KindAuthFailed        Kind = "AuthFailed"
	KindInvalidRequest    Kind = "InvalidRequest"
	KindServerError       Kind = "ServerError"
	KindParse             Kind = "Parse"
	KindAllProvidersFailed Kind = "AllProvidersFailed"
	KindPipelineFailed    Kind = "PipelineFailed"
	KindBudgetExceeded    Kind = "BudgetExceeded"
	KindInternal          Kind = "Internal"
)

// Sentinel errors, one per Kind, so callers can still use errors.Is.
var (
	ErrCanceled           = errors.New("canceled")
	ErrTimeout            = errors.New("timeout")
	ErrNetwork            = errors.New("network error")
	ErrRateLimited        = errors.New("rate limited")
	ErrAuthFailed         = errors.New("auth failed")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrServerError        = errors.New("server error")
	ErrParse              = errors.New("parse error")
	ErrAllProvidersFailed = errors.New("all providers failed")
	ErrPipelineFailed     = errors.New("pipeline failed")
	ErrBudgetExceeded     = errors.New("budget exceeded")
	ErrInternal           = errors.New("internal error")

	// Conflict/Transient back IsRetryable's transient-category check; no
	// package in this module raises them itself.
	ErrConflict  = errors.New("conflict")
	ErrTransient = errors.New("transient error")
)

var kindSentinel = map[Kind]error{
	KindCanceled:           ErrCanceled,
	KindTimeout:            ErrTimeout,
	KindNetwork:            ErrNetwork,
	KindRateLimited:        ErrRateLimited,
	KindAuthFailed:         ErrAuthFailed,
	KindInvalidRequest:     ErrInvalidRequest,
	KindServerError:        ErrServerError,
	KindParse:              ErrParse,
	KindAllProvidersFailed: ErrAllProvidersFailed,
	KindPipelineFailed:     ErrPipelineFailed,
	KindBudgetExceeded:     ErrBudgetExceeded,
	KindInternal:           ErrInternal,
}

// Error is the structured, user-visible failure shape from spec §7: each
// result object carries either a payload or this error.
type Error struct {
	Kind    Kind
	Message string
	Stage   int  // 1-based pipeline stage index, 0 if not applicable
	Step    int  // 1-based engine step index, 0 if not applicable
	Causes  []error
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if sentinel, ok := kindSentinel[e.Kind]; ok {
		return sentinel
	}
	return e.cause
}

// New builds a structured Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches kind and message to an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithStage annotates a pipeline-stage failure (1-based).
func (e *Error) WithStage(stage int) *Error {
	e.Stage = stage
	return e
}

// WithStep annotates an engine-step failure (1-based).
func (e *Error) WithStep(step int) *Error {
	e.Step = step
	return e
}

// AllProvidersFailed wraps the accumulated per-provider causes, returned
// only once the Fallback Provider's registry is exhausted (§4.4, §7).
func AllProvidersFailed(causes []error) *Error {
	return &Error{Kind: KindAllProvidersFailed, Message: "all providers failed", Causes: causes}
}

// PipelineFailed wraps a stage's terminal failure (§4.7, §7).
func PipelineFailed(stage int, cause error) *Error {
	return (&Error{Kind: KindPipelineFailed, Message: fmt.Sprintf("stage %d failed", stage), cause: cause}).WithStage(stage)
}

// IsRetryable reports whether err belongs to one of the transient
// categories the provider/fallback layer retries (§4.3, §7).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCanceled) {
		return false
	}
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrConflict)
}

// KindOf extracts the structured Kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Kind
	}
	for kind, sentinel := range kindSentinel {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
