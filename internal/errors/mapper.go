package errors

import (
	"context"
	stderrors "errors"
	"strings"
)

// ErrorMapper classifies a raw error from a provider/transport call into
// the cognitive processor's error taxonomy.
type ErrorMapper interface {
	MapError(err error) *Error
	IsRetryable(err error) bool
	Category(err error) Kind
}

// DefaultErrorMapper implements ErrorMapper by pattern-matching the raw
// error string, mirroring how an SDK-agnostic transport layer has to
// classify errors it did not originate.
type DefaultErrorMapper struct{}

// NewDefaultErrorMapper creates a new error mapper.
func NewDefaultErrorMapper() *DefaultErrorMapper {
	return &DefaultErrorMapper{}
}

// MapError classifies err into one of the provider-facing Kinds (§4.3, §7).
func (m *DefaultErrorMapper) MapError(err error) *Error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.Canceled) {
		return Wrap(KindCanceled, "request canceled", err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, "request deadline exceeded", err)
	}

	var structured *Error
	if stderrors.As(err, &structured) {
		return structured
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "quota"), strings.Contains(errStr, "too many requests"), strings.Contains(errStr, "429"):
		return Wrap(KindRateLimited, "rate limited", err)
	case strings.Contains(errStr, "unauthorized"), strings.Contains(errStr, "forbidden"), strings.Contains(errStr, "invalid api key"), strings.Contains(errStr, "401"), strings.Contains(errStr, "403"):
		return Wrap(KindAuthFailed, "authentication failed", err)
	case strings.Contains(errStr, "invalid request"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "400"):
		return Wrap(KindInvalidRequest, "invalid request", err)
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return Wrap(KindTimeout, "request timeout", err)
	case strings.Contains(errStr, "network"), strings.Contains(errStr, "connection"), strings.Contains(errStr, "unreachable"), strings.Contains(errStr, "no such host"), strings.Contains(errStr, "eof"):
		return Wrap(KindNetwork, "network error", err)
	case strings.Contains(errStr, "malformed json"), strings.Contains(errStr, "invalid json"), strings.Contains(errStr, "unexpected end of json"):
		return Wrap(KindParse, "malformed response", err)
	case strings.Contains(errStr, "server error"), strings.Contains(errStr, "internal server error"), strings.Contains(errStr, "502"), strings.Contains(errStr, "503"), strings.Contains(errStr, "504"), strings.Contains(errStr, "500"):
		return Wrap(KindServerError, "server error", err)
	default:
		return Wrap(KindInternal, "internal error", err)
	}
}

// IsRetryable determines if err should trigger a provider retry (§7).
func (m *DefaultErrorMapper) IsRetryable(err error) bool {
	return IsRetryable(m.MapError(err))
}

// Category reports the taxonomy Kind for err.
func (m *DefaultErrorMapper) Category(err error) Kind {
	mapped := m.MapError(err)
	if mapped == nil {
		return ""
	}
	return mapped.Kind
}
