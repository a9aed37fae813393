package providers

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable means no backend is configured or the selected one lacks
// credentials.
var ErrUnavailable = errors.New("llm provider unavailable")

type ErrorType string

const (
	ErrorQuota       ErrorType = "quota"
	ErrorRate        ErrorType = "rate"
	ErrorTransient   ErrorType = "transient"
	ErrorPermanent   ErrorType = "permanent"
	ErrorContext     ErrorType = "context"
	ErrorUnavailable ErrorType = "unavailable"
	ErrorCanceled    ErrorType = "canceled"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnavailable):
		return ErrorUnavailable
	case errors.Is(err, context.Canceled):
		return ErrorCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTransient
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "429"), strings.Contains(e, "too many requests"):
		return ErrorRate
	case strings.Contains(e, "context"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"), strings.Contains(e, " 503"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
