package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota": ErrorQuota,
		"429 rate":           ErrorRate,
		"context too long":   ErrorContext,
		"timeout":            ErrorTransient,
		"bad request":        ErrorPermanent,
		"rate limit reached": ErrorRate,
		"generate error 400": ErrorPermanent,
	}
	for msg, want := range cases {
		require.Equal(t, want, ClassifyError(errors.New(msg)), msg)
	}
}

func TestClassifyErrorSentinels(t *testing.T) {
	require.Equal(t, ErrorType(""), ClassifyError(nil))
	require.Equal(t, ErrorUnavailable, ClassifyError(fmt.Errorf("groq: %w", ErrUnavailable)))
	require.Equal(t, ErrorCanceled, ClassifyError(fmt.Errorf("call: %w", context.Canceled)))
	require.Equal(t, ErrorTransient, ClassifyError(fmt.Errorf("call: %w", context.DeadlineExceeded)))
}
