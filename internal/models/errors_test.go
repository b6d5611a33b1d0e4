package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryableKinds(t *testing.T) {
	retryable := []ErrorKind{ErrKindRateLimited, ErrKindServiceUnavailable, ErrKindTimeout}
	for _, k := range retryable {
		assert.True(t, k.Retryable(), "%s must be retryable", k)
	}

	terminal := []ErrorKind{
		ErrKindContentPolicy, ErrKindInvalidInput, ErrKindAuthFailed,
		ErrKindNotFound, ErrKindPermissionDenied, ErrKindDiskSpace,
		ErrKindPathTooLong, ErrKindCancelled, ErrKindUnreachable,
		ErrKindTooLarge, ErrKindMalformedEncoding,
	}
	for _, k := range terminal {
		assert.False(t, k.Retryable(), "%s must be terminal", k)
	}
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	base := NewEditError(ErrKindContentPolicy, "blocked")
	wrapped := fmt.Errorf("edit failed: %w", base)
	assert.Equal(t, ErrKindContentPolicy, KindOf(wrapped))
}

func TestKindOfUnknownErrorStaysRetryable(t *testing.T) {
	assert.Equal(t, ErrKindServiceUnavailable, KindOf(errors.New("connection reset")))
}

func TestReferenceDisplayTruncatesInlineData(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'A'
	}
	ref := ImageReference{Kind: RefInlineData, Value: string(long)}
	display := ref.Display()
	assert.Less(t, len(display), 60)
	assert.Contains(t, display, "...")

	url := ImageReference{Kind: RefRemoteURL, Value: "https://example.com/cat.png"}
	assert.Equal(t, "remote_url:https://example.com/cat.png", url.Display())
}
