package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestWithRetry(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		failures  int
		attempts  int
		permanent bool
		wantCalls int
		wantErr   error
	}{
		{name: "succeeds first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "succeeds after retries", failures: 2, attempts: 3, wantCalls: 3},
		{name: "exhausts attempts", failures: 5, attempts: 3, wantCalls: 3, wantErr: ErrMaxRetries},
		{name: "permanent error stops", failures: 5, attempts: 3, permanent: true, wantCalls: 1, wantErr: errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return Permanent(errBoom)
					}
					return errBoom
				}
				return nil
			}, fastRetry(tt.attempts))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error { return errors.New("transient") }, RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Second,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not train", ErrEmptyDataset)
	assert.Equal(t, "could not train: dataset has no usable rows", err.Error())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	bare := NewUserError("just a message", nil)
	assert.Equal(t, "just a message", bare.Error())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewHandler(nil, lvl, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
