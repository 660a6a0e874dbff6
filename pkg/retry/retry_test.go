package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, uint64(DefaultMaxRetries), cfg.MaxRetries, "MaxRetries should match DefaultMaxRetries constant.")
	require.Equal(t, InitialBackoffInterval, cfg.InitialInterval, "InitialInterval should match constant.")
	require.Equal(t, MaxBackoffInterval, cfg.MaxInterval, "MaxInterval should match constant.")
	require.Nil(t, cfg.Logger)
}

func TestNewBackOffPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxRetries:      2,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}

	bo := newBackOffPolicy(ctx, cfg)
	require.NotNil(t, bo)

	// 最大回数を超えると Stop を返す
	require.NotEqual(t, backoff.Stop, bo.NextBackOff())
	require.NotEqual(t, backoff.Stop, bo.NextBackOff())
	require.Equal(t, backoff.Stop, bo.NextBackOff())
}

func TestDo(t *testing.T) {
	// テスト用の高速な設定
	testCfg := Config{MaxRetries: 3, InitialInterval: 1 * time.Millisecond, MaxInterval: 10 * time.Millisecond, Logger: zap.NewNop()}
	opName := "test_operation"

	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name          string
		ctx           context.Context
		operation     Operation
		shouldRetry   ShouldRetryFunc
		expectedError string
		maxAttempts   int
	}{
		{
			name:        "successful operation",
			ctx:         context.Background(),
			operation:   func() error { return nil },
			shouldRetry: func(err error) bool { return false },
			maxAttempts: 1,
		},
		{
			name:        "retryable error and success within max retries",
			ctx:         context.Background(),
			operation:   failTimes(2, "retryable error"),
			shouldRetry: func(err error) bool { return err.Error() == "retryable error" },
			maxAttempts: 3,
		},
		{
			name:          "non-retryable error",
			ctx:           context.Background(),
			operation:     func() error { return errors.New("bad request") },
			shouldRetry:   func(err error) bool { return false },
			expectedError: "test_operationに失敗しました: リトライ不可能なエラー",
			maxAttempts:   1,
		},
		{
			name:          "permanent error",
			ctx:           context.Background(),
			operation:     func() error { return backoff.Permanent(errors.New("permanent error")) },
			shouldRetry:   func(err error) bool { return true },
			expectedError: "permanent error",
			maxAttempts:   1,
		},
		{
			name:          "context canceled",
			ctx:           canceledCtx,
			operation:     func() error { return errors.New("some error") },
			shouldRetry:   func(err error) bool { return true },
			expectedError: "コンテキストタイムアウト/キャンセル",
			maxAttempts:   1,
		},
		{
			name:          "max retries exceeded",
			ctx:           context.Background(),
			operation:     func() error { return errors.New("retryable error") },
			shouldRetry:   func(err error) bool { return true },
			expectedError: "最大リトライ回数 (3回) に到達",
			maxAttempts:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			op := func() error {
				attempts++
				return tt.operation()
			}

			err := Do(tt.ctx, testCfg, opName, op, tt.shouldRetry)

			if tt.expectedError != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
			}
			require.LessOrEqual(t, attempts, tt.maxAttempts)
		})
	}
}

func TestDo_ContextErrorIsWrapped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, DefaultConfig(), "op", func() error { return errors.New("x") }, func(error) bool { return true })
	require.True(t, errors.Is(err, context.Canceled))
}

// failTimes は n 回失敗した後に成功する Operation を返します。
func failTimes(n int, msg string) Operation {
	attempt := 0
	return func() error {
		attempt++
		if attempt <= n {
			return errors.New(msg)
		}
		return nil
	}
}
