package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// リトライ関連の定数
	DefaultMaxRetries = 3 // 最大リトライ回数

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Logger はリトライのたびに警告を記録します。nil の場合は記録しません。
	Logger *zap.Logger
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// newBackOffPolicy は Config から最大回数とコンテキストを適用した指数バックオフを生成します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	// 全体の経過時間による打ち切りは行わず、回数とコンテキストのみで制御する
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do は指数バックオフとカスタムエラー判定を使用して操作をリトライします。
// shouldRetryFn が false を返したエラー、または backoff.Permanent でラップされたエラーは即座に返します。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		lastErr   error
		permanent bool
	)

	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		var pErr *backoff.PermanentError
		if errors.As(err, &pErr) || !shouldRetryFn(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("一時的なエラーが発生したためリトライします",
			zap.String("operation", operationName),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(retryableOp, newBackOffPolicy(ctx, cfg), notify)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return eris.Wrapf(ctxErr, "%sに失敗しました: コンテキストタイムアウト/キャンセル", operationName)
	}
	if permanent {
		return eris.Wrapf(lastErr, "%sに失敗しました: リトライ不可能なエラー", operationName)
	}
	return eris.Wrapf(lastErr, "%sに失敗しました: 最大リトライ回数 (%d回) に到達", operationName, cfg.MaxRetries)
}
