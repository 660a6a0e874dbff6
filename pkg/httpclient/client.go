package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 30 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// maxErrorBodyLength はエラーメッセージに含めるボディの最大バイト数です。
	maxErrorBodyLength = 1024

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// ErrBodyTooLarge はレスポンスボディが MaxBodySize を超えた場合に返されます。
var ErrBodyTooLarge = eris.New("レスポンスボディが最大サイズを超えました")

// NonRetryableHTTPError はHTTP 4xx系のステータスコードエラーを示すカスタムエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *NonRetryableHTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディなし", e.StatusCode)
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength] + "..."
	}
	return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディ: %s", e.StatusCode, body)
}

// Doer は1回のHTTPリクエストを実行するインターフェースです。*http.Client が満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client はHTTPリクエストと指数バックオフを用いたリトライロジックを管理します。
// 検索APIへのアクセスに使用します。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
	headers     http.Header
	logger      *zap.Logger
}

// ClientOption は Client の設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はリクエストを実行する Doer を差し替えます。
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

// WithHeader はすべてのリクエストに付与するヘッダーを追加します。
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger はロガーを設定します。リトライ時の警告にも使用されます。
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New は、新しいClientを生成します。
func New(timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retry.DefaultConfig(),
		headers:     make(http.Header),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retryConfig.Logger = c.logger
	return c
}

// WithMaxRetries は最大リトライ回数を設定します。
func (c *Client) WithMaxRetries(max uint64) *Client {
	c.retryConfig.MaxRetries = max
	return c
}

// WithRetryConfig はリトライ設定をまとめて差し替えます。ロガーは維持されます。
func (c *Client) WithRetryConfig(cfg retry.Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = c.retryConfig.Logger
	}
	c.retryConfig = cfg
	return c
}

// addCommonHeaders は共通のHTTPヘッダーを設定します。
func (c *Client) addCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

// FetchBytes はURLにGETリクエストを送り、レスポンスボディを返します。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	op := func() error {
		var fetchErr error
		body, fetchErr = c.do(ctx, http.MethodGet, url, nil)
		return fetchErr
	}

	if err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("URL(%s)のフェッチ", url), op, c.isHTTPRetryableError); err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON はURLにGETリクエストを送り、JSONレスポンスを v にデコードします。
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.FetchBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "JSONレスポンスの解析に失敗しました (URL: %s)", url)
	}
	return nil
}

// PostJSON は指定されたデータをJSONとしてPOSTし、レスポンスボディをバイト配列として返します。
func (c *Client) PostJSON(ctx context.Context, url string, data any) ([]byte, error) {
	requestBody, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "JSONデータのシリアライズに失敗しました")
	}

	var body []byte
	op := func() error {
		var postErr error
		body, postErr = c.do(ctx, http.MethodPost, url, requestBody)
		return postErr
	}

	if err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("URL(%s)へのPOSTリクエスト", url), op, c.isHTTPRetryableError); err != nil {
		return nil, err
	}
	return body, nil
}

// do は実際の一度のHTTPリクエストを実行し、レスポンスボディを返します。
func (c *Client) do(ctx context.Context, method, url string, requestBody []byte) ([]byte, error) {
	var reader io.Reader
	if requestBody != nil {
		reader = bytes.NewReader(requestBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, eris.Wrapf(err, "%sリクエスト作成に失敗しました", method)
	}
	c.addCommonHeaders(req)
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "HTTP %sリクエストに失敗しました (ネットワーク/接続エラー)", method)
	}
	defer resp.Body.Close()

	if err := checkResponseForRetry(resp); err != nil {
		return nil, err
	}
	return readBody(resp)
}

// readBody はボディを MaxBodySize まで読み込みます。超過した場合は ErrBodyTooLarge を返します。
func readBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, eris.Wrap(err, "レスポンスボディの読み込みに失敗しました")
	}
	if int64(len(body)) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// checkResponseForRetry はHTTPレスポンスのステータスコードを評価し、リトライすべきエラーか、非リトライ対象のエラーかを返します。
// レスポンスボディを閉じるのは呼び出し元の責務です。
func checkResponseForRetry(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))

	// 5xx 系と 429: リトライ対象
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		if readErr != nil {
			return eris.Wrapf(readErr, "HTTPステータスコードエラー (リトライ対象, ボディ読み込み失敗): %d", resp.StatusCode)
		}
		return eris.Errorf("HTTPステータスコードエラー (リトライ対象): %d, 詳細: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	// 4xx 系: 非リトライ対象のクライアントエラー
	if readErr != nil {
		return &NonRetryableHTTPError{StatusCode: resp.StatusCode}
	}
	return &NonRetryableHTTPError{StatusCode: resp.StatusCode, Body: bodyBytes}
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var nonRetryable *NonRetryableHTTPError
	return errors.As(err, &nonRetryable)
}

// isHTTPRetryableError はエラーがHTTPリトライ対象かどうかを判定します。
// この関数は retry.ShouldRetryFunc 型のシグネチャを満たします。
func (c *Client) isHTTPRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsNonRetryableError(err) || errors.Is(err, ErrBodyTooLarge) {
		return false
	}
	// 5xxエラーやネットワークエラーはリトライ対象 (コンテキストの終了は retry.Do が検知する)
	return true
}
