package extract

import (
	"context"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、HTMLドキュメントの生バイト配列を取得する機能のインターフェースを定義します。
// Extractor は、この抽象に依存します。*httpkit.Client はこのインターフェースを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
