package search

import (
	"bytes"
	"context"
	"net/url"
	"strconv"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/types"
)

// DefaultFeedEndpoint はRSS形式で検索結果を返すエンドポイントです。
const DefaultFeedEndpoint = "https://www.bing.com/search"

// Feed はRSS形式の検索結果を gofeed で解析する Searcher です。APIキーを必要としません。
// 期間指定には対応していません。
type Feed struct {
	fetcher  Fetcher
	endpoint string
	logger   *zap.Logger
}

// FeedOption は Feed の設定を行うための関数型です。
type FeedOption func(*Feed)

// WithFeedEndpoint はエンドポイントを差し替えます。
func WithFeedEndpoint(endpoint string) FeedOption {
	return func(f *Feed) { f.endpoint = endpoint }
}

// WithFeedLogger はロガーを設定します。
func WithFeedLogger(logger *zap.Logger) FeedOption {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFeed は Feed を生成します。
func NewFeed(fetcher Fetcher, opts ...FeedOption) *Feed {
	f := &Feed{
		fetcher:  fetcher,
		endpoint: DefaultFeedEndpoint,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Search は Searcher インターフェースを実装します。
func (f *Feed) Search(ctx context.Context, keyword string, opts types.SearchOptions) ([]types.SearchResultItem, error) {
	query, err := prepare(keyword, opts)
	if err != nil {
		return nil, err
	}
	if opts.Period != types.PeriodAll {
		f.logger.Debug("RSS検索は期間指定に対応していないため無視します", zap.String("period", opts.Period))
	}

	feed, err := f.fetchAndParse(ctx, f.feedURL(query, opts))
	if err != nil {
		return nil, err
	}

	items := make([]types.SearchResultItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if len(items) >= opts.NumResults {
			break
		}
		items = appendItem(items, it.Title, it.Link, it.Description)
	}

	f.logger.Info("RSS検索が完了しました", zap.String("query", query), zap.Int("results", len(items)))
	return items, nil
}

// fetchAndParse は指定されたURLからフィードを取得し、パースします。
func (f *Feed) fetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := f.fetcher.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, eris.Wrapf(err, "フィードの取得失敗 (URL: %s)", feedURL)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "RSSフィードのパース失敗 (URL: %s)", feedURL)
	}
	return feed, nil
}

func (f *Feed) feedURL(query string, opts types.SearchOptions) string {
	params := url.Values{}
	params.Set("format", "rss")
	params.Set("q", query)
	params.Set("count", strconv.Itoa(opts.NumResults))
	if opts.Region != "" {
		params.Set("cc", opts.Region)
	}
	if opts.Language != "" {
		params.Set("setlang", opts.Language)
	}
	return f.endpoint + "?" + params.Encode()
}
