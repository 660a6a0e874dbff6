package search

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/types"
)

const (
	DefaultGoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

	// googlePageSize はCustom Search APIが1ページで返す最大件数です。
	googlePageSize = 10
	// googleMaxStart は start + num が超えてはならない上限です。
	googleMaxStart = 100
)

// googleDateRestrict は期間指定から dateRestrict パラメータへの対応表です。
var googleDateRestrict = map[string]string{
	types.PeriodDay:   "d1",
	types.PeriodWeek:  "w1",
	types.PeriodMonth: "m1",
	types.PeriodYear:  "y1",
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Google はGoogle Custom Search JSON APIを使用する Searcher です。
type Google struct {
	client   JSONGetter
	apiKey   string
	cxID     string
	endpoint string
	logger   *zap.Logger
}

// GoogleOption は Google の設定を行うための関数型です。
type GoogleOption func(*Google)

// WithGoogleEndpoint はAPIのエンドポイントを差し替えます。
func WithGoogleEndpoint(endpoint string) GoogleOption {
	return func(g *Google) { g.endpoint = endpoint }
}

// WithGoogleLogger はロガーを設定します。
func WithGoogleLogger(logger *zap.Logger) GoogleOption {
	return func(g *Google) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGoogle は Google を生成します。
func NewGoogle(client JSONGetter, apiKey, cxID string, opts ...GoogleOption) *Google {
	g := &Google{
		client:   client,
		apiKey:   apiKey,
		cxID:     cxID,
		endpoint: DefaultGoogleEndpoint,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search は Searcher インターフェースを実装します。
// 1ページ10件のため、NumResults に達するか結果が尽きるまでページを進めます。
func (g *Google) Search(ctx context.Context, keyword string, opts types.SearchOptions) ([]types.SearchResultItem, error) {
	query, err := prepare(keyword, opts)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Google検索を開始します", zap.String("query", query), zap.Int("num_results", opts.NumResults))

	items := make([]types.SearchResultItem, 0, opts.NumResults)
	for start := 1; len(items) < opts.NumResults; start += googlePageSize {
		num := min(googlePageSize, opts.NumResults-len(items))
		if start+num-1 > googleMaxStart {
			g.logger.Warn("Custom Search APIの取得上限に達しました", zap.Int("start", start))
			break
		}

		var resp googleResponse
		if err := g.client.GetJSON(ctx, g.pageURL(query, opts, start, num), &resp); err != nil {
			return nil, eris.Wrapf(err, "Google API呼び出しに失敗しました (start=%d)", start)
		}

		for _, it := range resp.Items {
			if len(items) >= opts.NumResults {
				break
			}
			items = appendItem(items, it.Title, it.Link, it.Snippet)
		}
		if len(resp.Items) < num {
			break
		}
	}

	g.logger.Info("Google検索が完了しました", zap.Int("results", len(items)))
	return items, nil
}

func (g *Google) pageURL(query string, opts types.SearchOptions, start, num int) string {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cxID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(start))
	if opts.Region != "" {
		params.Set("gl", opts.Region)
	}
	if opts.Language != "" {
		params.Set("lr", "lang_"+opts.Language)
	}
	if dr, ok := googleDateRestrict[opts.Period]; ok {
		params.Set("dateRestrict", dr)
	}
	return g.endpoint + "?" + params.Encode()
}
