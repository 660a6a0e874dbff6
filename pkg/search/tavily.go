package search

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/types"
)

const (
	DefaultTavilyEndpoint = "https://api.tavily.com/search"

	// tavilyMaxResults はTavily APIが1回に返す最大件数です。
	tavilyMaxResults = 20
)

// tavilyTimeRanges は期間指定からTavilyの time_range への対応表です。
var tavilyTimeRanges = map[string]string{
	types.PeriodDay:   "day",
	types.PeriodWeek:  "week",
	types.PeriodMonth: "month",
	types.PeriodYear:  "year",
}

type tavilyRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results"`
	SearchDepth       string   `json:"search_depth"`
	TimeRange         string   `json:"time_range,omitempty"`
	Country           string   `json:"country,omitempty"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Tavily はTavily Search APIを使用する Searcher です。
type Tavily struct {
	client   JSONPoster
	apiKey   string
	endpoint string
	logger   *zap.Logger
}

// TavilyOption は Tavily の設定を行うための関数型です。
type TavilyOption func(*Tavily)

// WithTavilyEndpoint はAPIのエンドポイントを差し替えます。
func WithTavilyEndpoint(endpoint string) TavilyOption {
	return func(t *Tavily) { t.endpoint = endpoint }
}

// WithTavilyLogger はロガーを設定します。
func WithTavilyLogger(logger *zap.Logger) TavilyOption {
	return func(t *Tavily) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTavily は Tavily を生成します。
func NewTavily(client JSONPoster, apiKey string, opts ...TavilyOption) *Tavily {
	t := &Tavily{
		client:   client,
		apiKey:   apiKey,
		endpoint: DefaultTavilyEndpoint,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Search は Searcher インターフェースを実装します。
func (t *Tavily) Search(ctx context.Context, keyword string, opts types.SearchOptions) ([]types.SearchResultItem, error) {
	query, err := prepare(keyword, opts)
	if err != nil {
		return nil, err
	}

	maxResults := opts.NumResults
	if maxResults > tavilyMaxResults {
		t.logger.Warn("Tavily APIの上限を超えるため件数を切り詰めます",
			zap.Int("requested", maxResults), zap.Int("max", tavilyMaxResults))
		maxResults = tavilyMaxResults
	}

	req := tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query,
		MaxResults:     maxResults,
		SearchDepth:    "basic",
		TimeRange:      tavilyTimeRanges[opts.Period],
		IncludeDomains: []string{},
		ExcludeDomains: []string{},
	}
	if opts.Region == types.DefaultRegion {
		req.Country = "japan"
	}

	t.logger.Info("Tavily検索を開始します", zap.String("query", query), zap.Int("max_results", maxResults))
	body, err := t.client.PostJSON(ctx, t.endpoint, req)
	if err != nil {
		return nil, eris.Wrap(err, "Tavily API呼び出しに失敗しました")
	}

	var resp tavilyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "Tavily APIのレスポンス解析に失敗しました")
	}

	items := make([]types.SearchResultItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(items) >= opts.NumResults {
			break
		}
		items = appendItem(items, r.Title, r.URL, r.Content)
	}

	t.logger.Info("Tavily検索が完了しました", zap.Int("results", len(items)))
	return items, nil
}
