// Package search は、検索バックエンド (Tavily / Google Custom Search / RSS) の統一インターフェースを提供します。
package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/types"
)

// Provider は検索バックエンドの種類です。
const (
	ProviderTavily = "tavily"
	ProviderGoogle = "google"
	ProviderFeed   = "feed"
)

// snippetLength はスニペットとして保持する最大文字数です。
const snippetLength = 200

var (
	// ErrEmptyKeyword は検索キーワードが空の場合に返されます。
	ErrEmptyKeyword = eris.New("検索キーワードが空です")
	// ErrUnknownProvider は未対応のプロバイダーが指定された場合に返されます。
	ErrUnknownProvider = eris.New("未対応の検索プロバイダーです")
	// ErrMissingCredentials はAPIキーなどの認証情報が不足している場合に返されます。
	ErrMissingCredentials = eris.New("検索APIの認証情報が設定されていません")
)

// Searcher は検索を実行するインターフェースです。
// 結果の Rank は1始まりで発見順に振られ、件数は NumResults 以下に切り詰められます。
type Searcher interface {
	Search(ctx context.Context, keyword string, opts types.SearchOptions) ([]types.SearchResultItem, error)
}

// JSONPoster はJSONをPOSTするHTTPクライアントです。*httpclient.Client が満たします。
type JSONPoster interface {
	PostJSON(ctx context.Context, url string, data any) ([]byte, error)
}

// JSONGetter はGETしたJSONをデコードするHTTPクライアントです。*httpclient.Client が満たします。
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Fetcher はURLのレスポンスボディを取得するクライアントです。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Credentials は検索APIの認証情報です。
type Credentials struct {
	TavilyAPIKey string
	GoogleAPIKey string
	GoogleCXID   string
}

// HTTPClient は全バックエンドが必要とするHTTP操作をまとめたものです。
type HTTPClient interface {
	JSONPoster
	JSONGetter
	Fetcher
}

// NewSearcher はプロバイダー名から Searcher を生成します。
func NewSearcher(provider string, creds Credentials, client HTTPClient, logger *zap.Logger) (Searcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		return nil, eris.New("search.NewSearcher: HTTPClient cannot be nil")
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderTavily:
		if creds.TavilyAPIKey == "" {
			return nil, eris.Wrap(ErrMissingCredentials, "TAVILY_API_KEY")
		}
		return NewTavily(client, creds.TavilyAPIKey, WithTavilyLogger(logger)), nil
	case ProviderGoogle:
		if creds.GoogleAPIKey == "" || creds.GoogleCXID == "" {
			return nil, eris.Wrap(ErrMissingCredentials, "GOOGLE_API_KEY / GOOGLE_CX_ID")
		}
		return NewGoogle(client, creds.GoogleAPIKey, creds.GoogleCXID, WithGoogleLogger(logger)), nil
	case ProviderFeed:
		return NewFeed(client, WithFeedLogger(logger)), nil
	default:
		return nil, eris.Wrapf(ErrUnknownProvider, "%q", provider)
	}
}

// BuildQuery は検索キーワードにサイト指定と除外キーワードを付与したクエリを組み立てます。
func BuildQuery(keyword string, opts types.SearchOptions) string {
	parts := []string{strings.TrimSpace(keyword)}
	if site := strings.TrimSpace(opts.Site); site != "" {
		parts = append(parts, "site:"+site)
	}
	for _, ex := range opts.ExcludeKeywords {
		if ex = strings.TrimSpace(ex); ex != "" {
			parts = append(parts, "-"+ex)
		}
	}
	return strings.Join(parts, " ")
}

// prepare はキーワードと検索条件を検証し、クエリを返します。
func prepare(keyword string, opts types.SearchOptions) (string, error) {
	if strings.TrimSpace(keyword) == "" {
		return "", ErrEmptyKeyword
	}
	if err := opts.Validate(); err != nil {
		return "", err
	}
	return BuildQuery(keyword, opts), nil
}

// snippet は説明文の先頭 snippetLength 文字を返します。
func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	return string([]rune(s)[:snippetLength])
}

// appendItem は順位を振って結果に追加します。URLが空の結果は除外します。
func appendItem(items []types.SearchResultItem, title, url, description string) []types.SearchResultItem {
	url = strings.TrimSpace(url)
	if url == "" {
		return items
	}
	description = strings.TrimSpace(description)
	return append(items, types.SearchResultItem{
		Rank:        len(items) + 1,
		Title:       strings.TrimSpace(title),
		URL:         url,
		Description: description,
		Snippet:     snippet(description),
	})
}
