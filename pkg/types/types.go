package types

import (
	"github.com/rotisserie/eris"
)

// ----------------------------------------------------------------------
// 外部から受け取るデータ
// ----------------------------------------------------------------------

// RawPage は、フェッチ処理が取得した1ページ分の生HTMLです。一度だけ抽出に使われます。
type RawPage struct {
	URL  string
	HTML string
}

// SearchResultItem は、検索バックエンドが返す検索結果の1件です。
// Rank は1始まりで、1回の検索内で一意です。
type SearchResultItem struct {
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
}

const (
	MinNumResults     = 1
	MaxNumResults     = 100
	DefaultNumResults = 10
	DefaultRegion     = "jp"
	DefaultLanguage   = "ja"
)

// 期間指定 (過去24時間 / 1週間 / 1ヶ月 / 1年)
const (
	PeriodAll   = ""
	PeriodDay   = "d"
	PeriodWeek  = "w"
	PeriodMonth = "m"
	PeriodYear  = "y"
)

// ErrInvalidOptions は検索オプションが不正な場合に返されます。
var ErrInvalidOptions = eris.New("検索オプションが不正です")

// SearchOptions は検索バックエンドに渡す検索条件です。
type SearchOptions struct {
	NumResults      int      `json:"num_results" yaml:"num_results" mapstructure:"num_results"`
	Region          string   `json:"region" yaml:"region" mapstructure:"region"`
	Language        string   `json:"language" yaml:"language" mapstructure:"language"`
	Period          string   `json:"period,omitempty" yaml:"period,omitempty" mapstructure:"period"`
	Site            string   `json:"site,omitempty" yaml:"site,omitempty" mapstructure:"site"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty" yaml:"exclude_keywords,omitempty" mapstructure:"exclude_keywords"`
}

// DefaultSearchOptions は推奨されるデフォルトの検索条件を返します。
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		NumResults: DefaultNumResults,
		Region:     DefaultRegion,
		Language:   DefaultLanguage,
	}
}

// Validate は検索条件の範囲チェックを行います。
func (o SearchOptions) Validate() error {
	if o.NumResults < MinNumResults || o.NumResults > MaxNumResults {
		return eris.Wrapf(ErrInvalidOptions, "取得件数は%d〜%dの範囲で指定してください: %d", MinNumResults, MaxNumResults, o.NumResults)
	}
	switch o.Period {
	case PeriodAll, PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
	default:
		return eris.Wrapf(ErrInvalidOptions, "期間指定が不正です: %q", o.Period)
	}
	return nil
}

// ----------------------------------------------------------------------
// 抽出結果
// ----------------------------------------------------------------------

// SNSタグ
const (
	SNSTwitter   = "twitter"
	SNSFacebook  = "facebook"
	SNSInstagram = "instagram"
	SNSLine      = "line"
	SNSYouTube   = "youtube"
)

// SNSTags は対応しているSNSタグを出力列の順序で並べたものです。
var SNSTags = []string{SNSTwitter, SNSFacebook, SNSInstagram, SNSLine, SNSYouTube}

// Address は構造化された住所です。各フィールドは見つからなければ nil のままです。
type Address struct {
	PostalCode    *string `json:"postal_code"`
	Prefecture    *string `json:"prefecture"`
	City          *string `json:"city"`
	StreetAddress *string `json:"address"`
}

// ExtractionRecord は1ページから抽出された詳細情報です。
// コレクションは常に非nil (空スライス/空マップ) で、任意のスカラー値は nil で不在を表します。
type ExtractionRecord struct {
	PhoneNumbers   []string            `json:"phone"`
	EmailAddresses []string            `json:"email"`
	FaxNumbers     []string            `json:"fax"`
	Address        *Address            `json:"address"`
	CompanyName    *string             `json:"company_name"`
	BusinessHours  *string             `json:"business_hours"`
	ClosedDays     *string             `json:"closed_days"`
	SocialLinks    map[string][]string `json:"sns_links"`
}

// NewExtractionRecord は空のコレクションで初期化された ExtractionRecord を返します。
func NewExtractionRecord() *ExtractionRecord {
	return &ExtractionRecord{
		PhoneNumbers:   []string{},
		EmailAddresses: []string{},
		FaxNumbers:     []string{},
		SocialLinks:    map[string][]string{},
	}
}

// ----------------------------------------------------------------------
// 出力行
// ----------------------------------------------------------------------

// OutputRow は検索結果と詳細情報を統合した、シリアライズ直前の1行です。
// 詳細項目はすべて文字列にフラット化され、不在は空文字列になります。
type OutputRow struct {
	Rank          int    `json:"rank"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PostalCode    string `json:"postal_code"`
	Prefecture    string `json:"prefecture"`
	City          string `json:"city"`
	StreetAddress string `json:"address"`
	Fax           string `json:"fax"`
	CompanyName   string `json:"company_name"`
	BusinessHours string `json:"business_hours"`
	ClosedDays    string `json:"closed_days"`
	SNSTwitter    string `json:"sns_twitter"`
	SNSFacebook   string `json:"sns_facebook"`
	SNSInstagram  string `json:"sns_instagram"`
	SNSLine       string `json:"sns_line"`
	SNSYouTube    string `json:"sns_youtube"`
}

// URLResult は、特定のURLから抽出された結果、またはその処理中に発生したエラーを保持します。
// Scraper の各ページ処理結果として利用されます。
type URLResult struct {
	Index  int               // 検索結果内の位置
	URL    string            // 処理対象のURL
	Record *ExtractionRecord // 抽出結果 (失敗時は nil)
	Error  error             // 処理中に発生したエラー
}
