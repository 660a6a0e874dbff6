package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/patterns"
	"github.com/shouni/go-web-research/pkg/types"
)

var (
	// ErrNoContent はページの本文が空だった場合に返されます。呼び出し側はページ取得不可として扱います。
	ErrNoContent = eris.New("ページのコンテンツが空です")
	// ErrNoFetcher は Fetcher なしで生成された Extractor でフェッチを要求した場合に返されます。
	ErrNoFetcher = eris.New("Fetcherが設定されていません")
)

// Extractor は、パターンライブラリを使ってHTMLから詳細情報を抽出します。
// 状態を持たないため、複数のgoroutineから同時に利用できます。
type Extractor struct {
	fetcher Fetcher
	lib     *patterns.Library
	logger  *zap.Logger
}

// Option は Extractor の設定を行うための関数型です。
type Option func(*Extractor)

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLibrary は使用するパターンライブラリを差し替えます。
func WithLibrary(lib *patterns.Library) Option {
	return func(e *Extractor) {
		if lib != nil {
			e.lib = lib
		}
	}
}

// New は、フェッチを行わない抽出専用の Extractor を生成します。
func New(opts ...Option) *Extractor {
	e := &Extractor{
		lib:    patterns.Default(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// コンパイルに失敗したパターンは除外済み。ここでは記録のみ行う。
	for _, err := range e.lib.Errors {
		e.logger.Error("パターンのコンパイルに失敗したためスキップします", zap.Error(err))
	}
	return e
}

// NewExtractor は、Fetcher を使ってページ取得から抽出までを行う Extractor を生成します。
func NewExtractor(fetcher Fetcher, opts ...Option) (*Extractor, error) {
	if fetcher == nil {
		return nil, eris.New("extract.NewExtractor: Fetcher cannot be nil")
	}
	e := New(opts...)
	e.fetcher = fetcher
	return e, nil
}

// FetchAndExtract は指定されたURLのHTMLを取得し、すべての詳細情報を抽出します。
func (e *Extractor) FetchAndExtract(ctx context.Context, url string) (*types.ExtractionRecord, error) {
	if e.fetcher == nil {
		return nil, ErrNoFetcher
	}

	htmlBytes, err := e.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "ページの取得に失敗しました (URL: %s)", url)
	}
	if len(bytes.TrimSpace(htmlBytes)) == 0 {
		return nil, eris.Wrapf(ErrNoContent, "URL: %s", url)
	}

	return e.ExtractPage(types.RawPage{URL: url, HTML: string(htmlBytes)}), nil
}

// FetchBytes は設定された Fetcher でURLのボディを取得します。robots.txt の取得などに使用されます。
func (e *Extractor) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if e.fetcher == nil {
		return nil, ErrNoFetcher
	}
	return e.fetcher.FetchBytes(ctx, url)
}

// ExtractPage は取得済みの1ページから詳細情報を抽出します。
func (e *Extractor) ExtractPage(page types.RawPage) *types.ExtractionRecord {
	e.logger.Debug("ページから詳細情報を抽出します", zap.String("url", page.URL), zap.Int("bytes", len(page.HTML)))
	return e.ExtractAll(page.HTML)
}

// ExtractAll はHTMLからすべての項目を抽出し、1ページ分の ExtractionRecord にまとめます。
// タグ除去は一度だけ行い、SNSリンクのみ生HTMLを対象にします。
func (e *Extractor) ExtractAll(html string) *types.ExtractionRecord {
	record := types.NewExtractionRecord()
	if strings.TrimSpace(html) == "" {
		e.logger.Warn("HTMLが空です")
		return record
	}

	text := scanText(html)

	record.PhoneNumbers = e.phonesFromText(text)
	record.EmailAddresses = e.emailsFromText(text)
	record.FaxNumbers = e.faxesFromText(text)
	record.Address = e.addressFromText(text)
	record.CompanyName = e.ExtractCompanyName(html)
	record.BusinessHours = e.firstLabeledMatch(text, e.lib.BusinessHours, MaxBusinessHoursLength)
	record.ClosedDays = e.firstLabeledMatch(text, e.lib.ClosedDays, MaxClosedDaysLength)
	record.SocialLinks = e.ExtractSocialLinks(html)

	e.logger.Debug("抽出が完了しました",
		zap.Int("phone", len(record.PhoneNumbers)),
		zap.Int("email", len(record.EmailAddresses)),
		zap.Int("fax", len(record.FaxNumbers)),
		zap.Bool("address", record.Address != nil),
		zap.Bool("company_name", record.CompanyName != nil),
		zap.Int("sns", len(record.SocialLinks)),
	)
	return record
}

// emptyHTML は空入力を警告として記録します。
func (e *Extractor) emptyHTML(html string) bool {
	if strings.TrimSpace(html) == "" {
		e.logger.Warn("HTMLが空です")
		return true
	}
	return false
}

func strPtr(s string) *string {
	return &s
}
