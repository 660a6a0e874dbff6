package scraper

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-web-research/pkg/types"
)

const (
	// DefaultMaxConcurrency は、並列スクレイピングのデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 6
	// DefaultScrapeRateLimit は、ページ取得を開始する最小間隔です (全ワーカー共通)。
	DefaultScrapeRateLimit = 1000 * time.Millisecond
)

// DetailExtractor はURLからページを取得し、詳細情報を抽出します。*extract.Extractor が満たします。
type DetailExtractor interface {
	FetchAndExtract(ctx context.Context, url string) (*types.ExtractionRecord, error)
}

// Scraper はWebページの詳細情報抽出機能を提供するインターフェースです。
type Scraper interface {
	ScrapeInParallel(ctx context.Context, urls []string) []types.URLResult
	ExtractDetails(ctx context.Context, items []types.SearchResultItem) []*types.ExtractionRecord
}

// ParallelScraper は Scraper インターフェースを実装する並列処理構造体です。
type ParallelScraper struct {
	extractor      DetailExtractor
	maxConcurrency int
	limiter        *rate.Limiter
	logger         *zap.Logger

	respectRobots bool
	robots        *RobotsChecker
}

// Option は ParallelScraper の設定を行うための関数型です。
type Option func(*ParallelScraper)

// WithRateLimit はページ取得の開始間隔を設定します。0以下の場合は制限しません。
func WithRateLimit(interval time.Duration) Option {
	return func(s *ParallelScraper) {
		s.limiter = newLimiter(interval)
	}
}

// WithRespectRobots は robots.txt に従うかどうかを設定します。デフォルトは true です。
func WithRespectRobots(respect bool) Option {
	return func(s *ParallelScraper) {
		s.respectRobots = respect
	}
}

// WithRobotsFetcher は robots.txt の取得に使う Fetcher を設定します。
// 省略した場合、DetailExtractor が Fetcher も満たしていればそれを使用します。
func WithRobotsFetcher(f Fetcher) Option {
	return func(s *ParallelScraper) {
		if f != nil {
			s.robots = NewRobotsChecker(f, DefaultRobotsAgent, nil)
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(s *ParallelScraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewParallelScraper は ParallelScraper を初期化します。
// 依存性として DetailExtractor と、最大同時実行数を受け取ります。
func NewParallelScraper(extractor DetailExtractor, maxConcurrency int, opts ...Option) *ParallelScraper {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	s := &ParallelScraper{
		extractor:      extractor,
		maxConcurrency: maxConcurrency,
		limiter:        newLimiter(DefaultScrapeRateLimit),
		logger:         zap.NewNop(),
		respectRobots:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.respectRobots {
		if s.robots == nil {
			if f, ok := extractor.(Fetcher); ok {
				s.robots = NewRobotsChecker(f, DefaultRobotsAgent, s.logger)
			}
		} else {
			s.robots.logger = s.logger
		}
	}
	return s
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// ScrapeInParallel は各URLの詳細情報を並列で抽出します。
// 結果は urls と同じ順序・同じ長さで返され、個々の失敗はバッチ全体を中断しません。
func (s *ParallelScraper) ScrapeInParallel(ctx context.Context, urls []string) []types.URLResult {
	results := make([]types.URLResult, len(urls))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.scrapeOne(ctx, i, u)
			return nil
		})
	}
	// 各ページのエラーは results に記録済みのため、ここでは常に nil
	_ = g.Wait()

	return results
}

func (s *ParallelScraper) scrapeOne(ctx context.Context, index int, url string) types.URLResult {
	res := types.URLResult{Index: index, URL: url}

	if s.respectRobots && s.robots != nil && !s.robots.Allowed(ctx, url) {
		res.Error = eris.Wrapf(ErrDisallowedByRobots, "URL: %s", url)
		s.logger.Info("robots.txtで禁止されているためスキップします", zap.String("url", url))
		return res
	}

	if err := s.limiter.Wait(ctx); err != nil {
		res.Error = eris.Wrap(err, "レートリミット待機中に中断されました")
		return res
	}

	record, err := s.extractor.FetchAndExtract(ctx, url)
	if err != nil {
		res.Error = eris.Wrapf(err, "詳細情報の抽出に失敗しました (URL: %s)", url)
		s.logger.Warn("ページの処理に失敗しました", zap.String("url", url), zap.Error(err))
		return res
	}

	res.Record = record
	s.logger.Debug("ページを処理しました", zap.String("url", url))
	return res
}

// ExtractDetails は検索結果の各ページから詳細情報を抽出します。
// 戻り値は items とインデックスで対応し、取得・抽出に失敗したページは nil になります。
func (s *ParallelScraper) ExtractDetails(ctx context.Context, items []types.SearchResultItem) []*types.ExtractionRecord {
	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.URL
	}

	s.logger.Info("詳細情報の抽出を開始します",
		zap.Int("pages", len(urls)),
		zap.Int("concurrency", s.maxConcurrency),
	)

	details := make([]*types.ExtractionRecord, len(items))
	failed := 0
	for _, res := range s.ScrapeInParallel(ctx, urls) {
		if res.Error != nil {
			failed++
			continue
		}
		details[res.Index] = res.Record
	}

	s.logger.Info("詳細情報の抽出が完了しました",
		zap.Int("succeeded", len(items)-failed),
		zap.Int("failed", failed),
	)
	return details
}
