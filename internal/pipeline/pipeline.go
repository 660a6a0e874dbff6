package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/export"
	"github.com/shouni/go-web-research/pkg/formatter"
	"github.com/shouni/go-web-research/pkg/search"
	"github.com/shouni/go-web-research/pkg/types"
)

// DetailExtractor は検索結果の各ページから詳細情報を抽出します。*scraper.ParallelScraper が満たします。
type DetailExtractor interface {
	ExtractDetails(ctx context.Context, items []types.SearchResultItem) []*types.ExtractionRecord
}

// Sink は出力行をファイルへ書き出します。*export.Exporter が満たします。
type Sink interface {
	WriteFile(path string, rows []types.OutputRow, summary *export.Summary) error
}

// Request は1回の調査の入力です。
type Request struct {
	Keyword string
	Options types.SearchOptions

	// Details が true の場合、各検索結果ページを取得して詳細情報を抽出します。
	Details bool

	// OutputPath が空の場合は OutputDir 配下にキーワードと日時から生成した名前で保存します。
	OutputPath string
	OutputDir  string
	Summary    bool
}

// Result は1回の調査の結果です。
type Result struct {
	RunID      string
	Searched   int // 検索結果の件数
	Extracted  int // 詳細情報を取得できたページ数
	Duplicates int // 重複として除外した行数
	Invalid    int // 検証で除外した行数
	Rows       []types.OutputRow
	OutputPath string
}

// Pipeline は検索 → 詳細抽出 → 統合 → 重複除去 → 検証 → 出力 を順に実行します。
type Pipeline struct {
	searcher search.Searcher
	details  DetailExtractor
	sink     Sink
	logger   *zap.Logger
	now      func() time.Time
	newRunID func() string
}

// Option は Pipeline の設定を行うための関数型です。
type Option func(*Pipeline)

// WithDetailExtractor は詳細抽出に使用する DetailExtractor を設定します。
func WithDetailExtractor(d DetailExtractor) Option {
	return func(p *Pipeline) { p.details = d }
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New は Pipeline を生成します。
func New(searcher search.Searcher, sink Sink, opts ...Option) (*Pipeline, error) {
	if searcher == nil {
		return nil, eris.New("pipeline.New: Searcher cannot be nil")
	}
	if sink == nil {
		return nil, eris.New("pipeline.New: Sink cannot be nil")
	}

	p := &Pipeline{
		searcher: searcher,
		sink:     sink,
		logger:   zap.NewNop(),
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run は調査を1回実行します。出力対象の行が残らなかった場合は export.ErrEmptyData を返します。
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	startedAt := p.now()
	res := &Result{RunID: p.newRunID()}
	logger := p.logger.With(zap.String("run_id", res.RunID), zap.String("keyword", req.Keyword))

	// 1. 検索
	items, err := p.searcher.Search(ctx, req.Keyword, req.Options)
	if err != nil {
		return nil, eris.Wrap(err, "検索に失敗しました")
	}
	res.Searched = len(items)
	logger.Info("検索が完了しました", zap.Int("results", len(items)))

	// 2. 詳細抽出 (任意)
	var details []*types.ExtractionRecord
	if req.Details {
		if p.details == nil {
			logger.Warn("詳細抽出が要求されましたが、DetailExtractorが設定されていません")
		} else {
			details = p.details.ExtractDetails(ctx, items)
			for _, d := range details {
				if d != nil {
					res.Extracted++
				}
			}
		}
	}

	// 3. 統合 → 重複除去 → 検証
	rows := formatter.FormatData(items, details)
	unique := formatter.RemoveDuplicates(rows)
	valid := formatter.ValidateData(unique)
	res.Duplicates = len(rows) - len(unique)
	res.Invalid = len(unique) - len(valid)
	res.Rows = valid

	logger.Info("整形が完了しました",
		zap.Int("rows", len(valid)),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("invalid", res.Invalid),
	)

	// 4. 出力
	path := req.OutputPath
	if path == "" {
		path = filepath.Join(req.OutputDir, export.DefaultFileName(req.Keyword, startedAt))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, eris.Wrapf(err, "出力ディレクトリの作成に失敗しました (%s)", dir)
		}
	}

	var summary *export.Summary
	if req.Summary {
		summary = &export.Summary{Keyword: req.Keyword, GeneratedAt: startedAt, RunID: res.RunID}
	}
	if err := p.sink.WriteFile(path, valid, summary); err != nil {
		return res, err
	}
	res.OutputPath = path

	logger.Info("調査が完了しました", zap.String("output", path), zap.Duration("elapsed", p.now().Sub(startedAt)))
	return res, nil
}
