package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/internal/config"
	"github.com/shouni/go-web-research/internal/pipeline"
	"github.com/shouni/go-web-research/pkg/export"
	"github.com/shouni/go-web-research/pkg/extract"
	"github.com/shouni/go-web-research/pkg/httpclient"
	"github.com/shouni/go-web-research/pkg/scraper"
	"github.com/shouni/go-web-research/pkg/search"
	"github.com/shouni/go-web-research/pkg/types"
)

// researchFlags は research コマンドのフラグです。
type researchFlags struct {
	numResults  int
	region      string
	language    string
	period      string
	site        string
	exclude     []string
	details     bool
	provider    string
	output      string
	preset      string
	savePreset  string
	concurrency int
	noSummary   bool
}

var rf researchFlags

// researchPlan は設定・プリセット・フラグを重ね合わせた実行内容です。
type researchPlan struct {
	Keyword     string
	Provider    string
	Details     bool
	Options     types.SearchOptions
	Concurrency int
	OutputPath  string
	Summary     bool
}

// buildPlan は設定ファイル → プリセット → 明示されたフラグ → 引数 の順に値を重ねます。
func buildPlan(cfg *config.Config, preset *config.Preset, f researchFlags, changed func(string) bool, args []string) (researchPlan, error) {
	plan := researchPlan{
		Provider:    cfg.Search.Provider,
		Options:     cfg.Search.Defaults,
		Concurrency: cfg.Scrape.Concurrency,
		Summary:     cfg.Output.Summary,
	}

	if preset != nil {
		plan.Keyword = preset.Keyword
		plan.Details = preset.Details
		plan.Options = preset.Options
		if preset.Provider != "" {
			plan.Provider = preset.Provider
		}
	}

	if changed("num") {
		plan.Options.NumResults = f.numResults
	}
	if changed("region") {
		plan.Options.Region = f.region
	}
	if changed("lang") {
		plan.Options.Language = f.language
	}
	if changed("period") {
		plan.Options.Period = f.period
	}
	if changed("site") {
		plan.Options.Site = f.site
	}
	if changed("exclude") {
		plan.Options.ExcludeKeywords = f.exclude
	}
	if changed("details") {
		plan.Details = f.details
	}
	if changed("provider") {
		plan.Provider = f.provider
	}
	if changed("concurrency") {
		plan.Concurrency = f.concurrency
	}
	if f.noSummary {
		plan.Summary = false
	}
	plan.OutputPath = f.output

	if len(args) > 0 {
		plan.Keyword = strings.Join(args, " ")
	}
	plan.Keyword = strings.TrimSpace(plan.Keyword)
	if plan.Keyword == "" {
		return plan, search.ErrEmptyKeyword
	}
	if err := plan.Options.Validate(); err != nil {
		return plan, err
	}
	return plan, nil
}

// newPipeline は実行内容に合わせて検索・詳細抽出・出力を組み立てます。
func newPipeline(cfg *config.Config, plan researchPlan, pageFetcher extract.Fetcher, logger *zap.Logger) (*pipeline.Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	apiClient := httpclient.New(cfg.HTTP.Timeout(), httpclient.WithLogger(logger)).
		WithMaxRetries(uint64(cfg.HTTP.MaxRetries))

	searcher, err := search.NewSearcher(plan.Provider, search.Credentials{
		TavilyAPIKey: cfg.Search.TavilyAPIKey,
		GoogleAPIKey: cfg.Search.GoogleAPIKey,
		GoogleCXID:   cfg.Search.GoogleCXID,
	}, apiClient, logger)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if plan.Details {
		if pageFetcher == nil {
			pageFetcher = apiClient
		}
		extractor, err := extract.NewExtractor(pageFetcher, extract.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		s := scraper.NewParallelScraper(extractor, plan.Concurrency,
			scraper.WithRateLimit(cfg.Scrape.RateLimit()),
			scraper.WithRespectRobots(cfg.Scrape.RespectRobots),
			scraper.WithLogger(logger),
		)
		opts = append(opts, pipeline.WithDetailExtractor(s))
	}

	return pipeline.New(searcher, export.New(export.WithLogger(logger)), opts...)
}

// printResult は実行結果の概要を表示します。
func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w, "--- 調査結果 ---")
	fmt.Fprintf(w, "実行ID: %s\n", res.RunID)
	fmt.Fprintf(w, "検索結果: %d 件 (詳細取得 %d 件)\n", res.Searched, res.Extracted)
	fmt.Fprintf(w, "除外: 重複 %d 件, 不正 %d 件\n", res.Duplicates, res.Invalid)
	fmt.Fprintf(w, "出力: %d 行\n", len(res.Rows))
	if res.OutputPath != "" {
		fmt.Fprintf(w, "保存先: %s\n", res.OutputPath)
	}
}

var researchCmd = &cobra.Command{
	Use:   "research [KEYWORD...]",
	Short: "キーワードで検索し、各ページの連絡先情報をスプレッドシートに出力します",
	Long: `検索APIでキーワードを検索し、結果ページから電話番号・メール・住所・営業時間などを抽出して
重複除去と検証を行ったうえで xlsx ファイルに保存します。--preset で保存済みの検索条件を利用できます。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := app.logger
		defer func() { _ = logger.Sync() }()
		cfg := app.cfg

		store := config.NewPresetStore(cfg.Presets.Dir)
		var preset *config.Preset
		if rf.preset != "" {
			p, err := store.Load(rf.preset)
			if err != nil {
				return err
			}
			preset = p
		}

		plan, err := buildPlan(cfg, preset, rf, cmd.Flags().Changed, args)
		if err != nil {
			return err
		}

		if rf.savePreset != "" {
			if err := store.Save(config.Preset{
				Name:     rf.savePreset,
				Keyword:  plan.Keyword,
				Provider: plan.Provider,
				Details:  plan.Details,
				Options:  plan.Options,
			}); err != nil {
				return err
			}
			logger.Info("プリセットを保存しました", zap.String("name", rf.savePreset))
		}

		p, err := newPipeline(cfg, plan, app.pageFetcher, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, overallTimeout())
		defer cancel()

		res, err := p.Run(ctx, pipeline.Request{
			Keyword:    plan.Keyword,
			Options:    plan.Options,
			Details:    plan.Details,
			OutputPath: plan.OutputPath,
			OutputDir:  cfg.Output.Dir,
			Summary:    plan.Summary,
		})
		if res != nil {
			printResult(cmd.OutOrStdout(), res)
		}
		if err != nil {
			return eris.Wrap(err, "調査の実行に失敗しました")
		}
		return nil
	},
}

func init() {
	flags := researchCmd.Flags()
	flags.IntVarP(&rf.numResults, "num", "n", types.DefaultNumResults,
		fmt.Sprintf("取得件数 (%d〜%d)", types.MinNumResults, types.MaxNumResults))
	flags.StringVar(&rf.region, "region", types.DefaultRegion, "検索地域 (例: jp)")
	flags.StringVar(&rf.language, "lang", types.DefaultLanguage, "検索言語 (例: ja)")
	flags.StringVar(&rf.period, "period", "", "期間指定 (d, w, m, y。空は全期間)")
	flags.StringVar(&rf.site, "site", "", "検索対象サイトのドメイン")
	flags.StringSliceVar(&rf.exclude, "exclude", nil, "除外キーワード (カンマ区切り)")
	flags.BoolVarP(&rf.details, "details", "d", false, "各ページを取得して詳細情報を抽出する")
	flags.StringVarP(&rf.provider, "provider", "p", "", "検索プロバイダー (tavily, google, feed)")
	flags.StringVarP(&rf.output, "output", "o", "", "出力ファイルのパス (省略時は出力ディレクトリに自動命名)")
	flags.StringVar(&rf.preset, "preset", "", "保存済みプリセットの名前")
	flags.StringVar(&rf.savePreset, "save-preset", "", "今回の検索条件をこの名前で保存する")
	flags.IntVarP(&rf.concurrency, "concurrency", "c", scraper.DefaultMaxConcurrency, "詳細抽出の最大並列実行数")
	flags.BoolVar(&rf.noSummary, "no-summary", false, "サマリーシートを出力しない")
}
