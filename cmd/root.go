package cmd

import (
	"path/filepath"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/internal/config"
	"github.com/shouni/go-web-research/pkg/extract"
)

const (
	appName = "web-research"

	// フラグ未指定時のフォールバック値。通常は設定ファイルのデフォルトが使われます。
	defaultTimeoutSec = 30
	defaultMaxRetries = 3

	// 全体処理のタイムアウトが設定されていない場合に使う値
	DefaultOverallTimeout = 60 * time.Second
)

// AppFlags はこのアプリケーション固有の永続フラグを保持します。
type AppFlags struct {
	TimeoutSec int // --timeout タイムアウト
	MaxRetries int // --max-retries リトライ回数
	ConfigDir  string
}

var Flags AppFlags

// app は PersistentPreRunE で組み立てた共有依存です。
var app struct {
	cfg         *config.Config
	logger      *zap.Logger
	pageFetcher extract.Fetcher
}

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(&Flags.TimeoutSec, "timeout", defaultTimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxRetries, "max-retries", defaultMaxRetries, "HTTPリクエストのリトライ最大回数")
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigDir, "config-dir", ".", "research.yaml と .env を探すディレクトリ")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// 設定の読み込み、ロガーの構築、ページ取得用フェッチャーの初期化を行います。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(filepath.Join(Flags.ConfigDir, ".env")); err != nil {
		return err
	}
	cfg, err := config.Load(Flags.ConfigDir)
	if err != nil {
		return err
	}

	// 明示されたフラグは設定ファイルより優先
	if cmd.Flags().Changed("timeout") {
		cfg.HTTP.TimeoutSecs = Flags.TimeoutSec
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.HTTP.MaxRetries = Flags.MaxRetries
	}
	if clibase.Flags.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	logger.Debug("HTTPクライアントを初期化します",
		zap.Duration("timeout", cfg.HTTP.Timeout()),
		zap.Int("max_retries", cfg.HTTP.MaxRetries),
	)

	app.cfg = cfg
	app.logger = logger
	app.pageFetcher = httpkit.New(
		cfg.HTTP.Timeout(),
		httpkit.WithMaxRetries(uint64(cfg.HTTP.MaxRetries)),
	)
	return nil
}

// overallTimeout は1コマンド全体に許す時間です。
func overallTimeout() time.Duration {
	if app.cfg == nil || app.cfg.Scrape.OverallSecs <= 0 {
		return DefaultOverallTimeout
	}
	return app.cfg.Scrape.OverallTimeout()
}

// Execute は clibase を使用してルートコマンドを実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		researchCmd,
		extractCmd,
		presetCmd,
	)
}
