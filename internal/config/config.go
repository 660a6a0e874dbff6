package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shouni/go-web-research/pkg/types"
)

const (
	configName = "research"
	envPrefix  = "RESEARCH"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Presets PresetsConfig `yaml:"presets" mapstructure:"presets"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SearchConfig は検索バックエンドの設定です。
type SearchConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	TavilyAPIKey string `yaml:"tavily_api_key" mapstructure:"tavily_api_key"`
	GoogleAPIKey string `yaml:"google_api_key" mapstructure:"google_api_key"`
	GoogleCXID   string `yaml:"google_cx_id" mapstructure:"google_cx_id"`

	Defaults types.SearchOptions `yaml:"defaults" mapstructure:"defaults"`
}

// HTTPConfig はHTTPクライアントの設定です。
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
}

// Timeout は TimeoutSecs を time.Duration に変換します。
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ScrapeConfig はページ詳細抽出の並列度とペースの設定です。
type ScrapeConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimitMs int `yaml:"rate_limit_ms" mapstructure:"rate_limit_ms"`
	OverallSecs int `yaml:"overall_timeout_secs" mapstructure:"overall_timeout_secs"`

	// RespectRobots が true の場合、robots.txt で禁止されたページは取得しません。
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// RateLimit は RateLimitMs を time.Duration に変換します。
func (c ScrapeConfig) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// OverallTimeout は OverallSecs を time.Duration に変換します。
func (c ScrapeConfig) OverallTimeout() time.Duration {
	return time.Duration(c.OverallSecs) * time.Second
}

// OutputConfig はスプレッドシート出力の設定です。
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Summary bool   `yaml:"summary" mapstructure:"summary"`
}

// PresetsConfig は検索プリセットの保存先です。
type PresetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig はログ出力の設定です。
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadDotEnv は .env ファイルを環境変数に読み込みます。存在しないファイルは無視します。
// 既に設定されている環境変数は上書きしません。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load %s", p)
		}
	}
	return nil
}

// Load はデフォルト値、設定ファイル (research.yaml、任意)、環境変数 (RESEARCH_ 接頭辞) の順に設定を重ねて読み込みます。
// searchPaths を省略した場合はカレントディレクトリから設定ファイルを探します。
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()

	// 設定ファイル
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	// 環境変数
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// APIキーは接頭辞なしの名前でも受け付ける
	if err := bindEnvAliases(v); err != nil {
		return nil, err
	}

	setDefaults(v)

	// 設定ファイルの読み込み (任意)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func bindEnvAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"search.provider":       {"RESEARCH_SEARCH_PROVIDER", "SEARCH_API_PROVIDER"},
		"search.tavily_api_key": {"RESEARCH_SEARCH_TAVILY_API_KEY", "TAVILY_API_KEY"},
		"search.google_api_key": {"RESEARCH_SEARCH_GOOGLE_API_KEY", "GOOGLE_API_KEY"},
		"search.google_cx_id":   {"RESEARCH_SEARCH_GOOGLE_CX_ID", "GOOGLE_CX_ID"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return eris.Wrapf(err, "config: bind env %s", key)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := types.DefaultSearchOptions()

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.defaults.num_results", defaults.NumResults)
	v.SetDefault("search.defaults.region", defaults.Region)
	v.SetDefault("search.defaults.language", defaults.Language)
	v.SetDefault("search.defaults.period", defaults.Period)
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("scrape.concurrency", 6)
	v.SetDefault("scrape.rate_limit_ms", 1000)
	v.SetDefault("scrape.overall_timeout_secs", 300)
	v.SetDefault("scrape.respect_robots", true)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.summary", true)
	v.SetDefault("presets.dir", "presets")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// NewLogger は LogConfig から zap.Logger を生成します。
// ロガーはグローバルには登録せず、呼び出し側が各コンポーネントへ渡します。
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}
