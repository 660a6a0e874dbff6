package scraper

import (
	"context"
	"net/url"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// DefaultRobotsAgent は robots.txt のグループ照合に使うエージェント名です。
const DefaultRobotsAgent = "go-web-research"

// ErrDisallowedByRobots は robots.txt でアクセスが禁止されているURLに対して返されます。
var ErrDisallowedByRobots = eris.New("robots.txtによりアクセスが禁止されています")

// Fetcher はURLのレスポンスボディを取得します。robots.txt の取得に使用します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// RobotsChecker はホストごとに robots.txt を一度だけ取得し、URLへのアクセス可否を判定します。
// robots.txt を取得・解析できないホストはすべて許可として扱います。
type RobotsChecker struct {
	fetcher Fetcher
	agent   string
	logger  *zap.Logger

	mu    sync.Mutex
	hosts map[string]*robotsEntry
}

type robotsEntry struct {
	once  sync.Once
	group *robotstxt.Group // nil は全許可
}

// NewRobotsChecker は RobotsChecker を生成します。
func NewRobotsChecker(fetcher Fetcher, agent string, logger *zap.Logger) *RobotsChecker {
	if agent == "" {
		agent = DefaultRobotsAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsChecker{
		fetcher: fetcher,
		agent:   agent,
		logger:  logger,
		hosts:   make(map[string]*robotsEntry),
	}
}

// Allowed は rawURL へのアクセスが robots.txt で許可されているかを返します。
// 解析できないURLは許可し、判定はページ取得側のエラーに委ねます。
func (c *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	origin := u.Scheme + "://" + u.Host
	entry := c.entry(origin)
	entry.once.Do(func() {
		entry.group = c.load(ctx, origin)
	})
	if entry.group == nil {
		return true
	}
	return entry.group.Test(u.RequestURI())
}

func (c *RobotsChecker) entry(origin string) *robotsEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.hosts[origin]
	if !ok {
		e = &robotsEntry{}
		c.hosts[origin] = e
	}
	return e
}

func (c *RobotsChecker) load(ctx context.Context, origin string) *robotstxt.Group {
	robotsURL := origin + "/robots.txt"

	body, err := c.fetcher.FetchBytes(ctx, robotsURL)
	if err != nil {
		c.logger.Debug("robots.txtを取得できないため、アクセスを許可します", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Debug("robots.txtを解析できないため、アクセスを許可します", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	return data.FindGroup(c.agent)
}
