package ingest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/source"
)

// ClientFactory はタイムアウト付きのHTTPクライアントを生成する。
// 本番ではsecurity.Guardが実装する。
type ClientFactory interface {
	Client(timeout time.Duration) *http.Client
	NoRedirectClient(timeout time.Duration) *http.Client
	ValidateURL(rawURL string) error
}

// BuildFetchers は設定とカタログから全フェッチャーを組み立てる。
// 順序はクライアント、開発ツール、ブログ、提案、研究フォーラム。
func BuildFetchers(cfg *config.Config, catalog *config.Catalog, clients ClientFactory, logger *slog.Logger) []source.Fetcher {
	window := source.Window{Duration: cfg.RecencyWindow}
	batch := source.BatchConfig{Size: cfg.BatchSize, Delay: cfg.BatchDelay}

	gh := source.NewGitHubClient(clients.Client(cfg.FetchTimeout), source.GitHubConfig{
		BaseURL:     cfg.GitHubAPIURL,
		Token:       cfg.GitHubToken,
		UserAgent:   cfg.UserAgent,
		MaxBodySize: cfg.FetchMaxSize,
	}, logger)

	return []source.Fetcher{
		source.NewReleaseFetcher("client_releases", model.SourceTypeClientRelease, catalog.Clients, gh, window, batch, logger),
		source.NewReleaseFetcher("dev_tool_releases", model.SourceTypeDevToolRelease, catalog.DevTools, gh, window, batch, logger),
		source.NewBlogFetcher(catalog.Blogs, clients.NoRedirectClient(cfg.FetchTimeout), clients, window, source.BlogConfig{
			FeedDelay:   cfg.BlogFeedDelay,
			UserAgent:   cfg.UserAgent,
			MaxBodySize: cfg.FetchMaxSize,
		}, logger),
		source.NewProposalFetcher(catalog.Proposals, gh, window, logger),
		source.NewResearchFetcher(catalog.Research, clients.Client(cfg.FetchTimeout), clients, window, source.ResearchConfig{
			Timeout:     cfg.ResearchTimeout,
			UserAgent:   cfg.UserAgent,
			MaxBodySize: cfg.FetchMaxSize,
		}, logger),
	}
}
