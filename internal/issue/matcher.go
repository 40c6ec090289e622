package issue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/ethfeed/internal/feed"
	"github.com/hitoshi/ethfeed/internal/source"
)

// DefaultFeedURL はニュースレターのRSSフィードの既定URL。
const DefaultFeedURL = "https://ethereal.news/rss.xml"

// Store は照合に必要な記事ストアの操作。
type Store interface {
	ListURLs(ctx context.Context) ([]string, error)
	HasIssueURL(ctx context.Context, issueURL string) (bool, error)
	MarkInIssue(ctx context.Context, issueURL string, urls []string) (int, error)
}

// Issue はニュースレターの1号分を表す。
type Issue struct {
	Title string
	URL   string
	// Links は号のページに含まれるリンク。
	Links []string
}

// Result は照合結果を表す。
type Result struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	MatchedCount int    `json:"matched_count"`
	IsNewIssue   bool   `json:"is_new_issue"`
}

// Config はMatcherの設定。
type Config struct {
	FeedURL     string
	UserAgent   string
	MaxBodySize int64
}

// Matcher は最新号の取得と記事の照合を行う。
type Matcher struct {
	client    source.HTTPClient
	validator source.URLValidator
	store     Store
	cfg       Config
	logger    *slog.Logger
}

// NewMatcher はMatcherを生成する。
func NewMatcher(client source.HTTPClient, validator source.URLValidator, store Store, cfg Config, logger *slog.Logger) *Matcher {
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	return &Matcher{client: client, validator: validator, store: store, cfg: cfg, logger: logger}
}

// FetchLatest はフィードの先頭エントリを最新号として取得し、そのページのリンクを集める。
// エントリがない場合や取得に失敗した場合はnilを返す。失敗はログに記録するのみでエラーにはしない。
func (m *Matcher) FetchLatest(ctx context.Context) *Issue {
	body, err := m.get(ctx, m.cfg.FeedURL)
	if err != nil {
		m.warn("ニュースレターのフィード取得に失敗しました", m.cfg.FeedURL, err)
		return nil
	}

	entries, err := feed.Parse(body)
	if err != nil {
		m.warn("ニュースレターのフィード解析に失敗しました", m.cfg.FeedURL, err)
		return nil
	}
	if len(entries) == 0 || entries[0].URL == "" {
		m.logger.Info("ニュースレターのフィードにエントリがありません", slog.String("url", m.cfg.FeedURL))
		return nil
	}
	latest := entries[0]

	page, err := m.get(ctx, latest.URL)
	if err != nil {
		m.warn("ニュースレターのページ取得に失敗しました", latest.URL, err)
		return nil
	}

	return &Issue{Title: latest.Title, URL: latest.URL, Links: ExtractLinks(page)}
}

// Apply は号に含まれるリンクと保存済み記事を照合し、未割り当ての記事にissue_urlを設定する。
// 新しい号かどうかの判定は更新前に行う。
func (m *Matcher) Apply(ctx context.Context, is *Issue) (*Result, error) {
	seen, err := m.store.HasIssueURL(ctx, is.URL)
	if err != nil {
		return nil, fmt.Errorf("号URLの確認に失敗: %w", err)
	}

	urls, err := m.store.ListURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("記事URL一覧の取得に失敗: %w", err)
	}

	links := NewLinkSet(is.Links)
	var matched []string
	for _, u := range urls {
		if links.Contains(u) {
			matched = append(matched, u)
		}
	}

	count, err := m.store.MarkInIssue(ctx, is.URL, matched)
	if err != nil {
		return nil, fmt.Errorf("号への割り当てに失敗: %w", err)
	}

	m.logger.Info("ニュースレターとの照合が完了しました",
		slog.String("issue_url", is.URL),
		slog.Int("links", len(links)),
		slog.Int("matched", count),
		slog.Bool("new_issue", !seen),
	)

	return &Result{
		Title:        is.Title,
		URL:          is.URL,
		MatchedCount: count,
		IsNewIssue:   !seen,
	}, nil
}

// DetectAndApply は最新号を取得して照合する。号が取得できない場合はnil, nilを返す。
func (m *Matcher) DetectAndApply(ctx context.Context) (*Result, error) {
	is := m.FetchLatest(ctx)
	if is == nil {
		return nil, nil
	}
	return m.Apply(ctx, is)
}

func (m *Matcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := m.validator.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return source.GetBody(ctx, m.client, rawURL, m.cfg.UserAgent, m.cfg.MaxBodySize)
}

func (m *Matcher) warn(msg, rawURL string, err error) {
	m.logger.Warn(msg,
		slog.String("source", "newsletter"),
		slog.String("url", rawURL),
		slog.Int("http_status", source.StatusOf(err)),
		slog.String("error", err.Error()),
	)
}
