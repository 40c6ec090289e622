package source

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/feed"
	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/normalizer"
)

// replyPostPattern は個別の返信投稿を指すDiscourseのURL（/t/<slug>/<id>/<post>）に一致する。
var replyPostPattern = regexp.MustCompile(`/t/[^/]+/\d+/\d+`)

// ResearchConfig はResearchFetcherの設定。
type ResearchConfig struct {
	// Timeout はフィードごとのリクエストタイムアウト。
	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int64
}

// ResearchFetcher はDiscourse系フォーラムのRSSからトピックを取得する。
// 全フィードを同時に取得し、間隔は空けない。
type ResearchFetcher struct {
	feeds     []config.FeedSource
	client    HTTPClient
	validator URLValidator
	window    Window
	cfg       ResearchConfig
	logger    *slog.Logger
}

// NewResearchFetcher はResearchFetcherを生成する。
func NewResearchFetcher(
	feeds []config.FeedSource,
	client HTTPClient,
	validator URLValidator,
	window Window,
	cfg ResearchConfig,
	logger *slog.Logger,
) *ResearchFetcher {
	return &ResearchFetcher{
		feeds:     feeds,
		client:    client,
		validator: validator,
		window:    window,
		cfg:       cfg,
		logger:    logger,
	}
}

// Name はフェッチャーの識別名を返す。
func (f *ResearchFetcher) Name() string { return "research" }

// Fetch は全フィードを並行に取得する。
func (f *ResearchFetcher) Fetch(ctx context.Context) Result {
	results := Batch(ctx, f.feeds, BatchConfig{}, f.fetchFeed)
	return MergeAll(results)
}

func (f *ResearchFetcher) fetchFeed(ctx context.Context, src config.FeedSource) Result {
	entries, err := f.load(ctx, src.URL)
	if err != nil {
		f.logger.Warn("研究フォーラムの取得に失敗しました",
			slog.String("source", src.Name),
			slog.String("url", src.URL),
			slog.Int("http_status", StatusOf(err)),
			slog.String("error", err.Error()),
		)
		return Result{Failures: []Failure{{Source: src.Name, Target: src.URL, Reason: err.Error(), Status: StatusOf(err)}}}
	}

	category := src.Category
	if category == "" {
		category = model.DefaultCategory(model.SourceTypeResearch)
	}

	var items []model.NewItem
	for _, e := range entries {
		if !f.window.Contains(e.PublishedAt) || IsReplyPost(e.URL) {
			continue
		}
		items = append(items, model.NewItem{
			Title:       e.Title,
			URL:         e.URL,
			Description: normalizer.FeedDescription(e.Description),
			SourceType:  model.SourceTypeResearch,
			SourceName:  src.Name,
			Category:    category,
			PublishedAt: e.PublishedAt,
		})
	}
	return Result{Items: items}
}

func (f *ResearchFetcher) load(ctx context.Context, rawURL string) ([]feed.Entry, error) {
	if err := f.validator.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	body, err := GetBody(ctx, f.client, rawURL, f.cfg.UserAgent, f.cfg.MaxBodySize)
	if err != nil {
		return nil, err
	}
	return feed.Parse(body)
}

// IsReplyPost はURLがトピック本体ではなく個別の返信投稿を指すかを返す。
func IsReplyPost(rawURL string) bool {
	return replyPostPattern.MatchString(rawURL)
}
