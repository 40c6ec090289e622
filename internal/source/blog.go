package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/feed"
	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/normalizer"
)

// maxRedirects はブログフィード取得時に追従するリダイレクトの上限。
const maxRedirects = 5

// ErrTooManyRedirects はリダイレクトが上限を超えた場合のエラー。
var ErrTooManyRedirects = errors.New("too many redirects")

// BlogConfig はBlogFetcherの設定。
type BlogConfig struct {
	// FeedDelay はフィード間の待ち時間。
	FeedDelay   time.Duration
	UserAgent   string
	MaxBodySize int64
}

// BlogFetcher はブログのRSS/Atomフィードを1件ずつ順番に取得する。
// リダイレクトは自動追従せず、各ホップのURLを検証してから追従する。
type BlogFetcher struct {
	feeds     []config.FeedSource
	client    HTTPClient
	validator URLValidator
	window    Window
	cfg       BlogConfig
	logger    *slog.Logger
}

// NewBlogFetcher はBlogFetcherを生成する。
// clientはリダイレクトを自動追従しない設定であること。
func NewBlogFetcher(
	feeds []config.FeedSource,
	client HTTPClient,
	validator URLValidator,
	window Window,
	cfg BlogConfig,
	logger *slog.Logger,
) *BlogFetcher {
	return &BlogFetcher{
		feeds:     feeds,
		client:    client,
		validator: validator,
		window:    window,
		cfg:       cfg,
		logger:    logger,
	}
}

// Name はフェッチャーの識別名を返す。
func (f *BlogFetcher) Name() string { return "blog_posts" }

// Fetch は全フィードを順番に取得する。各フィードの取得が終わってからFeedDelayだけ待って次へ進む。
// 待機中にコンテキストが終了した場合、残りのフィードは失敗として記録する。
func (f *BlogFetcher) Fetch(ctx context.Context) Result {
	var out Result
	for i, src := range f.feeds {
		out.Merge(f.fetchFeed(ctx, src))

		if i == len(f.feeds)-1 || f.cfg.FeedDelay <= 0 {
			continue
		}
		if err := f.pause(ctx); err != nil {
			for _, rest := range f.feeds[i+1:] {
				out.Failures = append(out.Failures, Failure{Source: rest.Name, Target: rest.URL, Reason: err.Error()})
			}
			return out
		}
	}
	return out
}

func (f *BlogFetcher) pause(ctx context.Context) error {
	timer := time.NewTimer(f.cfg.FeedDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *BlogFetcher) fetchFeed(ctx context.Context, src config.FeedSource) Result {
	body, err := f.fetchWithRedirects(ctx, src.URL)
	if err == nil {
		var entries []feed.Entry
		entries, err = feed.Parse(body)
		if err == nil {
			return Result{Items: f.toItems(src, entries)}
		}
	}

	f.logger.Warn("ブログフィードの取得に失敗しました",
		slog.String("source", src.Name),
		slog.String("url", src.URL),
		slog.Int("http_status", StatusOf(err)),
		slog.String("error", err.Error()),
	)
	return Result{Failures: []Failure{{Source: src.Name, Target: src.URL, Reason: err.Error(), Status: StatusOf(err)}}}
}

func (f *BlogFetcher) toItems(src config.FeedSource, entries []feed.Entry) []model.NewItem {
	category := src.Category
	if category == "" {
		category = model.DefaultCategory(model.SourceTypeBlogPost)
	}

	var items []model.NewItem
	for _, e := range entries {
		if !f.window.Contains(e.PublishedAt) {
			continue
		}
		items = append(items, model.NewItem{
			Title:       e.Title,
			URL:         e.URL,
			Description: normalizer.FeedDescription(e.Description),
			SourceType:  model.SourceTypeBlogPost,
			SourceName:  src.Name,
			Category:    category,
			PublishedAt: e.PublishedAt,
		})
	}
	return items
}

// fetchWithRedirects はリダイレクトを最大maxRedirects回まで手動で追従してボディを取得する。
func (f *BlogFetcher) fetchWithRedirects(ctx context.Context, rawURL string) ([]byte, error) {
	current := rawURL
	for hops := 0; ; hops++ {
		if err := f.validator.ValidateURL(current); err != nil {
			return nil, fmt.Errorf("URL検証に失敗: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, fmt.Errorf("リダイレクト先がありません: %w", &StatusError{URL: current, StatusCode: resp.StatusCode})
			}
			if hops >= maxRedirects {
				return nil, fmt.Errorf("%w: %s", ErrTooManyRedirects, rawURL)
			}
			next, err := resolveReference(current, location)
			if err != nil {
				return nil, err
			}
			current = next
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{URL: current, StatusCode: resp.StatusCode}
		}
		return readBody(resp.Body, f.cfg.MaxBodySize)
	}
}

// resolveReference はLocationヘッダを現在のURL基準で絶対URLに解決する。
func resolveReference(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return b.ResolveReference(ref).String(), nil
}
