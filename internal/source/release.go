package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/normalizer"
)

// ReleaseFetcher はGitHubリポジトリのリリースを取得する。
// クライアントと開発ツールで同じ実装を使い、SourceTypeで区別する。
type ReleaseFetcher struct {
	name       string
	sourceType model.SourceType
	repos      []config.RepoSource
	github     *GitHubClient
	window     Window
	batch      BatchConfig
	logger     *slog.Logger
}

// NewReleaseFetcher はReleaseFetcherを生成する。
func NewReleaseFetcher(
	name string,
	sourceType model.SourceType,
	repos []config.RepoSource,
	github *GitHubClient,
	window Window,
	batch BatchConfig,
	logger *slog.Logger,
) *ReleaseFetcher {
	return &ReleaseFetcher{
		name:       name,
		sourceType: sourceType,
		repos:      repos,
		github:     github,
		window:     window,
		batch:      batch,
		logger:     logger,
	}
}

// Name はフェッチャーの識別名を返す。
func (f *ReleaseFetcher) Name() string { return f.name }

// Fetch は全リポジトリのリリースをバッチ単位で取得する。
func (f *ReleaseFetcher) Fetch(ctx context.Context) Result {
	results := Batch(ctx, f.repos, f.batch, f.fetchRepo)
	return MergeAll(results)
}

func (f *ReleaseFetcher) fetchRepo(ctx context.Context, repo config.RepoSource) Result {
	releases, err := f.github.Releases(ctx, repo.Owner, repo.Repo)
	if err != nil {
		target := repo.Owner + "/" + repo.Repo
		f.logger.Warn("リリースの取得に失敗しました",
			slog.String("source", repo.Name),
			slog.String("url", target),
			slog.Int("http_status", StatusOf(err)),
			slog.String("error", err.Error()),
		)
		return Result{Failures: []Failure{{Source: repo.Name, Target: target, Reason: err.Error(), Status: StatusOf(err)}}}
	}

	sourceName := repo.Name
	if repo.Layer != "" {
		sourceName = fmt.Sprintf("%s (%s)", repo.Name, repo.Layer)
	}

	var items []model.NewItem
	for _, rel := range releases {
		if rel.Draft {
			continue
		}
		published := parseGitHubTime(rel.PublishedAt)
		if !f.window.Contains(published) {
			continue
		}

		version := ExtractVersion(rel.TagName)
		items = append(items, model.NewItem{
			Title:       repo.Name + " " + rel.TagName,
			URL:         rel.HTMLURL,
			Description: normalizer.Description(rel.Body, normalizer.DescriptionMaxLength),
			SourceType:  f.sourceType,
			SourceName:  sourceName,
			Category:    model.DefaultCategory(f.sourceType),
			PublishedAt: published,
			Version:     &version,
			Prerelease:  rel.Prerelease,
		})
	}
	return Result{Items: items}
}

// ExtractVersion はタグ名から先頭の"v"を1文字だけ取り除いたバージョンを返す。
func ExtractVersion(tagName string) string {
	return strings.TrimPrefix(tagName, "v")
}
