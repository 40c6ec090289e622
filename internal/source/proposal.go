package source

import (
	"context"
	"log/slog"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/normalizer"
)

// ProposalFetcher はEIP/ERCリポジトリから新規提案のPull Requestを取得する。
type ProposalFetcher struct {
	proposals []config.ProposalSource
	github    *GitHubClient
	window    Window
	logger    *slog.Logger
}

// NewProposalFetcher はProposalFetcherを生成する。
func NewProposalFetcher(proposals []config.ProposalSource, github *GitHubClient, window Window, logger *slog.Logger) *ProposalFetcher {
	return &ProposalFetcher{proposals: proposals, github: github, window: window, logger: logger}
}

// Name はフェッチャーの識別名を返す。
func (f *ProposalFetcher) Name() string { return "proposals" }

// Fetch は全提案リポジトリを並行に取得する。
func (f *ProposalFetcher) Fetch(ctx context.Context) Result {
	results := Batch(ctx, f.proposals, BatchConfig{}, f.fetchProposals)
	return MergeAll(results)
}

func (f *ProposalFetcher) fetchProposals(ctx context.Context, src config.ProposalSource) Result {
	issues, err := f.github.Issues(ctx, src.Owner, src.Repo, src.Label)
	if err != nil {
		target := src.Owner + "/" + src.Repo
		f.logger.Warn("提案の取得に失敗しました",
			slog.String("source", src.Name),
			slog.String("url", target),
			slog.Int("http_status", StatusOf(err)),
			slog.String("error", err.Error()),
		)
		return Result{Failures: []Failure{{Source: src.Name, Target: target, Reason: err.Error(), Status: StatusOf(err)}}}
	}

	category := src.Category
	if category == "" {
		category = model.DefaultCategory(model.SourceTypeProposal)
	}

	var items []model.NewItem
	for _, is := range issues {
		// Pull Requestのみ対象
		if is.PullRequest == nil || is.PullRequest.HTMLURL == "" {
			continue
		}
		created := parseGitHubTime(is.CreatedAt)
		if !f.window.Contains(created) {
			continue
		}
		items = append(items, model.NewItem{
			Title:       is.Title,
			URL:         is.PullRequest.HTMLURL,
			Description: normalizer.Description(is.Body, normalizer.DescriptionMaxLength),
			SourceType:  model.SourceTypeProposal,
			SourceName:  src.Name,
			Category:    category,
			PublishedAt: created,
		})
	}
	return Result{Items: items}
}
