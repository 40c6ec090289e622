// Package ingest は全取得元の取得、記事登録、ニュースレターとの照合を1回の実行としてまとめる。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/ethfeed/internal/issue"
	"github.com/hitoshi/ethfeed/internal/metrics"
	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/source"
)

// ErrRunning は別の実行が進行中であることを表す。
var ErrRunning = errors.New("ingest already running")

// Upserter は記事の登録を行う。
type Upserter interface {
	UpsertItems(ctx context.Context, items []model.NewItem) (int, error)
}

// IssueMatcher はニュースレターの最新号の取得と照合を行う。
type IssueMatcher interface {
	FetchLatest(ctx context.Context) *issue.Issue
	Apply(ctx context.Context, is *issue.Issue) (*issue.Result, error)
}

// Summary は1回の実行結果。
type Summary struct {
	RunID      string                   `json:"run_id"`
	Fetched    int                      `json:"fetched"`
	Inserted   int                      `json:"inserted"`
	Breakdown  map[model.SourceType]int `json:"breakdown"`
	Failures   []source.Failure         `json:"failures"`
	Issue      *issue.Result            `json:"issue"`
	DurationMS int64                    `json:"duration_ms"`
}

// Pipeline は取り込みパイプライン。
// 同時に実行できるのは1つだけで、実行中の呼び出しはErrRunningで拒否する。
type Pipeline struct {
	fetchers []source.Fetcher
	matcher  IssueMatcher
	upserter Upserter
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewPipeline はPipelineを生成する。matcherがnilの場合は照合を行わない。
func NewPipeline(
	fetchers []source.Fetcher,
	matcher IssueMatcher,
	upserter Upserter,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetchers: fetchers,
		matcher:  matcher,
		upserter: upserter,
		metrics:  collector,
		logger:   logger,
	}
}

// Run は取り込みを1回実行する。別の実行が進行中の場合はErrRunningを返す。
//
// 全フェッチャーと最新号の取得を並行に行い、記事を登録した後に照合する。
// 照合は今回登録した記事も対象にするため、登録の完了後に行う。
// 取得元ごとの失敗はSummary.Failuresに含まれ、エラーにはならない。
// エラーになるのはストアの失敗のみ。
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunning
	}
	defer p.mu.Unlock()

	start := time.Now()
	runID := uuid.New().String()
	logger := p.logger.With(slog.String("run_id", runID))

	logger.Info("取り込みを開始します", slog.Int("fetchers", len(p.fetchers)))

	summary, err := p.run(ctx, runID, logger)
	duration := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordRun(duration, err)
	}
	if err != nil {
		logger.Error("取り込みに失敗しました",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", duration.Milliseconds()),
		)
		return nil, err
	}

	summary.DurationMS = duration.Milliseconds()
	logger.Info("取り込みが完了しました",
		slog.Int("fetched", summary.Fetched),
		slog.Int("inserted", summary.Inserted),
		slog.Int("failures", len(summary.Failures)),
		slog.Bool("issue_found", summary.Issue != nil),
		slog.Int64("duration_ms", summary.DurationMS),
	)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, logger *slog.Logger) (*Summary, error) {
	results := make([]source.Result, len(p.fetchers))
	var latest *issue.Issue

	var g errgroup.Group
	for i, f := range p.fetchers {
		g.Go(func() error {
			fetchStart := time.Now()
			results[i] = f.Fetch(ctx)
			logger.Info("取得元の処理が完了しました",
				slog.String("source", f.Name()),
				slog.Int("items", len(results[i].Items)),
				slog.Int("failures", len(results[i].Failures)),
				slog.Int64("duration_ms", time.Since(fetchStart).Milliseconds()),
			)
			return nil
		})
	}
	if p.matcher != nil {
		g.Go(func() error {
			latest = p.matcher.FetchLatest(ctx)
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{
		RunID:     runID,
		Breakdown: make(map[model.SourceType]int, len(model.SourceTypes)),
		Failures:  []source.Failure{},
	}
	for _, st := range model.SourceTypes {
		summary.Breakdown[st] = 0
	}

	var items []model.NewItem
	for i, r := range results {
		items = append(items, r.Items...)
		summary.Failures = append(summary.Failures, r.Failures...)
		for _, it := range r.Items {
			summary.Breakdown[it.SourceType]++
		}
		if p.metrics != nil {
			for _, fl := range r.Failures {
				p.metrics.RecordSourceFailure(p.fetchers[i].Name())
				if fl.Status > 0 {
					p.metrics.RecordHTTPStatus(fl.Status)
				}
			}
		}
	}
	summary.Fetched = len(items)
	if p.metrics != nil {
		for st, n := range summary.Breakdown {
			p.metrics.RecordItemsFetched(string(st), n)
		}
	}

	inserted, err := p.upserter.UpsertItems(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("記事の登録に失敗: %w", err)
	}
	summary.Inserted = inserted
	if p.metrics != nil {
		p.metrics.RecordItemsInserted(inserted)
	}

	if latest != nil {
		res, err := p.matcher.Apply(ctx, latest)
		if err != nil {
			return nil, fmt.Errorf("ニュースレターとの照合に失敗: %w", err)
		}
		summary.Issue = res
		if p.metrics != nil {
			p.metrics.RecordIssueMatched(res.MatchedCount, res.IsNewIssue)
		}
	}

	return summary, nil
}
