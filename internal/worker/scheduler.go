// Package worker は取り込みパイプラインの定期実行を提供する。
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/ethfeed/internal/ingest"
)

// Runner は取り込みを1回実行する。
type Runner interface {
	Run(ctx context.Context) (*ingest.Summary, error)
}

// Scheduler は一定間隔で取り込みを実行する。
// 前回の実行（APIからの手動実行を含む）が終わっていない場合はその回をスキップする。
type Scheduler struct {
	runner Runner
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は起動直後に1回実行し、以降はintervalごとに実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は取り込みを1回実行する。失敗はログに記録し、スケジューラは継続する。
// 実行したかどうかを返す。
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	_, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ingest.ErrRunning):
		s.logger.Info("前回の取り込みが実行中のためスキップします")
		return false
	case err != nil:
		s.logger.Error("取り込みサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return true
}
