package source

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchConfig はバッチ実行の設定。
type BatchConfig struct {
	// Size は同時に実行する件数。0以下の場合は全件を1グループで実行する。
	Size int
	// Delay はグループ間の待ち時間。最後のグループの後は待たない。
	Delay time.Duration
}

// DefaultBatchConfig は既定のバッチ設定（10件ずつ、200ms間隔）を返す。
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{Size: 10, Delay: 200 * time.Millisecond}
}

// Batch はinputsを固定サイズのグループに分け、グループ内を並行に実行する。
// 出力は入力順に並ぶ。fnはエラーを返さず、失敗は戻り値で表現すること。
// ctxがキャンセルされた場合は残りのグループを実行せずに、それまでの出力を返す。
func Batch[T, R any](ctx context.Context, inputs []T, cfg BatchConfig, fn func(context.Context, T) R) []R {
	if len(inputs) == 0 {
		return nil
	}
	size := cfg.Size
	if size <= 0 {
		size = len(inputs)
	}

	out := make([]R, 0, len(inputs))
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))

		group := make([]R, end-start)
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				group[i-start] = fn(ctx, inputs[i])
				return nil
			})
		}
		_ = g.Wait()
		out = append(out, group...)

		if end < len(inputs) && cfg.Delay > 0 {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out
			case <-timer.C:
			}
		}
	}
	return out
}
