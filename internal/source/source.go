// Package source は外部の取得元から記事を取得し、共通の記事形式に変換するフェッチャーを提供する。
//
// フェッチャーはエラーを返さない。取得元ごとの失敗はResult.Failuresに記録され、
// 他の取得元の処理は継続する。
package source

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ethfeed/internal/model"
)

// Fetcher は1つの取得元ファミリーから記事を取得する。
type Fetcher interface {
	// Name はフェッチャーの識別名を返す。集計とログに使う。
	Name() string
	// Fetch は記事を取得する。失敗は戻り値のFailuresに含め、panicやエラーで中断しない。
	Fetch(ctx context.Context) Result
}

// Result はフェッチ結果を表す。
type Result struct {
	Items    []model.NewItem
	Failures []Failure
}

// Failure は取得元単位の失敗を表す。
type Failure struct {
	Source string `json:"source"` // 取得元の表示名
	Target string `json:"target"` // リポジトリ名またはフィードURL
	Reason string `json:"reason"`
	// Status は上流のHTTPステータス。HTTP以外の失敗では0。
	Status int `json:"http_status,omitempty"`
}

// Merge はoの内容を末尾に連結する。
func (r *Result) Merge(o Result) {
	r.Items = append(r.Items, o.Items...)
	r.Failures = append(r.Failures, o.Failures...)
}

// MergeAll は複数の結果を順序を保って連結する。
func MergeAll(results []Result) Result {
	var out Result
	for _, r := range results {
		out.Merge(r)
	}
	return out
}

// HTTPClient はHTTPリクエストの送信を抽象化する。
// 本番ではsecurity.Guardが生成するクライアント、テストではhttptest向けのクライアントを渡す。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// URLValidator はリクエスト前のURL検証を抽象化する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Window は「直近N日」の鮮度判定を表す。
type Window struct {
	Duration time.Duration
	// Now は現在時刻を返す。nilの場合はtime.Now。
	Now func() time.Time
}

// Contains はtがpublished >= now - Durationを満たすかを返す。
// ゼロ値（パース不能な日付）は常に範囲外とする。
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return !t.Before(now().Add(-w.Duration))
}
