// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 取り込みパイプラインから利用する。
type MetricsCollector interface {
	RecordRun(duration time.Duration, err error)
	RecordItemsFetched(sourceType string, count int)
	RecordItemsInserted(count int)
	RecordSourceFailure(fetcher string)
	RecordHTTPStatus(statusCode int)
	RecordIssueMatched(count int, newIssue bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	runs          *prometheus.CounterVec
	runLatency    prometheus.Histogram
	itemsFetched  *prometheus.CounterVec
	itemsInserted prometheus.Counter
	sourceFail    *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	issueMatched  prometheus.Counter
	issuesNew     prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethfeed_ingest_runs_total",
			Help: "取り込み実行の合計数",
		}, []string{"result"}),
		runLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ethfeed_ingest_duration_seconds",
			Help:    "取り込み実行の所要時間（秒）",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		itemsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethfeed_items_fetched_total",
			Help: "取得した記事の合計数（ソース種別別）",
		}, []string{"source_type"}),
		itemsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethfeed_items_inserted_total",
			Help: "新規に登録された記事の合計数",
		}),
		sourceFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethfeed_source_failures_total",
			Help: "取得元ごとの取得失敗の合計数",
		}, []string{"fetcher"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethfeed_upstream_http_status_total",
			Help: "取得失敗時の上流HTTPステータスコード別の件数",
		}, []string{"status_code"}),
		issueMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethfeed_issue_matched_total",
			Help: "ニュースレターの号に割り当てられた記事の合計数",
		}),
		issuesNew: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethfeed_issue_new_total",
			Help: "新しく検出されたニュースレターの号の数",
		}),
	}

	reg.MustRegister(
		c.runs,
		c.runLatency,
		c.itemsFetched,
		c.itemsInserted,
		c.sourceFail,
		c.httpStatus,
		c.issueMatched,
		c.issuesNew,
	)

	return c
}

// RecordRun は取り込み実行の結果と所要時間を記録する。
func (c *Collector) RecordRun(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.runs.WithLabelValues(result).Inc()
	c.runLatency.Observe(duration.Seconds())
}

// RecordItemsFetched はソース種別ごとの取得件数を記録する。
func (c *Collector) RecordItemsFetched(sourceType string, count int) {
	c.itemsFetched.WithLabelValues(sourceType).Add(float64(count))
}

// RecordItemsInserted は新規登録件数を記録する。
func (c *Collector) RecordItemsInserted(count int) {
	c.itemsInserted.Add(float64(count))
}

// RecordSourceFailure は取得元の失敗を記録する。
func (c *Collector) RecordSourceFailure(fetcher string) {
	c.sourceFail.WithLabelValues(fetcher).Inc()
}

// RecordHTTPStatus は上流のHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordIssueMatched は号との照合結果を記録する。
func (c *Collector) RecordIssueMatched(count int, newIssue bool) {
	c.issueMatched.Add(float64(count))
	if newIssue {
		c.issuesNew.Inc()
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
