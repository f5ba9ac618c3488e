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
// パイプラインやワーカーから利用する。
type MetricsCollector interface {
	RecordLookupSuccess()
	RecordLookupFailure(reason string)
	RecordLookupLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordItemsSubmitted(status string, count int)
	RecordRunCompleted(itemType string)
	RecordRunsDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	lookupSuccess  prometheus.Counter
	lookupFail     *prometheus.CounterVec
	lookupLatency  prometheus.Histogram
	httpStatus     *prometheus.CounterVec
	itemsSubmitted *prometheus.CounterVec
	runsCompleted  *prometheus.CounterVec
	runsDeleted    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		lookupSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chomp_place_lookup_success_total",
			Help: "場所解決成功の合計数",
		}),
		lookupFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chomp_place_lookup_fail_total",
			Help: "場所解決失敗の理由別合計数",
		}, []string{"reason"}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chomp_place_lookup_latency_seconds",
			Help:    "場所解決のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chomp_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		itemsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chomp_bulk_items_submitted_total",
			Help: "一括投入された行の結果別合計数",
		}, []string{"status"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chomp_bulk_runs_completed_total",
			Help: "完了した一括追加実行の種別別合計数",
		}, []string{"item_type"}),
		runsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chomp_bulk_runs_deleted_total",
			Help: "保持期間超過で削除された実行履歴の合計数",
		}),
	}

	reg.MustRegister(
		c.lookupSuccess,
		c.lookupFail,
		c.lookupLatency,
		c.httpStatus,
		c.itemsSubmitted,
		c.runsCompleted,
		c.runsDeleted,
	)

	return c
}

// RecordLookupSuccess は場所解決成功を記録する。
func (c *Collector) RecordLookupSuccess() {
	c.lookupSuccess.Inc()
}

// RecordLookupFailure は場所解決失敗を理由付きで記録する。
func (c *Collector) RecordLookupFailure(reason string) {
	c.lookupFail.WithLabelValues(reason).Inc()
}

// RecordLookupLatency は場所解決のレイテンシを記録する。
func (c *Collector) RecordLookupLatency(duration time.Duration) {
	c.lookupLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordItemsSubmitted は一括投入された行数を結果別に記録する。
func (c *Collector) RecordItemsSubmitted(status string, count int) {
	c.itemsSubmitted.WithLabelValues(status).Add(float64(count))
}

// RecordRunCompleted は一括追加実行の完了を記録する。
func (c *Collector) RecordRunCompleted(itemType string) {
	c.runsCompleted.WithLabelValues(itemType).Inc()
}

// RecordRunsDeleted は削除された実行履歴数を記録する。
func (c *Collector) RecordRunsDeleted(count int64) {
	c.runsDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
