// Package metrics 提供 Prometheus 指标：HTTP 请求、文件登记与移除、对账与存在性探测，
// 以及按频道统计的实时采集器.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		return err
//	}
//
//	metrics.FilesIngested.WithLabelValues("document").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 注册 pprof 端点到 http.DefaultServeMux
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/filetally/pkg/configs"
)

const namespace = "filetally"

var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// FilesIngested 按媒体类型统计的文件登记次数.
	FilesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Files recorded, by media kind",
		},
		[]string{"kind"},
	)

	// FilesRemoved 按原因统计的文件移除次数.
	FilesRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_removed_total",
			Help:      "Files removed from the index, by reason",
		},
		[]string{"reason"},
	)

	// ObservationsSkipped 未登记的观察事件，按原因（duplicate、no_media、invalid）.
	ObservationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_skipped_total",
			Help:      "File observations that did not create a record",
		},
		[]string{"reason"},
	)

	// ReconcileRuns 对账执行次数，按结果（ok、canceled、failed）.
	ReconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation sweeps executed",
		},
		[]string{"result"},
	)

	// ReconcileDuration 单次对账耗时.
	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation sweeps",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	// ProbeResults 存在性探测结果（exists、gone、error、rejected）.
	ProbeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Existence probe outcomes",
		},
		[]string{"result"},
	)

	registry = prometheus.NewRegistry()
	// registerer 带默认标签的注册入口.
	registerer prometheus.Registerer = registry
	initOnce   sync.Once
)

// InitMetrics 注册全部指标，重复调用只生效一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		if len(config.Labels) > 0 {
			registerer = prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)
		}

		if config.RuntimeMetrics {
			registerer.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		for _, c := range []prometheus.Collector{
			RequestCounter, RequestDuration,
			FilesIngested, FilesRemoved, ObservationsSkipped,
			ReconcileRuns, ReconcileDuration, ProbeResults,
		} {
			if e := registerer.Register(c); e != nil {
				err = e
				return
			}
		}
	})

	return err
}

// Handler 返回指标的 HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// StartMetricsServer 把指标与可选的 pprof 端点挂到 engine 上.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(Handler()))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Registerer 返回带默认标签的注册入口，供存储层等组件注册自身指标.
func Registerer() prometheus.Registerer {
	return registerer
}
