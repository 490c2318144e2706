// Package prometheus provides the Prometheus implementation of
// metrics.Recorder.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelf-fs/shelf/pkg/metrics"
)

// Recorder is a metrics.Recorder backed by a dedicated Prometheus
// registry.
type Recorder struct {
	registry *prometheus.Registry

	uploadBytes    prometheus.Histogram
	downloadBytes  prometheus.Histogram
	deleteOutcomes *prometheus.CounterVec
}

var _ metrics.Recorder = (*Recorder)(nil)

// byteBuckets covers the typical spread of stored file sizes.
var byteBuckets = []float64{
	4096,       // 4KB
	32768,      // 32KB
	131072,     // 128KB
	524288,     // 512KB
	1048576,    // 1MB
	4194304,    // 4MB
	10485760,   // 10MB
	104857600,  // 100MB
	1073741824, // 1GB
}

// New creates a Recorder with its own registry, including the standard
// process and Go runtime collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())

	return &Recorder{
		registry: reg,
		uploadBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shelf_fs_upload_bytes",
				Help:    "Distribution of uploaded file sizes in bytes",
				Buckets: byteBuckets,
			},
		),
		downloadBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shelf_fs_download_bytes",
				Help:    "Distribution of downloaded file sizes in bytes",
				Buckets: byteBuckets,
			},
		),
		deleteOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_fs_delete_items_total",
				Help: "Total items processed by delete operations, by outcome",
			},
			[]string{"outcome"}, // "deleted", "skipped", "failed"
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveUpload(bytes int64) {
	if r == nil {
		return
	}
	r.uploadBytes.Observe(float64(bytes))
}

func (r *Recorder) ObserveDownload(bytes int64) {
	if r == nil {
		return
	}
	r.downloadBytes.Observe(float64(bytes))
}

func (r *Recorder) ObserveDelete(deleted, skipped, failed int) {
	if r == nil {
		return
	}
	r.deleteOutcomes.WithLabelValues("deleted").Add(float64(deleted))
	r.deleteOutcomes.WithLabelValues("skipped").Add(float64(skipped))
	r.deleteOutcomes.WithLabelValues("failed").Add(float64(failed))
}
