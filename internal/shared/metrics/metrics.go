package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type counter struct {
	name string
	help string
	v    atomic.Uint64
}

var (
	analysisStarted   = &counter{name: "ats_analysis_started_total", help: "Total analyses started"}
	analysisCompleted = &counter{name: "ats_analysis_completed_total", help: "Total analyses completed"}
	analysisFailed    = &counter{name: "ats_analysis_failed_total", help: "Total analyses failed"}

	modelCacheHits   = &counter{name: "ats_model_cache_hits_total", help: "Model list requests served from cache"}
	modelCacheMisses = &counter{name: "ats_model_cache_misses_total", help: "Model list requests that found the cache stale or empty"}
	modelFetches     = &counter{name: "ats_model_fetches_total", help: "Outbound model list fetches"}
	modelStaleServes = &counter{name: "ats_model_stale_serves_total", help: "Stale model lists served after a failed fetch"}

	counters = []*counter{
		analysisStarted, analysisCompleted, analysisFailed,
		modelCacheHits, modelCacheMisses, modelFetches, modelStaleServes,
	}

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() { analysisStarted.v.Add(1) }

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() { analysisCompleted.v.Add(1) }

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() { analysisFailed.v.Add(1) }

func IncModelCacheHit()   { modelCacheHits.v.Add(1) }
func IncModelCacheMiss()  { modelCacheMisses.v.Add(1) }
func IncModelFetch()      { modelFetches.v.Add(1) }
func IncModelStaleServe() { modelStaleServes.v.Add(1) }

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, c := range counters {
		writeCounter(&buf, c.name, c.help, c.v.Load())
	}
	writeHistogram(&buf, "ats_analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound covers it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
