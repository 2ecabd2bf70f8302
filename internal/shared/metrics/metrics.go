package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	apiRequestsTotal        atomic.Uint64
	apiRequestFailuresTotal atomic.Uint64

	submissionsStartedTotal   atomic.Uint64
	submissionsSucceededTotal atomic.Uint64
	submissionsFailedTotal    atomic.Uint64
	staleResponsesTotal       atomic.Uint64

	apiRequestDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 120000})
)

// ObserveAPIRequest records one outbound call and its duration.
func ObserveAPIRequest(start time.Time, failed bool) {
	apiRequestsTotal.Add(1)
	if failed {
		apiRequestFailuresTotal.Add(1)
	}
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	if ms < 0 {
		ms = 0
	}
	apiRequestDuration.Observe(ms)
}

// IncSubmissionStarted increments the started counter.
func IncSubmissionStarted() {
	submissionsStartedTotal.Add(1)
}

// IncSubmissionSucceeded increments the succeeded counter.
func IncSubmissionSucceeded() {
	submissionsSucceededTotal.Add(1)
}

// IncSubmissionFailed increments the failed counter.
func IncSubmissionFailed() {
	submissionsFailedTotal.Add(1)
}

// IncStaleResponse counts responses discarded because their originating state was gone.
func IncStaleResponse() {
	staleResponsesTotal.Add(1)
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
	writeCounter(&buf, "api_requests_total", "Total outbound API requests", apiRequestsTotal.Load())
	writeCounter(&buf, "api_request_failures_total", "Outbound API requests that failed", apiRequestFailuresTotal.Load())
	writeCounter(&buf, "analysis_submissions_started_total", "Analysis submissions started", submissionsStartedTotal.Load())
	writeCounter(&buf, "analysis_submissions_succeeded_total", "Analysis submissions succeeded", submissionsSucceededTotal.Load())
	writeCounter(&buf, "analysis_submissions_failed_total", "Analysis submissions failed", submissionsFailedTotal.Load())
	writeCounter(&buf, "analysis_stale_responses_total", "Responses discarded as stale", staleResponsesTotal.Load())
	writeHistogram(&buf, "api_request_duration_ms", "Outbound API request duration in milliseconds", apiRequestDuration.Snapshot())
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

// Observe adds value to the first bucket whose bound holds it.
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
