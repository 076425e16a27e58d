package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docqa_http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var chunkQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docqa_chunk_queries_total",
	Help: "Chunk queries labelled by outcome",
}, []string{"outcome"})

var llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "docqa_llm_call_duration_seconds",
	Help:    "Latency of model provider calls.",
	Buckets: []float64{.25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"provider", "status"})

var answerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "docqa_answer_duration_seconds",
	Help:    "Total time spent answering one question over a whole document.",
	Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
}, []string{"status"})

var jobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "docqa_jobs_in_queue",
	Help: "Number of question jobs waiting for a worker",
})

func ChunkSucceeded() {
	chunkQueries.WithLabelValues("success").Inc()
}

func ChunkFailed() {
	chunkQueries.WithLabelValues("failure").Inc()
}

func ChunkRetried() {
	chunkQueries.WithLabelValues("retry").Inc()
}

func CaptureLLMCall(provider string, ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	llmLatency.WithLabelValues(provider, status).Observe(elapsed.Seconds())
}

func CaptureAnswer(status string, elapsed time.Duration) {
	answerDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func IncrementJobsInQueue() {
	jobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	jobsInQueue.Dec()
}
