package ecs

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TaskSummary captures execution metadata for one completed task.
type TaskSummary struct {
	Name     string
	Reads    []string
	Writes   []string
	Visited  int
	Duration time.Duration
	Panicked bool
}

// BatchSummary captures metadata for one batch, published from Wait after
// deferred commands have been applied.
type BatchSummary struct {
	Tasks    int
	Panics   int
	Commands int
	Duration time.Duration
	Err      error
}

// Observer receives completion summaries from the scheduler. Task
// callbacks fire from worker goroutines and must be safe for concurrent
// use; batch callbacks fire from the goroutine calling Wait.
type Observer interface {
	TaskCompleted(TaskSummary)
	BatchCompleted(BatchSummary)
}

type nopObserver struct{}

func (nopObserver) TaskCompleted(TaskSummary)   {}
func (nopObserver) BatchCompleted(BatchSummary) {}

// NewCompositeObserver fans summaries out to several observers in order.
// Nil entries are skipped.
func NewCompositeObserver(observers ...Observer) Observer {
	kept := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}
	switch len(kept) {
	case 0:
		return nopObserver{}
	case 1:
		return kept[0]
	}
	return compositeObserver{observers: kept}
}

type compositeObserver struct {
	observers []Observer
}

func (c compositeObserver) TaskCompleted(summary TaskSummary) {
	for _, o := range c.observers {
		o.TaskCompleted(summary)
	}
}

func (c compositeObserver) BatchCompleted(summary BatchSummary) {
	for _, o := range c.observers {
		o.BatchCompleted(summary)
	}
}

// NewLoggingObserver emits summaries through the logger: tasks at debug,
// batches at info, anything that failed at error.
func NewLoggingObserver(logger Logger) Observer {
	if logger == nil {
		return nopObserver{}
	}
	return loggingObserver{logger: logger}
}

type loggingObserver struct {
	logger Logger
}

func (o loggingObserver) TaskCompleted(summary TaskSummary) {
	args := []any{
		"task", summary.Name,
		"reads", strings.Join(summary.Reads, ","),
		"writes", strings.Join(summary.Writes, ","),
		"visited", summary.Visited,
		"duration", summary.Duration,
	}
	if summary.Panicked {
		o.logger.Error("task panicked", args...)
		return
	}
	o.logger.Debug("task completed", args...)
}

func (o loggingObserver) BatchCompleted(summary BatchSummary) {
	args := []any{
		"tasks", summary.Tasks,
		"panics", summary.Panics,
		"commands", summary.Commands,
		"duration", summary.Duration,
	}
	if summary.Err != nil {
		args = append(args, "err", summary.Err.Error())
		o.logger.Error("batch completed with errors", args...)
		return
	}
	if summary.Panics > 0 {
		o.logger.Error("batch completed with panics", args...)
		return
	}
	o.logger.Info("batch completed", args...)
}

// PrometheusObserver exports scheduler summaries as Prometheus metrics.
type PrometheusObserver struct {
	taskDuration  *prometheus.HistogramVec
	tasksTotal    *prometheus.CounterVec
	visitedTotal  *prometheus.CounterVec
	batchDuration prometheus.Histogram
	batchesTotal  prometheus.Counter
	commandsTotal prometheus.Counter
	batchErrors   prometheus.Counter
}

// NewPrometheusObserver registers the scheduler metrics with reg and
// returns the observer feeding them. A nil registerer falls back to the
// default one. Registering twice against the same registerer panics, as
// usual for duplicate collectors.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusObserver{
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecs_task_duration_seconds",
			Help:    "Task execution duration, borrow wait included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecs_tasks_total",
			Help: "Tasks completed, by outcome.",
		}, []string{"task", "status"}),
		visitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecs_entities_visited_total",
			Help: "Entities visited by task iteration.",
		}, []string{"task"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecs_batch_duration_seconds",
			Help:    "Batch duration from first submission to Wait.",
			Buckets: prometheus.DefBuckets,
		}),
		batchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ecs_batches_total",
			Help: "Batches synchronized.",
		}),
		commandsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ecs_commands_applied_total",
			Help: "Deferred commands applied at synchronization points.",
		}),
		batchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ecs_batch_errors_total",
			Help: "Batches whose deferred commands failed.",
		}),
	}
}

func (o *PrometheusObserver) TaskCompleted(summary TaskSummary) {
	status := "ok"
	if summary.Panicked {
		status = "panic"
	}
	o.taskDuration.WithLabelValues(summary.Name).Observe(summary.Duration.Seconds())
	o.tasksTotal.WithLabelValues(summary.Name, status).Inc()
	if summary.Visited > 0 {
		o.visitedTotal.WithLabelValues(summary.Name).Add(float64(summary.Visited))
	}
}

func (o *PrometheusObserver) BatchCompleted(summary BatchSummary) {
	o.batchDuration.Observe(summary.Duration.Seconds())
	o.batchesTotal.Inc()
	if summary.Commands > 0 {
		o.commandsTotal.Add(float64(summary.Commands))
	}
	if summary.Err != nil {
		o.batchErrors.Inc()
	}
}

// JSONSpanExporter writes one JSON span per task and per batch to a
// writer, newline delimited, in a shape trace collectors ingest directly.
type JSONSpanExporter struct {
	service string
	mu      sync.Mutex
	w       io.Writer
}

// NewJSONSpanExporter constructs an exporter writing to w. An empty
// service name defaults to "ecs-scheduler".
func NewJSONSpanExporter(w io.Writer, service string) *JSONSpanExporter {
	if service == "" {
		service = "ecs-scheduler"
	}
	return &JSONSpanExporter{service: service, w: w}
}

func (e *JSONSpanExporter) TaskCompleted(summary TaskSummary) {
	e.export(map[string]any{
		"service_name": e.service,
		"name":         "task:" + summary.Name,
		"timestamp":    time.Now().UnixNano(),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"reads":    summary.Reads,
			"writes":   summary.Writes,
			"visited":  summary.Visited,
			"panicked": summary.Panicked,
		},
	})
}

func (e *JSONSpanExporter) BatchCompleted(summary BatchSummary) {
	span := map[string]any{
		"service_name": e.service,
		"name":         "batch",
		"timestamp":    time.Now().UnixNano(),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"tasks":    summary.Tasks,
			"panics":   summary.Panics,
			"commands": summary.Commands,
		},
	}
	if summary.Err != nil {
		span["error"] = summary.Err.Error()
	}
	e.export(span)
}

func (e *JSONSpanExporter) export(span map[string]any) {
	if e.w == nil {
		return
	}
	payload, err := json.Marshal(span)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.w.Write(append(payload, '\n'))
}

var (
	_ Observer = nopObserver{}
	_ Observer = compositeObserver{}
	_ Observer = loggingObserver{}
	_ Observer = (*PrometheusObserver)(nil)
	_ Observer = (*JSONSpanExporter)(nil)
)
