package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

// steppingClock advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		value := current
		current = current.Add(step)
		return value
	}
}

func TestClientObservability_SearchSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	client := newTestClient(t, &fakeRegistry{},
		WithMetricsRecorder(metrics),
		withCaptureLogger(logger),
		WithClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 15*time.Millisecond)),
	)

	if _, err := client.Search(context.Background(), SearchRequest{Direction: DirectionBackward}); err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(metrics.counters) != 1 || metrics.counters[0].name != "cloudlib.search.total" {
		t.Fatalf("unexpected counters: %#v", metrics.counters)
	}
	if metrics.counters[0].tags["status"] != "success" || metrics.counters[0].tags["direction"] != "backward" {
		t.Fatalf("unexpected counter tags: %#v", metrics.counters[0].tags)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].name != "cloudlib.search.duration_ms" {
		t.Fatalf("unexpected histograms: %#v", metrics.histograms)
	}
	if metrics.histograms[0].value != 15 {
		t.Fatalf("expected 15ms duration, got %v", metrics.histograms[0].value)
	}

	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "info" || logs[0].msg != "search succeeded" {
		t.Fatalf("unexpected logs: %#v", logs)
	}
	if logs[0].fields["operation"] != "search" {
		t.Fatalf("expected operation field, got %#v", logs[0].fields)
	}
}

func TestClientObservability_ResolveFailure(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	remote := &fakeRegistry{
		queryFn: func(NodesetQuery) (ResultPage[NodesetRecord], error) {
			return ResultPage[NodesetRecord]{}, errBoom
		},
	}
	client := newTestClient(t, remote, WithMetricsRecorder(metrics), withCaptureLogger(logger))

	if _, err := client.Resolve(context.Background(), opcuaDI, date(2023, 1, 1), true); err == nil {
		t.Fatalf("expected resolve failure")
	}

	if len(metrics.counters) != 1 {
		t.Fatalf("expected one counter, got %d", len(metrics.counters))
	}
	tags := metrics.counters[0].tags
	if tags["status"] != "failure" || tags["exact_match"] != "true" {
		t.Fatalf("unexpected tags: %#v", tags)
	}
	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "error" || logs[0].msg != "resolve failed" {
		t.Fatalf("unexpected logs: %#v", logs)
	}
	if logs[0].fields["namespace_uri"] != opcuaDI {
		t.Fatalf("expected namespace field, got %#v", logs[0].fields)
	}
}
