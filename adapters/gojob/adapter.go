package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-cloudlib/adapters/gologger"
	"github.com/goliatone/go-cloudlib/core"
)

const ApprovalJobID = "cloudlib.approval.update"

const (
	paramIdentifier    = "identifier"
	paramState         = "state"
	paramStatusInfo    = "status_info"
	paramPropertyName  = "property_name"
	paramPropertyValue = "property_value"
)

// RetryPolicy bounds how failed approval jobs are retried.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// Backoff doubles BaseDelay per attempt; NormalizeAttempt applies MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt && delay < time.Hour; i++ {
		delay *= 2
	}
	return delay
}

// NewApprovalMessage encodes update as an approval job. The idempotency key is
// <identifier>:<state> so repeated requests for the same transition collapse.
func NewApprovalMessage(update core.ApprovalUpdate) (*job.ExecutionMessage, error) {
	update.Identifier = strings.TrimSpace(update.Identifier)
	update.State = core.NormalizeApprovalState(update.State)
	if err := update.Validate(); err != nil {
		return nil, err
	}
	params := map[string]any{
		paramIdentifier: update.Identifier,
		paramState:      string(update.State),
	}
	if info := strings.TrimSpace(update.StatusInfo); info != "" {
		params[paramStatusInfo] = info
	}
	if update.Property != nil {
		params[paramPropertyName] = update.Property.Name
		params[paramPropertyValue] = update.Property.Value
	}
	return &job.ExecutionMessage{
		JobID:          ApprovalJobID,
		ScriptPath:     ApprovalJobID,
		Parameters:     params,
		IdempotencyKey: update.Identifier + ":" + string(update.State),
	}, nil
}

// ApprovalFromMessage decodes an approval job back into an update.
func ApprovalFromMessage(msg *job.ExecutionMessage) (core.ApprovalUpdate, error) {
	if msg == nil {
		return core.ApprovalUpdate{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != ApprovalJobID {
		return core.ApprovalUpdate{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	update := core.ApprovalUpdate{
		Identifier: paramString(msg.Parameters, paramIdentifier),
		State:      core.NormalizeApprovalState(core.ApprovalState(paramString(msg.Parameters, paramState))),
		StatusInfo: paramString(msg.Parameters, paramStatusInfo),
	}
	if name := paramString(msg.Parameters, paramPropertyName); name != "" {
		update.Property = &core.Property{Name: name, Value: paramString(msg.Parameters, paramPropertyValue)}
	}
	if err := update.Validate(); err != nil {
		return core.ApprovalUpdate{}, err
	}
	return update, nil
}

func paramString(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

type ApprovalEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewApprovalEnqueuer(enqueuer queue.Enqueuer) *ApprovalEnqueuer {
	return &ApprovalEnqueuer{enqueuer: enqueuer}
}

func (a *ApprovalEnqueuer) Enqueue(ctx context.Context, update core.ApprovalUpdate) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := NewApprovalMessage(update)
	if err != nil {
		return err
	}
	return a.enqueuer.Enqueue(ctx, msg)
}

type ApprovalStatusSetter interface {
	SetApprovalStatus(ctx context.Context, update core.ApprovalUpdate) (*core.MetadataView, error)
}

type WorkerOption func(*ApprovalWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *ApprovalWorker) {
		w.policy = policy
	}
}

func WithLogger(logger glog.Logger) WorkerOption {
	return func(w *ApprovalWorker) {
		w.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) WorkerOption {
	return func(w *ApprovalWorker) {
		w.loggerProvider = provider
	}
}

// WithHooks adds go-job worker hooks. A LoggingHook on the worker logger is
// always attached first.
func WithHooks(hooks ...worker.Hook) WorkerOption {
	return func(w *ApprovalWorker) {
		for _, hook := range hooks {
			if hook != nil {
				w.hooks = append(w.hooks, hook)
			}
		}
	}
}

// ApprovalWorker applies queued approval updates one delivery at a time.
// Attempts are counted per idempotency key for the life of the worker.
type ApprovalWorker struct {
	dequeuer       queue.Dequeuer
	setter         ApprovalStatusSetter
	policy         RetryPolicy
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	hooks          []worker.Hook
	now            func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

func NewApprovalWorker(dequeuer queue.Dequeuer, setter ApprovalStatusSetter, opts ...WorkerOption) *ApprovalWorker {
	w := &ApprovalWorker{
		dequeuer: dequeuer,
		setter:   setter,
		policy:   RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Minute, DeadLetterOnMax: true},
		now:      time.Now,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.loggerProvider, w.logger = gologger.Resolve("cloudlib.jobs", w.loggerProvider, w.logger)
	w.hooks = append([]worker.Hook{NewLoggingHook(w.logger)}, w.hooks...)
	return w
}

// ProcessNext handles a single delivery. The returned error is the failure
// that caused a nack, if any; the delivery has already been settled.
// Payloads that cannot decode and updates the registry client rejects as
// malformed are dead-lettered without retry.
func (w *ApprovalWorker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	if w.setter == nil {
		return fmt.Errorf("gojob: approval status setter is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	startedAt := w.now()
	msg := delivery.Message()
	update, err := ApprovalFromMessage(msg)
	if err != nil {
		w.emit(ctx, (worker.Hook).OnFailure, worker.Event{Message: msg, Attempt: 1, Err: err, StartedAt: startedAt})
		if nackErr := delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()}); nackErr != nil {
			return nackErr
		}
		return err
	}

	key := attemptKey(msg, update)
	w.emit(ctx, (worker.Hook).OnStart, worker.Event{Message: msg, Attempt: w.peekAttempt(key) + 1, StartedAt: startedAt})

	view, err := w.setter.SetApprovalStatus(ctx, update)
	if err != nil {
		attempt := w.recordAttempt(key)
		opts := queue.NackOptions{DeadLetter: true, Reason: err.Error()}
		if !core.IsInvalidQueryShape(err) {
			opts = w.policy.NormalizeAttempt(queue.NackOptions{
				Delay:   w.policy.Backoff(attempt),
				Requeue: true,
				Reason:  err.Error(),
			}, attempt)
		}
		event := worker.Event{
			Message:   msg,
			Attempt:   attempt,
			Delay:     opts.Delay,
			Err:       err,
			StartedAt: startedAt,
			Duration:  w.now().Sub(startedAt),
		}
		if opts.DeadLetter {
			w.clearAttempts(key)
			w.emit(ctx, (worker.Hook).OnFailure, event)
		} else {
			w.emit(ctx, (worker.Hook).OnRetry, event)
		}
		if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
			return nackErr
		}
		return err
	}

	attempt := w.peekAttempt(key) + 1
	w.clearAttempts(key)
	if view == nil {
		w.logger.Warn("approval job target not found", "identifier", update.Identifier)
	}
	if err := delivery.Ack(ctx); err != nil {
		return err
	}
	w.emit(ctx, (worker.Hook).OnSuccess, worker.Event{
		Message:   msg,
		Attempt:   attempt,
		StartedAt: startedAt,
		Duration:  w.now().Sub(startedAt),
	})
	return nil
}

func (w *ApprovalWorker) emit(ctx context.Context, phase func(worker.Hook, context.Context, worker.Event), event worker.Event) {
	for _, hook := range w.hooks {
		phase(hook, ctx, event)
	}
}

func (w *ApprovalWorker) peekAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts[key]
}

func (w *ApprovalWorker) recordAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *ApprovalWorker) clearAttempts(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

func attemptKey(msg *job.ExecutionMessage, update core.ApprovalUpdate) string {
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	return update.Identifier + ":" + string(update.State)
}

// LoggingHook reports go-job worker lifecycle events for approval jobs.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.log("start", event)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.log("success", event)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.log("failure", event)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.log("retry", event)
}

func (h *LoggingHook) log(phase string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	fields := hookFields(phase, event)
	if event.Err != nil {
		h.logger.Warn("approval worker event", fields...)
		return
	}
	h.logger.Debug("approval worker event", fields...)
}

func hookFields(phase string, event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := []any{"phase", phase, "attempt", event.Attempt}
	if message != nil {
		fields = append(fields, "job_id", message.JobID, "idempotency_key", message.IdempotencyKey)
	}
	if event.Delay > 0 {
		fields = append(fields, "delay", event.Delay.String())
	}
	if event.Duration > 0 {
		fields = append(fields, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	return fields
}

var (
	_ worker.Hook          = (*LoggingHook)(nil)
	_ ApprovalStatusSetter = (*core.Client)(nil)
)
