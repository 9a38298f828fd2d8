package adapters_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-cloudlib/adapters/gocommand"
	"github.com/goliatone/go-cloudlib/adapters/gojob"
	"github.com/goliatone/go-cloudlib/adapters/gologger"
	cloudcommand "github.com/goliatone/go-cloudlib/command"
	"github.com/goliatone/go-cloudlib/core"
)

func TestRuntimeCompatibility_DeferredApprovalThroughQueue(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}
	_, resolvedLogger, jobProvider, jobLogger := gologger.ResolveForJob("cloudlib.jobs", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	jobs := &compatQueue{}
	enqueuer := gojob.NewApprovalEnqueuer(jobs)

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	deferred := command.CommandFunc[cloudcommand.SetApprovalStatusMessage](
		func(ctx context.Context, msg cloudcommand.SetApprovalStatusMessage) error {
			return enqueuer.Enqueue(ctx, msg.Update)
		},
	)
	subscription, err := gocommand.RegisterAndSubscribe(commandAdapter, deferred)
	if err != nil {
		t.Fatalf("register deferred approval command: %v", err)
	}
	defer subscription.Unsubscribe()
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get(cloudcommand.TypeSetApprovalStatus); !ok {
		t.Fatalf("expected approval command to be mirrored into go-job queue registry")
	}

	update := core.ApprovalUpdate{Identifier: "1001", State: "approved", StatusInfo: "looks good"}
	if err := gocommand.Dispatch(ctx, cloudcommand.SetApprovalStatusMessage{Update: update}); err != nil {
		t.Fatalf("dispatch approval: %v", err)
	}
	if jobs.pending() != 1 {
		t.Fatalf("expected one queued approval job, got %d", jobs.pending())
	}

	remote := &compatRemote{}
	client, err := core.NewClient(core.DefaultConfig(), remote, core.WithLogger(resolvedLogger), core.WithLoggerProvider(provider))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	w := gojob.NewApprovalWorker(jobs, client, gojob.WithLoggerProvider(provider))
	if err := w.ProcessNext(ctx); err != nil {
		t.Fatalf("process approval job: %v", err)
	}

	if len(remote.approvals) != 1 {
		t.Fatalf("expected remote approval call, got %d", len(remote.approvals))
	}
	got := remote.approvals[0]
	if got.Identifier != "1001" || got.State != core.ApprovalStateApproved || got.StatusInfo != "looks good" {
		t.Fatalf("unexpected remote approval update: %#v", got)
	}
	if jobs.acked != 1 {
		t.Fatalf("expected queued delivery to be acked, got %d", jobs.acked)
	}
}

type compatQueue struct {
	mu       sync.Mutex
	messages []*job.ExecutionMessage
	acked    int
}

func (q *compatQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *compatQueue) Dequeue(context.Context) (queue.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil, nil
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return &compatDelivery{queue: q, msg: msg}, nil
}

func (q *compatQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

type compatDelivery struct {
	queue *compatQueue
	msg   *job.ExecutionMessage
}

func (d *compatDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *compatDelivery) Ack(context.Context) error {
	d.queue.mu.Lock()
	defer d.queue.mu.Unlock()
	d.queue.acked++
	return nil
}

func (d *compatDelivery) Nack(ctx context.Context, opts queue.NackOptions) error {
	if opts.Requeue {
		return d.queue.Enqueue(ctx, d.msg)
	}
	return nil
}

type compatRemote struct {
	approvals []core.ApprovalUpdate
}

func (r *compatRemote) QueryNodesets(context.Context, core.NodesetQuery) (core.ResultPage[core.NodesetRecord], error) {
	return core.ResultPage[core.NodesetRecord]{}, nil
}

func (r *compatRemote) DownloadNodeset(context.Context, string) (*core.MetadataView, error) {
	return nil, nil
}

func (r *compatRemote) UploadNodeset(context.Context, core.MetadataView) (core.UploadResult, error) {
	return core.UploadResult{StatusCode: 200}, nil
}

func (r *compatRemote) QueryPendingApproval(context.Context, core.NodesetQuery) (core.ResultPage[core.NodesetRecord], error) {
	return core.ResultPage[core.NodesetRecord]{}, nil
}

func (r *compatRemote) UpdateApprovalStatus(_ context.Context, update core.ApprovalUpdate) (*core.MetadataView, error) {
	r.approvals = append(r.approvals, update)
	return &core.MetadataView{
		ApprovalStatus: update.State,
		Nodeset:        &core.NodesetRecord{Identifier: update.Identifier},
	}, nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
