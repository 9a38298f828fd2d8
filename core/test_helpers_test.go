package core

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fakeRegistry struct {
	mu sync.Mutex

	// queryFn answers QueryNodesets. When nil, records is filtered instead.
	queryFn   func(query NodesetQuery) (ResultPage[NodesetRecord], error)
	records   []NodesetRecord
	downloads map[string]*MetadataView

	pendingFn  func(query NodesetQuery) (ResultPage[NodesetRecord], error)
	uploadFn   func(nodeset MetadataView) (UploadResult, error)
	approvalFn func(update ApprovalUpdate) (*MetadataView, error)

	queries         []NodesetQuery
	pendingQueries  []NodesetQuery
	downloadCalls   []string
	uploads         []MetadataView
	approvalUpdates []ApprovalUpdate
}

func (r *fakeRegistry) QueryNodesets(_ context.Context, query NodesetQuery) (ResultPage[NodesetRecord], error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	fn := r.queryFn
	r.mu.Unlock()
	if fn != nil {
		return fn(query)
	}
	edges := []Edge[NodesetRecord]{}
	for _, record := range r.records {
		if query.Identifier != "" && record.Identifier != query.Identifier {
			continue
		}
		if query.NamespaceURI != "" && record.NamespaceURI != query.NamespaceURI {
			continue
		}
		if query.PublicationDate != nil {
			if record.PublicationDate == nil || !record.PublicationDate.Equal(*query.PublicationDate) {
				continue
			}
		}
		edges = append(edges, Edge[NodesetRecord]{Node: record, Cursor: "c-" + record.Identifier})
	}
	total := len(edges)
	return ResultPage[NodesetRecord]{Edges: edges, TotalCount: &total}, nil
}

func (r *fakeRegistry) DownloadNodeset(_ context.Context, identifier string) (*MetadataView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloadCalls = append(r.downloadCalls, identifier)
	view, ok := r.downloads[identifier]
	if !ok {
		return nil, goerrors.New("nodeset not found", goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode(RegistryErrorNotFound)
	}
	return view, nil
}

func (r *fakeRegistry) UploadNodeset(_ context.Context, nodeset MetadataView) (UploadResult, error) {
	r.mu.Lock()
	r.uploads = append(r.uploads, nodeset)
	fn := r.uploadFn
	r.mu.Unlock()
	if fn != nil {
		return fn(nodeset)
	}
	return UploadResult{StatusCode: http.StatusOK, Message: "uploaded"}, nil
}

func (r *fakeRegistry) QueryPendingApproval(_ context.Context, query NodesetQuery) (ResultPage[NodesetRecord], error) {
	r.mu.Lock()
	r.pendingQueries = append(r.pendingQueries, query)
	fn := r.pendingFn
	r.mu.Unlock()
	if fn != nil {
		return fn(query)
	}
	return ResultPage[NodesetRecord]{}, nil
}

func (r *fakeRegistry) UpdateApprovalStatus(_ context.Context, update ApprovalUpdate) (*MetadataView, error) {
	r.mu.Lock()
	r.approvalUpdates = append(r.approvalUpdates, update)
	fn := r.approvalFn
	r.mu.Unlock()
	if fn != nil {
		return fn(update)
	}
	return nil, nil
}

func (r *fakeRegistry) queryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

type memoryActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
	err     error
}

func (m *memoryActivityRecorder) Record(_ context.Context, entry ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryActivityRecorder) snapshot() []ActivityEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActivityEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

var errBoom = errors.New("boom")

func date(year int, month time.Month, day int) *time.Time {
	value := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &value
}

func intPtr(value int) *int {
	return &value
}

func newTestClient(t *testing.T, remote RemoteRegistry, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(DefaultConfig(), remote, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func edgesOf(records ...NodesetRecord) []Edge[NodesetRecord] {
	edges := make([]Edge[NodesetRecord], 0, len(records))
	for _, record := range records {
		edges = append(edges, Edge[NodesetRecord]{Node: record, Cursor: "c-" + record.Identifier})
	}
	return edges
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

func withCaptureLogger(logger *captureLogger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
		b.loggerProvider = stubLoggerProvider{logger: logger}
	}
}
