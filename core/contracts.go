package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// RemoteRegistry is the capability the client consumes. Implementations own
// the wire format and transport.
type RemoteRegistry interface {
	QueryNodesets(ctx context.Context, query NodesetQuery) (ResultPage[NodesetRecord], error)
	DownloadNodeset(ctx context.Context, identifier string) (*MetadataView, error)
	UploadNodeset(ctx context.Context, nodeset MetadataView) (UploadResult, error)
	QueryPendingApproval(ctx context.Context, query NodesetQuery) (ResultPage[NodesetRecord], error)
	UpdateApprovalStatus(ctx context.Context, update ApprovalUpdate) (*MetadataView, error)
}

type ActivityStatus string

const (
	ActivityStatusOK     ActivityStatus = "ok"
	ActivityStatusFailed ActivityStatus = "failed"
)

const (
	ActivityActionUpload         = "nodeset.upload"
	ActivityActionApprovalStatus = "nodeset.approval_status"
)

type ActivityEntry struct {
	ID           string
	Action       string
	Identifier   string
	NamespaceURI string
	State        ApprovalState
	Status       ActivityStatus
	Message      string
	Metadata     map[string]any
	CreatedAt    time.Time
}

type ActivityFilter struct {
	Action     string
	Identifier string
	Status     ActivityStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}

type ActivityPage struct {
	Items   []ActivityEntry
	Page    int
	PerPage int
	Total   int
}

type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

type ActivityReader interface {
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string

	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter executes one request/response exchange with the registry.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}
