package cloudlib

import "github.com/goliatone/go-cloudlib/core"

type Config = core.Config
type SearchConfig = core.SearchConfig

type Option = core.Option

type Client = core.Client

type RemoteRegistry = core.RemoteRegistry
type ActivityRecorder = core.ActivityRecorder
type ActivityReader = core.ActivityReader
type MetricsRecorder = core.MetricsRecorder

type NodesetRecord = core.NodesetRecord
type MetadataView = core.MetadataView
type RequiredModel = core.RequiredModel
type Property = core.Property
type PageInfo = core.PageInfo
type NodesetPage = core.ResultPage[core.NodesetRecord]

type SearchRequest = core.SearchRequest
type PendingApprovalRequest = core.PendingApprovalRequest
type ApprovalUpdate = core.ApprovalUpdate
type ApprovalState = core.ApprovalState
type Direction = core.Direction

type UploadFailure = core.UploadFailure

const (
	DirectionForward  = core.DirectionForward
	DirectionBackward = core.DirectionBackward

	ApprovalStatePending  = core.ApprovalStatePending
	ApprovalStateApproved = core.ApprovalStateApproved
	ApprovalStateRejected = core.ApprovalStateRejected
	ApprovalStateCanceled = core.ApprovalStateCanceled
)

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithActivityRecorder = core.WithActivityRecorder
	WithClock            = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewClient(cfg Config, remote RemoteRegistry, opts ...Option) (*Client, error) {
	return core.NewClient(cfg, remote, opts...)
}
