package cloudlib

import (
	"fmt"

	cloudcommand "github.com/goliatone/go-cloudlib/command"
	"github.com/goliatone/go-cloudlib/core"
	cloudquery "github.com/goliatone/go-cloudlib/query"
)

// CommandQueryService is everything the facade needs from a client.
type CommandQueryService interface {
	cloudcommand.NodesetUploader
	cloudcommand.ApprovalStatusSetter
	cloudquery.NodesetSearcher
	cloudquery.NodesetResolver
	cloudquery.NodesetGetter
	cloudquery.NodesetDownloader
	cloudquery.PendingApprovalLister
}

type Commands struct {
	UploadNodeset     *cloudcommand.UploadNodesetCommand
	SetApprovalStatus *cloudcommand.SetApprovalStatusCommand
}

type Queries struct {
	SearchNodesets      *cloudquery.SearchNodesetsQuery
	ResolveNodeset      *cloudquery.ResolveNodesetQuery
	GetNodeset          *cloudquery.GetNodesetQuery
	GetNodesets         *cloudquery.GetNodesetsQuery
	DownloadNodeset     *cloudquery.DownloadNodesetQuery
	ListPendingApproval *cloudquery.ListPendingApprovalQuery
	ListActivity        *cloudquery.ListActivityQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader core.ActivityReader
}

func WithActivityReader(reader core.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// NewFacade builds every handler over service. Without WithActivityReader the
// activity query uses the client's recorder when it can also list entries;
// otherwise ListActivity is nil.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("cloudlib: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		reader = resolveActivityReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		UploadNodeset:     cloudcommand.NewUploadNodesetCommand(service),
		SetApprovalStatus: cloudcommand.NewSetApprovalStatusCommand(service),
	}
	facade.queries = Queries{
		SearchNodesets:      cloudquery.NewSearchNodesetsQuery(service),
		ResolveNodeset:      cloudquery.NewResolveNodesetQuery(service),
		GetNodeset:          cloudquery.NewGetNodesetQuery(service),
		GetNodesets:         cloudquery.NewGetNodesetsQuery(service),
		DownloadNodeset:     cloudquery.NewDownloadNodesetQuery(service),
		ListPendingApproval: cloudquery.NewListPendingApprovalQuery(service),
	}
	if reader != nil {
		facade.queries.ListActivity = cloudquery.NewListActivityQuery(reader)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveActivityReader(service CommandQueryService) core.ActivityReader {
	if reader, ok := service.(core.ActivityReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		ActivityRecorder() core.ActivityRecorder
	})
	if !ok {
		return nil
	}
	recorder := provider.ActivityRecorder()
	if recorder == nil {
		return nil
	}
	reader, ok := recorder.(core.ActivityReader)
	if !ok {
		return nil
	}
	return reader
}
